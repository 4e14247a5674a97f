package repository

import (
	"context"
	"sync"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// DefaultMemoryCapacity is the record cap used when none is configured
const DefaultMemoryCapacity = 1000

// MemoryRepository keeps the most recent analyses in process memory.
// Once capacity is reached the oldest record is evicted on each save.
type MemoryRepository struct {
	mu       sync.RWMutex
	records  map[string]*models.AnalysisRecord
	order    []string
	capacity int
}

// NewMemoryRepository creates an empty in-memory repository holding at most
// capacity records; capacity <= 0 means DefaultMemoryCapacity
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryRepository{
		records:  make(map[string]*models.AnalysisRecord),
		capacity: capacity,
	}
}

func (m *MemoryRepository) Save(ctx context.Context, rec *models.AnalysisRecord) error {
	if rec == nil || rec.ID == "" {
		return apperrors.NewValidationError("record must have an ID", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; !exists {
		m.order = append(m.order, rec.ID)
	}
	m.records[rec.ID] = cloneRecord(rec)

	for len(m.order) > m.capacity {
		delete(m.records, m.order[0])
		m.order[0] = ""
		m.order = m.order[1:]
	}
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("analysis "+id+" not found", ErrAnalysisNotFound)
	}
	return cloneRecord(rec), nil
}

func (m *MemoryRepository) History(ctx context.Context, source string, limit int) ([]*models.AnalysisRecord, error) {
	limit = normalizeLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.AnalysisRecord, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.records[m.order[i]]
		if source != "" && rec.Source != source {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (m *MemoryRepository) Close() error {
	return nil
}

// cloneRecord deep-copies the mutable parts of a record
func cloneRecord(rec *models.AnalysisRecord) *models.AnalysisRecord {
	c := *rec
	c.Result.TableData = make(models.TableData, len(rec.Result.TableData))
	for i, row := range rec.Result.TableData {
		c.Result.TableData[i] = append([]string(nil), row...)
	}
	c.Exports = append([]string(nil), rec.Exports...)
	return &c
}
