package repository

import (
	"context"

	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// DefaultHistoryLimit applies when History is called with limit <= 0
const DefaultHistoryLimit = 50

// AnalysisRepository defines the interface for analysis history operations
type AnalysisRepository interface {
	// Save stores an analysis record
	Save(ctx context.Context, rec *models.AnalysisRecord) error

	// Get retrieves a stored record by ID
	Get(ctx context.Context, id string) (*models.AnalysisRecord, error)

	// History lists records newest first, optionally filtered by source
	History(ctx context.Context, source string, limit int) ([]*models.AnalysisRecord, error)

	Close() error
}

// ResultExporter writes a finished analysis somewhere outside the history store
type ResultExporter interface {
	// Export returns a reference (path or URL) to the written document
	Export(ctx context.Context, rec *models.AnalysisRecord) (string, error)
	Name() string
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return DefaultHistoryLimit
	}
	return limit
}
