package service

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/anime-shed/table-inspector-go/internal/analyzer"
	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/internal/observer"
	"github.com/anime-shed/table-inspector-go/internal/preprocess"
	"github.com/anime-shed/table-inspector-go/internal/repository"
	"github.com/anime-shed/table-inspector-go/internal/storage"
	"github.com/anime-shed/table-inspector-go/internal/table"
	"github.com/anime-shed/table-inspector-go/internal/vision"
	"github.com/anime-shed/table-inspector-go/pkg/models"
	"github.com/anime-shed/table-inspector-go/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TableAnalysisService is the application layer over the recognition pipeline
type TableAnalysisService interface {
	// AnalyzeUpload decodes an uploaded file and analyzes it
	AnalyzeUpload(ctx context.Context, filename string, r io.Reader, save bool) (*models.AnalysisRecord, error)
	// AnalyzeReference fetches an image by URL, blob reference or path and analyzes it
	AnalyzeReference(ctx context.Context, ref string, save bool) (*models.AnalysisRecord, error)
	AnalyzeBatch(ctx context.Context, refs []string, save bool) (*models.BatchAnalyzeResponse, error)

	TestConnection(ctx context.Context, req models.ConnectivityRequest) models.ConnectivityStatus

	GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error)
	History(ctx context.Context, source string, limit int) ([]*models.AnalysisRecord, error)
	CompareAnalysis(ctx context.Context, id string, expected [][]interface{}) (*table.Comparison, error)
	WriteCSV(ctx context.Context, id string, w io.Writer) error

	ValidateReference(ref string) error

	// PoolStats reports the batch worker pool counters
	PoolStats() analyzer.PoolStats
	// Close stops the batch pool after queued items finish
	Close()
}

// Options holds the service level settings. A zero BatchWorkers falls back to
// the analyzer's MaxWorkers. An empty AllowedHosts accepts any http(s) host.
type Options struct {
	Settings         vision.Settings
	SupportedFormats []string
	AllowedHosts     []string
	BatchWorkers     int
	BatchMaxItems    int
}

type tableAnalysisService struct {
	analyzer  analyzer.TableAnalyzer
	fetcher   storage.ImageFetcher
	repo      repository.AnalysisRepository
	exporters []repository.ResultExporter
	events    observer.Subject

	settings      vision.Settings
	urlValidator  *validation.URLValidator
	fileValidator *validation.FileValidator
	pool          *analyzer.WorkerPool
	batchMaxItems int

	newID func() string
}

// NewTableAnalysisService creates the service. events may be nil.
func NewTableAnalysisService(
	tableAnalyzer analyzer.TableAnalyzer,
	fetcher storage.ImageFetcher,
	repo repository.AnalysisRepository,
	events observer.Subject,
	opts Options,
	exporters ...repository.ResultExporter,
) TableAnalysisService {
	formats := opts.SupportedFormats
	if len(formats) == 0 {
		formats = validation.DefaultSupportedFormats
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = tableAnalyzer.Options().MaxWorkers
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 1
	}
	if opts.BatchMaxItems <= 0 {
		opts.BatchMaxItems = 1
	}
	urlValidator := validation.NewURLValidator()
	if len(opts.AllowedHosts) > 0 {
		urlValidator = validation.NewURLValidatorWithOptions([]string{"http", "https"}, opts.AllowedHosts)
	}

	pool := analyzer.NewWorkerPool(opts.BatchWorkers)
	pool.Start()

	return &tableAnalysisService{
		analyzer:      tableAnalyzer,
		fetcher:       fetcher,
		repo:          repo,
		exporters:     exporters,
		events:        events,
		settings:      opts.Settings,
		urlValidator:  urlValidator,
		fileValidator: validation.NewFileValidator(formats),
		pool:          pool,
		batchMaxItems: opts.BatchMaxItems,
		newID:         uuid.NewString,
	}
}

func (s *tableAnalysisService) AnalyzeUpload(ctx context.Context, filename string, r io.Reader, save bool) (*models.AnalysisRecord, error) {
	if err := s.fileValidator.ValidateExtension(filename); err != nil {
		return nil, err
	}
	img, _, err := preprocess.Decode(r)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, "upload:"+filename, img, save)
}

func (s *tableAnalysisService) AnalyzeReference(ctx context.Context, ref string, save bool) (*models.AnalysisRecord, error) {
	ref = strings.TrimSpace(ref)
	if err := s.ValidateReference(ref); err != nil {
		return nil, err
	}

	start := time.Now()
	img, meta, err := s.fetcher.FetchImage(ctx, ref)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.ImageFetchFailed,
			Source:         ref,
			ProcessingTime: time.Since(start),
			ErrorType:      string(apperrors.KindOf(err)),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}
	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageFetched,
		Source:         ref,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"width":  meta.Width,
			"height": meta.Height,
			"format": meta.Format,
		},
	})

	return s.analyze(ctx, ref, img, save)
}

// ValidateReference rejects empty references and malformed http(s) URLs.
// Other schemes are checked by their fetcher.
func (s *tableAnalysisService) ValidateReference(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return apperrors.NewValidationError("image reference cannot be empty", nil)
	}
	switch storage.SchemeOf(ref) {
	case "http", "https":
		return s.urlValidator.ValidateImageURL(ref)
	case storage.BlobScheme:
		if _, _, err := storage.ParseBlobRef(ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *tableAnalysisService) analyze(ctx context.Context, source string, img image.Image, save bool) (*models.AnalysisRecord, error) {
	settings := s.settings
	start := time.Now()

	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		Source:    source,
		Model:     settings.Model,
	})

	analysis, err := s.analyzer.Analyze(ctx, img, settings)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			Source:         source,
			Model:          settings.Model,
			ProcessingTime: time.Since(start),
			ErrorType:      string(apperrors.KindOf(err)),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	rec := &models.AnalysisRecord{
		ID:                s.newID(),
		Source:            source,
		Model:             settings.Model,
		CreatedAt:         start.UTC(),
		ProcessingTimeSec: analysis.Duration.Seconds(),
		Result:            *analysis.Result,
	}

	if save {
		rec.Exports = s.export(ctx, rec)
	}

	// The analysis already succeeded; a history failure is logged, not returned.
	if err := s.repo.Save(ctx, rec); err != nil {
		logger.WithFields(logrus.Fields{
			"id":     rec.ID,
			"source": source,
		}).WithError(err).Error("Failed to save analysis to history")
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Source:         source,
		Model:          settings.Model,
		ProcessingTime: analysis.Duration,
		Success:        true,
		Metadata: map[string]interface{}{
			"id":         rec.ID,
			"is_table":   rec.Result.IsTable,
			"confidence": rec.Result.Confidence,
			"rows":       rec.Result.TableData.Rows(),
			"cols":       rec.Result.TableData.Cols(),
		},
	})
	return rec, nil
}

func (s *tableAnalysisService) export(ctx context.Context, rec *models.AnalysisRecord) []string {
	var locations []string
	for _, e := range s.exporters {
		loc, err := e.Export(ctx, rec)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"id":       rec.ID,
				"exporter": e.Name(),
			}).WithError(err).Warn("Result export failed")
			continue
		}
		locations = append(locations, loc)
	}
	return locations
}

// AnalyzeBatch analyzes refs on the shared worker pool. Items keep the input
// order and fail independently.
func (s *tableAnalysisService) AnalyzeBatch(ctx context.Context, refs []string, save bool) (*models.BatchAnalyzeResponse, error) {
	if len(refs) == 0 {
		return nil, apperrors.NewValidationError("batch must contain at least one reference", nil)
	}
	if len(refs) > s.batchMaxItems {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("batch contains %d references, limit is %d", len(refs), s.batchMaxItems), nil)
	}

	items := make([]models.BatchItem, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		i, ref := i, ref // per-iteration copies (go.mod targets go1.21)
		wg.Add(1)
		submitted := s.pool.Submit(func() {
			defer wg.Done()
			item := models.BatchItem{URL: ref}
			rec, err := s.AnalyzeReference(ctx, ref, save)
			if err != nil {
				item.Error = err.Error()
				item.ErrorType = string(apperrors.KindOf(err))
			} else {
				item.Record = rec
			}
			items[i] = item
		})
		if !submitted {
			err := apperrors.NewInternalError("service is shutting down", nil)
			items[i] = models.BatchItem{URL: ref, Error: err.Error(), ErrorType: string(err.Type)}
			wg.Done()
		}
	}
	wg.Wait()

	resp := &models.BatchAnalyzeResponse{Items: items}
	for _, item := range items {
		if item.Error != "" {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	return resp, nil
}

// TestConnection probes the endpoint with the configured settings, overridden by
// any non-empty field of req
func (s *tableAnalysisService) TestConnection(ctx context.Context, req models.ConnectivityRequest) models.ConnectivityStatus {
	settings := s.settings.WithOverrides(req.APIKey, req.APIURL, req.Model)
	start := time.Now()
	status := s.analyzer.TestConnection(ctx, settings)

	event := observer.AnalysisEvent{
		EventType:      observer.ConnectivityChecked,
		Source:         settings.Endpoint,
		Model:          settings.Model,
		ProcessingTime: time.Since(start),
		Success:        status.Success,
	}
	if !status.Success {
		event.ErrorMessage = status.Message
	}
	s.publish(ctx, event)
	return status
}

func (s *tableAnalysisService) GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("analysis id cannot be empty", nil)
	}
	return s.repo.Get(ctx, id)
}

func (s *tableAnalysisService) History(ctx context.Context, source string, limit int) ([]*models.AnalysisRecord, error) {
	return s.repo.History(ctx, strings.TrimSpace(source), limit)
}

// CompareAnalysis scores a stored table against a reference table
func (s *tableAnalysisService) CompareAnalysis(ctx context.Context, id string, expected [][]interface{}) (*table.Comparison, error) {
	rec, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	cmp := table.Compare(table.Normalize(expected), rec.Result.TableData)
	return &cmp, nil
}

// WriteCSV writes the stored table of an analysis as CSV
func (s *tableAnalysisService) WriteCSV(ctx context.Context, id string, w io.Writer) error {
	rec, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}
	if err := table.WriteCSV(w, rec.Result.TableData); err != nil {
		return apperrors.NewInternalError("failed to write CSV", err)
	}
	return nil
}

func (s *tableAnalysisService) PoolStats() analyzer.PoolStats {
	return s.pool.GetStats()
}

func (s *tableAnalysisService) Close() {
	s.pool.Close()
	s.pool.Wait()
}

func (s *tableAnalysisService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.events == nil {
		return
	}
	s.events.NotifyObservers(ctx, event)
}
