package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/anime-shed/table-inspector-go/internal/analyzer"
	"github.com/anime-shed/table-inspector-go/internal/config"
	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/internal/repository"
	"github.com/anime-shed/table-inspector-go/internal/storage"
	"github.com/anime-shed/table-inspector-go/internal/vision"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// ComponentFactory builds the configurable components of the service
type ComponentFactory struct {
	cfg *config.Config

	blobOnce sync.Once
	blob     storage.BlobStorage
	blobErr  error
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{cfg: cfg}
}

// CreateAnalyzer builds the table analyzer over a live vision client
func (f *ComponentFactory) CreateAnalyzer() (analyzer.TableAnalyzer, error) {
	opts := analyzer.DefaultOptions().WithMaxWorkers(f.cfg.BatchWorkers)
	opts.Preprocess = f.cfg.PreprocessOptions()
	if f.cfg.SkipPreprocessing {
		opts = opts.WithoutPreprocessing()
	}
	return analyzer.NewTableAnalyzer(vision.NewClient(), opts)
}

// CreateStorage creates a storage implementation based on the specified type
func (f *ComponentFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(), nil
	case AzureStorage:
		return f.blobStorage()
	case LocalStorage:
		return storage.NewLocalFileFetcher(f.cfg.SupportedFormatList()), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateSourceRouter registers a fetcher for every image source the configuration enables
func (f *ComponentFactory) CreateSourceRouter() (*storage.SchemeRouter, error) {
	router := storage.NewSchemeRouter()

	httpFetcher, err := f.CreateStorage(HTTPStorage)
	if err != nil {
		return nil, err
	}
	router.Register("http", httpFetcher).Register("https", httpFetcher)

	if f.azureEnabled() {
		blob, err := f.CreateStorage(AzureStorage)
		if err != nil {
			return nil, err
		}
		router.Register(storage.BlobScheme, blob)
	}

	if f.cfg.AllowLocalFiles {
		local, err := f.CreateStorage(LocalStorage)
		if err != nil {
			return nil, err
		}
		router.Register("file", local)
	}

	logger.WithField("schemes", router.Schemes()).Info("Image sources configured")
	return router, nil
}

// CreateRepository returns the MySQL history when MYSQL_DSN is set, else an in-memory one
func (f *ComponentFactory) CreateRepository(ctx context.Context) (repository.AnalysisRepository, error) {
	if f.cfg.MySQLDSN == "" {
		logger.Info("MYSQL_DSN not set, keeping analysis history in memory")
		return repository.NewMemoryRepository(f.cfg.HistoryMaxRecords), nil
	}
	return repository.NewMySQLRepository(ctx, f.cfg.MySQLDSN)
}

// CreateExporters returns the result exporters enabled by RESULTS_DIR and AZURE_RESULTS_CONTAINER
func (f *ComponentFactory) CreateExporters() ([]repository.ResultExporter, error) {
	var exporters []repository.ResultExporter
	if f.cfg.ResultsDir != "" {
		exporters = append(exporters, repository.NewFileExporter(f.cfg.ResultsDir))
	}
	if f.cfg.AzureResultsContainer != "" {
		blob, err := f.blobStorage()
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, repository.NewBlobExporter(blob, f.cfg.AzureResultsContainer))
	}
	return exporters, nil
}

func (f *ComponentFactory) azureEnabled() bool {
	return f.cfg.AzureStorageAccount != "" && f.cfg.AzureStorageKey != ""
}

// blobStorage shares one Azure client between image fetching and result export
func (f *ComponentFactory) blobStorage() (storage.BlobStorage, error) {
	f.blobOnce.Do(func() {
		if !f.azureEnabled() {
			f.blobErr = fmt.Errorf("azure storage is not configured")
			return
		}
		f.blob, f.blobErr = storage.NewAzureStorage(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey)
	})
	return f.blob, f.blobErr
}
