package repository

import (
	"context"
	"path/filepath"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/storage"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// FileExporter writes the result of each record to <dir>/<id>.json in the
// SaveResultToFile format, so LoadResultFromFile can read it back
type FileExporter struct {
	dir string
}

// NewFileExporter creates an exporter rooted at dir
func NewFileExporter(dir string) *FileExporter {
	return &FileExporter{dir: dir}
}

func (e *FileExporter) Name() string { return "file" }

func (e *FileExporter) Export(ctx context.Context, rec *models.AnalysisRecord) (string, error) {
	if rec == nil || rec.ID == "" {
		return "", apperrors.NewValidationError("record must have an ID", nil)
	}
	path := filepath.Join(e.dir, filepath.Base(rec.ID)+".json")
	if err := SaveResultToFile(path, &rec.Result); err != nil {
		return "", err
	}
	return path, nil
}

// BlobExporter uploads records to <container>/<id>.json in Azure Blob Storage
type BlobExporter struct {
	store     storage.BlobStorage
	container string
}

// NewBlobExporter creates an exporter writing into container
func NewBlobExporter(store storage.BlobStorage, container string) *BlobExporter {
	return &BlobExporter{store: store, container: container}
}

func (e *BlobExporter) Name() string { return "azure" }

func (e *BlobExporter) Export(ctx context.Context, rec *models.AnalysisRecord) (string, error) {
	data, err := MarshalIndent(rec)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode record", err)
	}
	return e.store.PutJSON(ctx, e.container, rec.ID+".json", data)
}
