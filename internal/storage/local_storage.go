package storage

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/url"
	"os"
	"strings"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/preprocess"
	"github.com/anime-shed/table-inspector-go/pkg/models"
	"github.com/anime-shed/table-inspector-go/pkg/validation"
)

// LocalFileFetcher reads images from the local filesystem
type LocalFileFetcher struct {
	validator *validation.FileValidator
}

// NewLocalFileFetcher creates a fetcher accepting the given extensions
func NewLocalFileFetcher(formats []string) *LocalFileFetcher {
	return &LocalFileFetcher{validator: validation.NewFileValidator(formats)}
}

// FetchImage accepts a plain path or a file:// URL
func (l *LocalFileFetcher) FetchImage(ctx context.Context, ref string) (image.Image, models.ImageMetadata, error) {
	path, err := localPath(ref)
	if err != nil {
		return nil, models.ImageMetadata{}, err
	}
	if err := l.validator.ValidateImageFile(path); err != nil {
		return nil, models.ImageMetadata{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, models.ImageMetadata{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, models.ImageMetadata{}, apperrors.NewValidationError("cannot open image file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, models.ImageMetadata{}, apperrors.NewInternalError("failed to read image file", err)
	}
	if len(data) > MaxImageBytes {
		return nil, models.ImageMetadata{}, apperrors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", MaxImageBytes), nil)
	}

	return preprocess.DecodeBytes(data)
}

// localPath turns a file URL into a path. The scheme and the localhost host
// match case-insensitively; other references are returned as is.
func localPath(ref string) (string, error) {
	if !strings.Contains(ref, "://") || SchemeOf(ref) != "file" {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", apperrors.NewValidationError("invalid file URL", err)
	}
	if u.Host != "" && !strings.EqualFold(u.Host, "localhost") {
		return "", apperrors.NewValidationError("file URL must not name a remote host", nil)
	}
	return u.Path, nil
}
