package storage

import (
	"context"
	"image"
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// SchemeRouter dispatches a reference to the fetcher registered for its scheme.
// References without a scheme are treated as local paths.
type SchemeRouter struct {
	fetchers map[string]ImageFetcher
}

// NewSchemeRouter creates an empty router
func NewSchemeRouter() *SchemeRouter {
	return &SchemeRouter{fetchers: make(map[string]ImageFetcher)}
}

// Register binds a scheme ("http", "azblob", "file"...) to a fetcher
func (r *SchemeRouter) Register(scheme string, f ImageFetcher) *SchemeRouter {
	r.fetchers[strings.ToLower(scheme)] = f
	return r
}

// Schemes returns the registered schemes
func (r *SchemeRouter) Schemes() []string {
	out := make([]string, 0, len(r.fetchers))
	for s := range r.fetchers {
		out = append(out, s)
	}
	return out
}

func (r *SchemeRouter) FetchImage(ctx context.Context, ref string) (image.Image, models.ImageMetadata, error) {
	scheme := SchemeOf(ref)
	f, ok := r.fetchers[scheme]
	if !ok {
		return nil, models.ImageMetadata{}, apperrors.NewValidationError("unsupported image source: "+scheme, nil)
	}
	return f.FetchImage(ctx, ref)
}

// SchemeOf returns the lower-cased URL scheme of ref, or "file" for plain paths
func SchemeOf(ref string) string {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "://") {
		return "file"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		return "file"
	}
	return strings.ToLower(u.Scheme)
}
