package storage

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"testing"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

func TestLocalFileFetcher(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "sheet.png")
	if err := os.WriteFile(good, pngBytes(t, 5, 4), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "sheet.tiff"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	fetcher := NewLocalFileFetcher(nil)

	for _, ref := range []string{good, "file://" + good, "FILE://" + good} {
		_, meta, err := fetcher.FetchImage(context.Background(), ref)
		if err != nil {
			t.Fatalf("FetchImage(%s) failed: %v", ref, err)
		}
		if meta.Width != 5 || meta.Height != 4 {
			t.Errorf("Unexpected metadata %+v", meta)
		}
	}

	tests := []struct {
		name     string
		ref      string
		wantType apperrors.ErrorType
	}{
		{"missing file", filepath.Join(dir, "missing.png"), apperrors.ErrorTypeNotFound},
		{"unsupported extension", filepath.Join(dir, "sheet.tiff"), apperrors.ErrorTypeValidation},
		{"undecodable", corrupt, apperrors.ErrorTypePreprocessing},
		{"remote file host", "file://example.com/x.png", apperrors.ErrorTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := fetcher.FetchImage(context.Background(), tt.ref)
			if !apperrors.IsType(err, tt.wantType) {
				t.Errorf("Expected %s error, got %v", tt.wantType, err)
			}
		})
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"plain path", "/data/sheet.png", "/data/sheet.png", false},
		{"file URL", "file:///data/sheet.png", "/data/sheet.png", false},
		{"upper case scheme", "FILE:///data/sheet.png", "/data/sheet.png", false},
		{"mixed case localhost", "File://LocalHost/data/sheet.png", "/data/sheet.png", false},
		{"remote host", "FILE://example.com/sheet.png", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := localPath(tt.ref)
			if tt.wantErr {
				if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("localPath(%q) = %q, %v; want %q", tt.ref, got, err, tt.want)
			}
		})
	}
}

func TestParseBlobRef(t *testing.T) {
	container, name, err := ParseBlobRef("azblob://scans/2024/q3.png")
	if err != nil {
		t.Fatalf("ParseBlobRef failed: %v", err)
	}
	if container != "scans" || name != "2024/q3.png" {
		t.Errorf("Expected scans / 2024/q3.png, got %s / %s", container, name)
	}

	for _, ref := range []string{"https://x/y", "azblob://scans", "azblob:///q3.png"} {
		if _, _, err := ParseBlobRef(ref); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("ParseBlobRef(%q): expected validation error, got %v", ref, err)
		}
	}
}

func TestNewAzureStorage_InvalidKey(t *testing.T) {
	if _, err := NewAzureStorage("account", "not base64!"); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

type stubFetcher struct {
	name string
	refs []string
}

func (s *stubFetcher) FetchImage(ctx context.Context, ref string) (image.Image, models.ImageMetadata, error) {
	s.refs = append(s.refs, ref)
	return image.NewNRGBA(image.Rect(0, 0, 1, 1)), models.ImageMetadata{Width: 1, Height: 1, Format: s.name}, nil
}

func TestSchemeRouter(t *testing.T) {
	web := &stubFetcher{name: "web"}
	local := &stubFetcher{name: "local"}
	router := NewSchemeRouter().Register("http", web).Register("HTTPS", web).Register("file", local)

	tests := []struct {
		ref  string
		want string
	}{
		{"http://example.com/a.png", "web"},
		{"https://example.com/a.png", "web"},
		{"/tmp/a.png", "local"},
		{"file:///tmp/a.png", "local"},
		{"relative/a.png", "local"},
	}
	for _, tt := range tests {
		_, meta, err := router.FetchImage(context.Background(), tt.ref)
		if err != nil {
			t.Fatalf("FetchImage(%s) failed: %v", tt.ref, err)
		}
		if meta.Format != tt.want {
			t.Errorf("FetchImage(%s) routed to %s, want %s", tt.ref, meta.Format, tt.want)
		}
	}

	if _, _, err := router.FetchImage(context.Background(), "azblob://c/b.png"); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for unregistered scheme, got %v", err)
	}

	schemes := router.Schemes()
	sort.Strings(schemes)
	if len(schemes) != 3 || schemes[0] != "file" || schemes[1] != "http" || schemes[2] != "https" {
		t.Errorf("Unexpected schemes %v", schemes)
	}
}
