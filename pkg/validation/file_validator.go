package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
)

// DefaultSupportedFormats lists the image extensions accepted by default
var DefaultSupportedFormats = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}

// FileValidator checks local image files and uploaded file names
type FileValidator struct {
	formats map[string]struct{}
}

// NewFileValidator creates a validator for the given extensions.
// Extensions are matched case-insensitively; a missing leading dot is added.
func NewFileValidator(formats []string) *FileValidator {
	if len(formats) == 0 {
		formats = DefaultSupportedFormats
	}
	set := make(map[string]struct{}, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		set[f] = struct{}{}
	}
	return &FileValidator{formats: set}
}

// ValidateExtension checks that name carries a supported image extension
func (v *FileValidator) ValidateExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return apperrors.NewValidationError("file has no extension", nil)
	}
	if _, ok := v.formats[ext]; !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported image format %q", ext), nil)
	}
	return nil
}

// ValidateImageFile checks that path exists, is a regular file and has a supported extension
func (v *FileValidator) ValidateImageFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return apperrors.NewValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.NewNotFoundError(fmt.Sprintf("image file %q does not exist", path), err)
		}
		return apperrors.NewValidationError("cannot access image file", err)
	}
	if !info.Mode().IsRegular() {
		return apperrors.NewValidationError(fmt.Sprintf("%q is not a regular file", path), nil)
	}

	return v.ValidateExtension(path)
}
