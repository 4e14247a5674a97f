package validation

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
)

func TestFileValidator_ValidateExtension(t *testing.T) {
	v := NewFileValidator(nil)

	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{"png", "scan.png", false},
		{"upper case jpeg", "SCAN.JPEG", false},
		{"bmp", "dir/sheet.bmp", false},
		{"gif", "a.gif", false},
		{"webp unsupported", "a.webp", true},
		{"no extension", "README", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateExtension(tt.file)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExtension(%q) error = %v, wantErr %v", tt.file, err, tt.wantErr)
			}
			if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestFileValidator_CustomFormats(t *testing.T) {
	v := NewFileValidator([]string{"PNG", " .tif "})
	if err := v.ValidateExtension("x.png"); err != nil {
		t.Errorf("Expected png to be accepted, got %v", err)
	}
	if err := v.ValidateExtension("x.tif"); err != nil {
		t.Errorf("Expected tif to be accepted, got %v", err)
	}
	if err := v.ValidateExtension("x.jpg"); err == nil {
		t.Error("Expected jpg to be rejected")
	}
}

func TestFileValidator_ValidateImageFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "table.png")
	bad := filepath.Join(dir, "notes.txt")
	for _, p := range []string{good, bad} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	v := NewFileValidator(nil)

	if err := v.ValidateImageFile(good); err != nil {
		t.Errorf("Expected %s to pass, got %v", good, err)
	}
	if err := v.ValidateImageFile(bad); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for %s, got %v", bad, err)
	}
	if err := v.ValidateImageFile(filepath.Join(dir, "missing.png")); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected not_found error for missing file, got %v", err)
	}
	if err := v.ValidateImageFile(dir); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for directory, got %v", err)
	}
	if err := v.ValidateImageFile(""); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for empty path, got %v", err)
	}
}
