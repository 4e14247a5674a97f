package repository

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/table"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// MarshalIndent encodes v with two-space indentation, leaving non-ASCII and HTML characters unescaped
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveResultToFile writes result as pretty-printed JSON, creating parent directories
func SaveResultToFile(path string, result *models.AnalysisResult) error {
	data, err := MarshalIndent(result)
	if err != nil {
		return apperrors.NewInternalError("failed to encode result", err)
	}
	if err := writeFile(path, data); err != nil {
		return apperrors.NewInternalError("failed to save result to "+path, err)
	}
	return nil
}

// LoadResultFromFile reads a result written by SaveResultToFile.
// table_data is normalized on the way in, so hand-edited files stay rectangular.
func LoadResultFromFile(path string) (*models.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("result file "+path+" does not exist", err)
		}
		return nil, apperrors.NewInternalError("failed to read "+path, err)
	}

	var raw struct {
		IsTable     bool        `json:"is_table"`
		Confidence  float64     `json:"confidence"`
		TableData   interface{} `json:"table_data"`
		Description string      `json:"description"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.NewValidationError("invalid result file "+path, err)
	}

	return &models.AnalysisResult{
		IsTable:     raw.IsTable,
		Confidence:  raw.Confidence,
		TableData:   table.Normalize(raw.TableData),
		Description: raw.Description,
	}, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
