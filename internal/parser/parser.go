package parser

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/table"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// ExtractJSON returns the JSON value carried by a model reply.
//
// The whole content is tried first. Failing that, the substring between the first
// '{' and the last '}' is tried. Braces inside surrounding prose defeat the
// fallback; that limitation is accepted.
func ExtractJSON(content string) (interface{}, error) {
	v, err := decodeJSON(content)
	if err == nil {
		return v, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && start < end {
		v, ferr := decodeJSON(content[start : end+1])
		if ferr == nil {
			return v, nil
		}
		err = ferr
	}

	return nil, apperrors.NewResponseFormatError("could not extract a JSON object from the model's reply", err)
}

// ParseAnalysis extracts and decodes a model reply into a normalized result.
func ParseAnalysis(content string) (*models.AnalysisResult, error) {
	v, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	return DecodeResult(v)
}

// DecodeResult maps a decoded JSON value onto an AnalysisResult.
// The value must be an object; table_data is always normalized.
func DecodeResult(v interface{}) (*models.AnalysisResult, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, apperrors.NewResponseFormatError("model reply is not a JSON object", nil)
	}

	return &models.AnalysisResult{
		IsTable:     asBool(obj["is_table"]),
		Confidence:  asFloat(obj["confidence"]),
		TableData:   table.Normalize(obj["table_data"]),
		Description: table.CellString(obj["description"]),
	}, nil
}

// decodeJSON parses exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(s string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

func asBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	default:
		return false
	}
}

// asFloat converts a confidence value. Unparsable and non-finite values become 0.
func asFloat(v interface{}) float64 {
	var f float64
	switch val := v.(type) {
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return 0
		}
		f = n
	case float64:
		f = val
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
