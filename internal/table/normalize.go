package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// Normalize reshapes raw table data into a rectangular grid of trimmed strings.
//
// raw is expected to be a sequence of rows, each a sequence of cells of any type.
// Rows that are not sequences are dropped. Every emitted row is padded with empty
// strings to the width of the longest sequence row. A raw value that is not a
// sequence, or is empty, yields an empty table.
func Normalize(raw interface{}) models.TableData {
	rows, ok := asSequence(raw)
	if !ok || len(rows) == 0 {
		return models.TableData{}
	}

	seqRows := make([][]interface{}, 0, len(rows))
	maxCols := 0
	for _, row := range rows {
		cells, ok := asSequence(row)
		if !ok {
			continue
		}
		if len(cells) > maxCols {
			maxCols = len(cells)
		}
		seqRows = append(seqRows, cells)
	}

	out := make(models.TableData, 0, len(seqRows))
	for _, cells := range seqRows {
		row := make([]string, maxCols)
		for i, cell := range cells {
			row[i] = CellString(cell)
		}
		out = append(out, row)
	}
	return out
}

// CellString renders a decoded JSON value as a trimmed cell.
// nil becomes "", numbers keep their literal text and composite values are
// rendered as compact JSON.
func CellString(v interface{}) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case json.Number:
		s = val.String()
	case bool:
		s = strconv.FormatBool(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case fmt.Stringer:
		s = val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprint(val)
		} else {
			s = string(b)
		}
	}
	return strings.TrimSpace(s)
}

// asSequence reports whether v is a row-like sequence and returns its elements.
func asSequence(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case [][]interface{}:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []string:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case [][]string:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case models.TableData:
		return asSequence([][]string(s))
	default:
		return nil, false
	}
}
