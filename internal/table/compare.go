package table

import (
	"strings"

	"github.com/anime-shed/table-inspector-go/pkg/models"
	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// CellMismatch describes a cell whose content differs from the reference
type CellMismatch struct {
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Comparison scores an extracted table against a reference table
type Comparison struct {
	ShapeMatch   bool `json:"shape_match"`
	ExpectedRows int  `json:"expected_rows"`
	ExpectedCols int  `json:"expected_cols"`
	ActualRows   int  `json:"actual_rows"`
	ActualCols   int  `json:"actual_cols"`

	// CellAccuracy is the share of reference cells reproduced exactly
	CellAccuracy float64 `json:"cell_accuracy"`

	// Error rates over the row-major text of both tables
	CharacterErrorRate float64 `json:"character_error_rate"`
	WordErrorRate      float64 `json:"word_error_rate"`

	Mismatches []CellMismatch `json:"mismatches,omitempty"`
}

// Compare scores actual against expected. Both tables are expected to be normalized.
// Cells missing from actual count as mismatches against an empty string.
func Compare(expected, actual models.TableData) Comparison {
	c := Comparison{
		ExpectedRows: expected.Rows(),
		ExpectedCols: expected.Cols(),
		ActualRows:   actual.Rows(),
		ActualCols:   actual.Cols(),
	}
	c.ShapeMatch = c.ExpectedRows == c.ActualRows && c.ExpectedCols == c.ActualCols

	total, matched := 0, 0
	for r, row := range expected {
		for col, want := range row {
			total++
			got := cellAt(actual, r, col)
			if got == want {
				matched++
				continue
			}
			c.Mismatches = append(c.Mismatches, CellMismatch{Row: r, Col: col, Expected: want, Actual: got})
		}
	}
	if total > 0 {
		c.CellAccuracy = float64(matched) / float64(total)
	} else if actual.Rows() == 0 {
		c.CellAccuracy = 1
	}

	refText, hypText := flatten(expected), flatten(actual)
	c.CharacterErrorRate = characterErrorRate(refText, hypText)
	c.WordErrorRate = wordErrorRate(refText, hypText)
	return c
}

func cellAt(t models.TableData, r, c int) string {
	if r < len(t) && c < len(t[r]) {
		return t[r][c]
	}
	return ""
}

// flatten joins cells row-major, tab separated within a row and newline between rows.
func flatten(t models.TableData) string {
	lines := make([]string, len(t))
	for i, row := range t {
		lines[i] = strings.Join(row, "\t")
	}
	return strings.Join(lines, "\n")
}

func characterErrorRate(ref, hyp string) float64 {
	refLen := len([]rune(ref))
	if refLen == 0 {
		if len(hyp) == 0 {
			return 0
		}
		return 1
	}
	return float64(levenshtein.Distance(ref, hyp)) / float64(refLen)
}

func wordErrorRate(ref, hyp string) float64 {
	refWords := strings.Fields(ref)
	hypWords := strings.Fields(hyp)
	if len(refWords) == 0 {
		if len(hypWords) == 0 {
			return 0
		}
		return 1
	}
	rate, _ := wer.WER(refWords, hypWords)
	return rate
}
