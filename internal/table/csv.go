package table

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// utf8BOM lets spreadsheet applications detect UTF-8 content.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes t as spreadsheet-friendly CSV, header row first.
func WriteCSV(w io.Writer, t models.TableData) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
