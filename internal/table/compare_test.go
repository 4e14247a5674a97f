package table

import (
	"bytes"
	"math"
	"testing"

	"github.com/anime-shed/table-inspector-go/pkg/models"
)

func TestCompare_Identical(t *testing.T) {
	tbl := models.TableData{{"Name", "Age"}, {"Alice", "30"}}

	c := Compare(tbl, tbl)
	if !c.ShapeMatch {
		t.Error("Expected shapes to match")
	}
	if c.CellAccuracy != 1 {
		t.Errorf("Expected accuracy 1, got %f", c.CellAccuracy)
	}
	if c.CharacterErrorRate != 0 || c.WordErrorRate != 0 {
		t.Errorf("Expected zero error rates, got CER=%f WER=%f", c.CharacterErrorRate, c.WordErrorRate)
	}
	if len(c.Mismatches) != 0 {
		t.Errorf("Expected no mismatches, got %v", c.Mismatches)
	}
}

func TestCompare_CellMismatch(t *testing.T) {
	expected := models.TableData{{"Name", "Age"}, {"Alice", "30"}}
	actual := models.TableData{{"Name", "Age"}, {"Alice", "31"}}

	c := Compare(expected, actual)
	if !c.ShapeMatch {
		t.Error("Expected shapes to match")
	}
	if math.Abs(c.CellAccuracy-0.75) > 1e-9 {
		t.Errorf("Expected accuracy 0.75, got %f", c.CellAccuracy)
	}
	if len(c.Mismatches) != 1 {
		t.Fatalf("Expected 1 mismatch, got %d", len(c.Mismatches))
	}
	m := c.Mismatches[0]
	if m.Row != 1 || m.Col != 1 || m.Expected != "30" || m.Actual != "31" {
		t.Errorf("Unexpected mismatch %+v", m)
	}
	// "Name\tAge\nAlice\t30" has 17 runes, one substitution
	if math.Abs(c.CharacterErrorRate-1.0/17.0) > 1e-9 {
		t.Errorf("Expected CER 1/17, got %f", c.CharacterErrorRate)
	}
	if c.WordErrorRate <= 0 {
		t.Errorf("Expected positive WER, got %f", c.WordErrorRate)
	}
}

func TestCompare_ShapeMismatch(t *testing.T) {
	expected := models.TableData{{"a", "b"}, {"c", "d"}}
	actual := models.TableData{{"a", "b"}}

	c := Compare(expected, actual)
	if c.ShapeMatch {
		t.Error("Expected shape mismatch")
	}
	if c.ActualRows != 1 || c.ExpectedRows != 2 {
		t.Errorf("Unexpected row counts: expected=%d actual=%d", c.ExpectedRows, c.ActualRows)
	}
	if math.Abs(c.CellAccuracy-0.5) > 1e-9 {
		t.Errorf("Expected accuracy 0.5, got %f", c.CellAccuracy)
	}
	if len(c.Mismatches) != 2 {
		t.Errorf("Expected 2 mismatches, got %d", len(c.Mismatches))
	}
}

func TestCompare_EmptyTables(t *testing.T) {
	c := Compare(models.TableData{}, models.TableData{})
	if !c.ShapeMatch || c.CellAccuracy != 1 || c.CharacterErrorRate != 0 || c.WordErrorRate != 0 {
		t.Errorf("Unexpected comparison of empty tables: %+v", c)
	}

	c = Compare(models.TableData{}, models.TableData{{"x"}})
	if c.CharacterErrorRate != 1 || c.WordErrorRate != 1 {
		t.Errorf("Expected error rates of 1 against an empty reference, got %+v", c)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	tbl := models.TableData{{"姓名", "备注"}, {"张三", "a,b"}}

	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := "\xEF\xBB\xBF姓名,备注\n张三,\"a,b\"\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}
