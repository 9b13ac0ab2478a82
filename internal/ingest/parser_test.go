package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseFile_CSV(t *testing.T) {
	t.Run("Headers And Values Trimmed", func(t *testing.T) {
		csvData := " Roll No ,Name, Total Marks\n101, Asha ,250\n"
		rows, err := ParseFile("marks.csv", strings.NewReader(csvData))
		if err != nil {
			t.Fatalf("ParseFile failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		if rows[0]["Roll No"] != "101" {
			t.Errorf("expected trimmed header 'Roll No' with value 101, got %q", rows[0]["Roll No"])
		}
		if rows[0]["Name"] != "Asha" {
			t.Errorf("expected trimmed value 'Asha', got %q", rows[0]["Name"])
		}
	})

	t.Run("Blank Rows Skipped", func(t *testing.T) {
		csvData := "Roll No,Name\n101,Asha\n,\n102,Ravi\n"
		rows, err := ParseFile("marks.csv", strings.NewReader(csvData))
		if err != nil {
			t.Fatalf("ParseFile failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows after skipping blanks, got %d", len(rows))
		}
	})

	t.Run("Missing Cells Become Empty Strings", func(t *testing.T) {
		csvData := "Roll No,Name,Total Marks\n101,Asha\n"
		rows, err := ParseFile("marks.csv", strings.NewReader(csvData))
		if err != nil {
			t.Fatalf("ParseFile failed: %v", err)
		}
		if v, ok := rows[0]["Total Marks"]; !ok || v != "" {
			t.Errorf("expected empty string for missing cell, got %q (present=%t)", v, ok)
		}
	})

	t.Run("Header Only File Yields No Rows", func(t *testing.T) {
		rows, err := ParseFile("marks.csv", strings.NewReader("Roll No,Name\n"))
		if err != nil {
			t.Fatalf("ParseFile failed: %v", err)
		}
		if len(rows) != 0 {
			t.Fatalf("expected 0 rows, got %d", len(rows))
		}
	})

	t.Run("No Coercion At Parse Stage", func(t *testing.T) {
		csvData := "Roll No,Total Marks\n101,not-a-number\n"
		rows, err := ParseFile("marks.csv", strings.NewReader(csvData))
		if err != nil {
			t.Fatalf("ParseFile failed: %v", err)
		}
		if rows[0]["Total Marks"] != "not-a-number" {
			t.Errorf("parser must keep raw cell values, got %q", rows[0]["Total Marks"])
		}
	})
}

func TestParseFile_Excel(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	cells := [][]interface{}{
		{"ROLL NO", "NAME OF THE STUDENT", "TM"},
		{"201", "Ravi", "180"},
		{"", "", ""},
		{"202", "Meena", ""},
	}
	for i, rowCells := range cells {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow(sheet, cell, &rowCells); err != nil {
			t.Fatalf("failed to build test workbook: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("failed to serialize test workbook: %v", err)
	}

	rows, err := ParseFile("marks.xlsx", bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (blank skipped), got %d", len(rows))
	}
	if rows[0]["ROLL NO"] != "201" || rows[1]["ROLL NO"] != "202" {
		t.Errorf("unexpected roll numbers: %q, %q", rows[0]["ROLL NO"], rows[1]["ROLL NO"])
	}
	if rows[1]["TM"] != "" {
		t.Errorf("expected empty TM cell, got %q", rows[1]["TM"])
	}
}

func TestParseFile_UnsupportedFormat(t *testing.T) {
	for _, name := range []string{"marks.pdf", "marks.txt", "marks"} {
		_, err := ParseFile(name, strings.NewReader("data"))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}
