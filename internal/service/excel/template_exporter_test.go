package excel_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"choma/internal/parser"
	"choma/internal/service/excel"
)

func TestGenerateTemplate_HeaderMatchesFieldTable(t *testing.T) {
	t.Parallel()

	wb, err := excel.GenerateTemplate(0)
	if err != nil {
		t.Fatalf("GenerateTemplate failed: %v", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) != 2 || sheets[0] != excel.TemplateSheet || sheets[1] != excel.InstructionsSheet {
		t.Fatalf("sheets=%v", sheets)
	}

	rows, err := wb.GetRows(excel.TemplateSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d, want header only", len(rows))
	}
	specs := parser.Specs()
	if len(rows[0]) != len(specs) {
		t.Fatalf("header width=%d, want %d", len(rows[0]), len(specs))
	}
	for i, spec := range specs {
		if rows[0][i] != spec.Header {
			t.Fatalf("header[%d]=%q, want %q", i, rows[0][i], spec.Header)
		}
	}
}

func TestGenerateTemplate_ExamplesRoundTripThroughParser(t *testing.T) {
	t.Parallel()

	wb, err := excel.GenerateTemplate(5)
	if err != nil {
		t.Fatalf("GenerateTemplate failed: %v", err)
	}
	buf, err := wb.WriteToBuffer()
	wb.Close()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}

	grid, err := excel.ReadFirstSheet(bytes.NewReader(buf.Bytes()), excel.TemplateFilename)
	if err != nil {
		t.Fatalf("ReadFirstSheet failed: %v", err)
	}
	rows, err := parser.ParseGrid(grid)
	if err != nil {
		t.Fatalf("ParseGrid failed: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows=%d, want 5", len(rows))
	}

	first := rows[0]
	if first.Text(parser.FieldName) != "Jollof Rice with Chicken" {
		t.Fatalf("name=%q", first.Text(parser.FieldName))
	}
	if got := first.Number(parser.FieldIngredientsCost); got != 1500 {
		t.Fatalf("ingredients=%v, want 1500", got)
	}
	if got := first.Number(parser.FieldPreparationTime); got != 60 {
		t.Fatalf("prep=%v, want 60", got)
	}
	if first.Text(parser.FieldAvailable) != "TRUE" {
		t.Fatalf("available=%q", first.Text(parser.FieldAvailable))
	}

	seen := map[string]bool{}
	for _, r := range rows {
		name := r.Text(parser.FieldName)
		if seen[name] {
			t.Fatalf("duplicate example name %q", name)
		}
		seen[name] = true
	}
}

func TestGenerateTemplate_NumericCellsAreNumbers(t *testing.T) {
	t.Parallel()

	wb, err := excel.GenerateTemplate(1)
	if err != nil {
		t.Fatalf("GenerateTemplate failed: %v", err)
	}
	defer wb.Close()

	// Ingredients (₦) 为第 3 列
	typ, err := wb.GetCellType(excel.TemplateSheet, "C2")
	if err != nil {
		t.Fatalf("GetCellType failed: %v", err)
	}
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Fatalf("ingredients cell stored as text")
	}
}
