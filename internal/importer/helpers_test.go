package importer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"choma/internal/parser"
)

var testHeader = []string{
	"Meal Name",
	"Description",
	"Ingredients (₦)",
	"Packaging (₦)",
	"Delivery (₦)",
	"Platform Fee (₦)",
	"Category",
	"Calories",
	"Preparation Time (mins)",
	"Allergens",
	"Tags",
	"Available",
	"Image URL",
}

// mealRow 按 testHeader 的列顺序构造一行
func mealRow(name, ingredients, packaging, delivery, fee, category, prep, tags, available string) []string {
	return []string{name, "", ingredients, packaging, delivery, fee, category, "", prep, "", tags, available, ""}
}

func parseRows(t *testing.T, data ...[]string) []parser.RawImportRow {
	t.Helper()
	grid := append([][]string{testHeader}, data...)
	rows, err := parser.ParseGrid(grid)
	require.NoError(t, err)
	return rows
}
