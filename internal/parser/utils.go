package parser

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// thousandsPattern 合法的千分位写法，如 1,500 或 -12,345.67
var thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

var (
	// ErrNoDataRows 少于两行（没有表头 + 数据）
	ErrNoDataRows = errors.New("spreadsheet must contain a header row and at least one data row")
)

// ParseGrid 将首个工作表的单元格网格解析为 RawImportRow 列表
// 第一行为表头；空行与已识别列全空的行视为格式残留并跳过。
func ParseGrid(grid [][]string) ([]RawImportRow, error) {
	if len(grid) < 2 {
		return nil, ErrNoDataRows
	}

	mapper, err := NewFieldMapper(grid[0])
	if err != nil {
		return nil, err
	}

	rows := make([]RawImportRow, 0, len(grid)-1)
	for i, row := range grid[1:] {
		if IsBlankRow(row) || mapper.blankMapped(row) {
			continue
		}
		// 表头为第 1 行
		rows = append(rows, mapper.MapRow(row, i+2))
	}

	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	return rows, nil
}

// IsBlankRow 整行为空
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseNumber 数值解析：去掉 ₦ 符号、空白与千分位；失败返回 NaN
// 逗号只在千分位位置才被接受，"1,5" 这类小数逗号视为非数字。
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "₦", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return math.NaN(), false
	}
	if strings.Contains(s, ",") {
		if !thousandsPattern.MatchString(s) {
			return math.NaN(), false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return math.NaN(), false
	}
	return f, true
}

// SplitList 逗号分隔列表：去空白、去空项
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var boolTokens = map[string]bool{
	"TRUE":  true,
	"true":  true,
	"1":     true,
	"FALSE": false,
	"false": false,
	"0":     false,
}

// BoolTokens 可用性字段接受的取值
var BoolTokens = []string{"TRUE", "FALSE", "true", "false", "1", "0"}

// ParseBoolToken 只接受固定的真假标记
func ParseBoolToken(s string) (value bool, ok bool) {
	value, ok = boolTokens[s]
	return value, ok
}
