package excel

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyFile 上传内容为空
	ErrEmptyFile = errors.New("uploaded file is empty")
	// ErrUnreadable 无法解析的表格文件
	ErrUnreadable = errors.New("unreadable spreadsheet")
	// ErrNoSheets 工作簿没有任何工作表
	ErrNoSheets = errors.New("workbook has no sheets")
)

// Format 表格文件格式
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// DetectFormat 根据文件名判断格式，未知扩展名按 xlsx 处理
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".xls":
		return FormatXLS
	default:
		return FormatXLSX
	}
}

// ReadFirstSheet 读取首个工作表为单元格网格（表头在第一行），其余工作表忽略
func ReadFirstSheet(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	switch DetectFormat(filename) {
	case FormatCSV:
		return readCSV(data)
	case FormatXLS:
		return readXLS(data)
	default:
		return readXLSX(data)
	}
}

func readXLSX(data []byte) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	// 读取原始值，避免数字格式（千分位、货币符号）影响解析
	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return rows, nil
}

func readXLS(data []byte) (grid [][]string, err error) {
	// 损坏的 BIFF 文件会在库内部 panic
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoSheets
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoSheets
	}

	grid = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		grid = append(grid, trimTrailingEmpty(cells))
	}
	return trimTrailingEmptyRows(grid), nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return rows, nil
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && strings.TrimSpace(cells[end-1]) == "" {
		end--
	}
	return cells[:end]
}

func trimTrailingEmptyRows(grid [][]string) [][]string {
	end := len(grid)
	for end > 0 && len(grid[end-1]) == 0 {
		end--
	}
	return grid[:end]
}
