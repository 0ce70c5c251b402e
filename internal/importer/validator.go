package importer

import (
	"fmt"
	"net/url"
	"strings"

	"choma/internal/model"
	"choma/internal/parser"
	"choma/internal/service/calculator"
)

type bound int

const (
	boundNonNegative bound = iota
	boundPositive
)

var nutritionFields = []parser.FieldKey{
	parser.FieldCalories,
	parser.FieldProtein,
	parser.FieldCarbs,
	parser.FieldFat,
	parser.FieldFiber,
	parser.FieldSugar,
	parser.FieldWeight,
}

// Validate 校验全部行，返回全部错误（不短路）
// firstDataRow 为首个数据行在表格中的行号；行自带 RowNumber 时以其为准。
// 返回空切片是进入转换阶段的唯一条件。
func Validate(rows []parser.RawImportRow, firstDataRow int) []model.ValidationError {
	errs := []model.ValidationError{}
	for i := range rows {
		rowNumber := rows[i].RowNumber
		if rowNumber <= 0 {
			rowNumber = firstDataRow + i
		}
		errs = append(errs, validateRow(&rows[i], rowNumber)...)
	}
	return errs
}

func validateRow(row *parser.RawImportRow, rowNumber int) []model.ValidationError {
	v := rowValidator{row: row, number: rowNumber}

	if row.Get(parser.FieldName).Blank() {
		v.fail(parser.FieldName, "Meal Name is required", "")
	}

	v.requiredMoney(parser.FieldIngredientsCost, boundPositive)
	v.requiredMoney(parser.FieldPackaging, boundNonNegative)
	v.requiredMoney(parser.FieldDelivery, boundNonNegative)
	v.requiredMoney(parser.FieldPlatformFee, boundNonNegative)

	if c := row.Get(parser.FieldCategory); c.Present {
		if _, ok := model.ParseCategory(c.Raw); !ok {
			v.fail(parser.FieldCategory, fmt.Sprintf("Category must be one of: %s", categoryList()), c.Raw)
		}
	}

	for _, key := range nutritionFields {
		v.optionalNumber(key, boundNonNegative)
	}
	v.optionalNumber(parser.FieldPreparationTime, boundPositive)

	if c := row.Get(parser.FieldAvailable); c.Present {
		if _, ok := parser.ParseBoolToken(c.Raw); !ok {
			v.fail(parser.FieldAvailable, fmt.Sprintf("Available must be one of: %s", strings.Join(parser.BoolTokens, ", ")), c.Raw)
		}
	}

	if c := row.Get(parser.FieldImage); c.Present && !isHTTPURL(c.Raw) {
		v.fail(parser.FieldImage, "Image URL must be an absolute http or https URL", c.Raw)
	}

	return v.errs
}

type rowValidator struct {
	row    *parser.RawImportRow
	number int
	errs   []model.ValidationError
}

func (v *rowValidator) fail(key parser.FieldKey, msg, value string) {
	v.errs = append(v.errs, model.ValidationError{
		Row:     v.number,
		Field:   parser.HeaderOf(key),
		Message: msg,
		Value:   value,
	})
}

// requiredMoney 金额按两位小数取整后再比较边界，与计价使用同一精度
func (v *rowValidator) requiredMoney(key parser.FieldKey, b bound) {
	c := v.row.Get(key)
	if !c.Present {
		v.fail(key, fmt.Sprintf("%s is required", parser.HeaderOf(key)), "")
		return
	}
	if c.IsNumber {
		c.Number = calculator.RoundMoney(c.Number)
	}
	v.checkNumber(key, c, b)
}

func (v *rowValidator) optionalNumber(key parser.FieldKey, b bound) {
	c := v.row.Get(key)
	if !c.Present {
		return
	}
	v.checkNumber(key, c, b)
}

func (v *rowValidator) checkNumber(key parser.FieldKey, c parser.Cell, b bound) {
	header := parser.HeaderOf(key)
	if !c.IsNumber {
		v.fail(key, fmt.Sprintf("%s must be a number", header), c.Raw)
		return
	}
	switch b {
	case boundPositive:
		if c.Number <= 0 {
			v.fail(key, fmt.Sprintf("%s must be greater than 0", header), c.Raw)
		}
	default:
		if c.Number < 0 {
			v.fail(key, fmt.Sprintf("%s must be 0 or more", header), c.Raw)
		}
	}
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func categoryList() string {
	names := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
