package parser

import (
	"fmt"
	"strings"
)

var fieldSpecs = [fieldCount]FieldSpec{
	FieldName:            {Key: FieldName, Header: "Meal Name", Name: "name", Kind: KindText, RequiredColumn: true},
	FieldDescription:     {Key: FieldDescription, Header: "Description", Name: "description", Kind: KindText},
	FieldIngredientsCost: {Key: FieldIngredientsCost, Header: "Ingredients (₦)", Name: "ingredientsCost", Kind: KindNumber, RequiredColumn: true},
	FieldPackaging:       {Key: FieldPackaging, Header: "Packaging (₦)", Name: "packaging", Kind: KindNumber, RequiredColumn: true},
	FieldDelivery:        {Key: FieldDelivery, Header: "Delivery (₦)", Name: "delivery", Kind: KindNumber, RequiredColumn: true},
	FieldPlatformFee:     {Key: FieldPlatformFee, Header: "Platform Fee (₦)", Name: "platformFee", Kind: KindNumber, RequiredColumn: true},
	FieldCategory:        {Key: FieldCategory, Header: "Category", Name: "category", Kind: KindText},
	FieldCalories:        {Key: FieldCalories, Header: "Calories", Name: "calories", Kind: KindNumber},
	FieldProtein:         {Key: FieldProtein, Header: "Protein (g)", Name: "protein", Kind: KindNumber},
	FieldCarbs:           {Key: FieldCarbs, Header: "Carbs (g)", Name: "carbs", Kind: KindNumber},
	FieldFat:             {Key: FieldFat, Header: "Fat (g)", Name: "fat", Kind: KindNumber},
	FieldFiber:           {Key: FieldFiber, Header: "Fiber (g)", Name: "fiber", Kind: KindNumber},
	FieldSugar:           {Key: FieldSugar, Header: "Sugar (g)", Name: "sugar", Kind: KindNumber},
	FieldWeight:          {Key: FieldWeight, Header: "Weight (g)", Name: "weight", Kind: KindNumber},
	FieldIngredients:     {Key: FieldIngredients, Header: "Ingredients", Name: "ingredients", Kind: KindText},
	FieldPreparationTime: {Key: FieldPreparationTime, Header: "Preparation Time (mins)", Name: "preparationTime", Kind: KindNumber},
	FieldAllergens:       {Key: FieldAllergens, Header: "Allergens", Name: "allergens", Kind: KindList},
	FieldTags:            {Key: FieldTags, Header: "Tags", Name: "tags", Kind: KindList},
	FieldAvailable:       {Key: FieldAvailable, Header: "Available", Name: "isAvailable", Kind: KindBool},
	FieldAdminNotes:      {Key: FieldAdminNotes, Header: "Admin Notes", Name: "adminNotes", Kind: KindText},
	FieldChefNotes:       {Key: FieldChefNotes, Header: "Chef Notes", Name: "chefNotes", Kind: KindText},
	FieldImage:           {Key: FieldImage, Header: "Image URL", Name: "image", Kind: KindURL},
}

var headerIndex = buildHeaderIndex()

func buildHeaderIndex() map[string]FieldKey {
	m := make(map[string]FieldKey, fieldCount)
	for _, spec := range fieldSpecs {
		m[spec.Header] = spec.Key
	}
	return m
}

// Specs 全部字段定义（模板列顺序）
func Specs() []FieldSpec {
	out := make([]FieldSpec, 0, fieldCount)
	for _, spec := range fieldSpecs {
		out = append(out, spec)
	}
	return out
}

// Spec 单个字段定义
func Spec(key FieldKey) FieldSpec {
	if key < 0 || key >= fieldCount {
		return FieldSpec{}
	}
	return fieldSpecs[key]
}

// HeaderOf 字段对应的表头文本
func HeaderOf(key FieldKey) string {
	return Spec(key).Header
}

// LookupHeader 表头精确匹配（区分大小写与空白）
func LookupHeader(header string) (FieldKey, bool) {
	key, ok := headerIndex[header]
	return key, ok
}

// MissingHeadersError 缺少必需列
type MissingHeadersError struct {
	Headers []string
}

func (e *MissingHeadersError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Headers, ", "))
}

// FieldMapper 表头 -> 字段映射器
type FieldMapper struct {
	columns map[int]FieldKey
}

// NewFieldMapper 根据表头行建立列映射；未知表头忽略，缺少必需列时报错
func NewFieldMapper(header []string) (*FieldMapper, error) {
	m := &FieldMapper{columns: make(map[int]FieldKey)}
	seen := make(map[FieldKey]bool)

	for idx, col := range header {
		key, ok := LookupHeader(col)
		if !ok {
			continue
		}
		// 重复列以第一列为准
		if seen[key] {
			continue
		}
		seen[key] = true
		m.columns[idx] = key
	}

	var missing []string
	for _, spec := range fieldSpecs {
		if spec.RequiredColumn && !seen[spec.Key] {
			missing = append(missing, spec.Header)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingHeadersError{Headers: missing}
	}

	return m, nil
}

// MapRow 将一行单元格映射为 RawImportRow
func (m *FieldMapper) MapRow(row []string, rowNumber int) RawImportRow {
	out := RawImportRow{RowNumber: rowNumber}
	for idx, key := range m.columns {
		if idx >= len(row) {
			continue
		}
		out.Set(key, newCell(row[idx], fieldSpecs[key].Kind))
	}
	return out
}

// MappedColumns 已识别的列数
func (m *FieldMapper) MappedColumns() int {
	return len(m.columns)
}

// blankMapped 已识别列全部为空（表格格式残留行）
func (m *FieldMapper) blankMapped(row []string) bool {
	for idx := range m.columns {
		if idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			return false
		}
	}
	return true
}

func newCell(raw string, kind FieldKind) Cell {
	raw = strings.TrimSpace(raw)
	c := Cell{Raw: raw, Present: raw != ""}
	if kind == KindNumber && c.Present {
		c.Number, c.IsNumber = ParseNumber(raw)
	}
	return c
}
