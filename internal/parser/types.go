package parser

import "math"

// FieldKey 统一口径字段键（封闭枚举）
type FieldKey int

const (
	FieldName FieldKey = iota
	FieldDescription
	FieldIngredientsCost
	FieldPackaging
	FieldDelivery
	FieldPlatformFee
	FieldCategory
	FieldCalories
	FieldProtein
	FieldCarbs
	FieldFat
	FieldFiber
	FieldSugar
	FieldWeight
	FieldIngredients
	FieldPreparationTime
	FieldAllergens
	FieldTags
	FieldAvailable
	FieldAdminNotes
	FieldChefNotes
	FieldImage

	fieldCount
)

// FieldKind 字段类型
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindBool
	KindURL
	KindList
)

// FieldSpec 字段定义：表头文本、键名、类型、列是否必需
type FieldSpec struct {
	Key            FieldKey
	Header         string
	Name           string
	Kind           FieldKind
	RequiredColumn bool
}

// Cell 单元格原始值与数值解析结果
type Cell struct {
	Raw      string  `json:"raw"`
	Present  bool    `json:"present"`
	Number   float64 `json:"number"`
	IsNumber bool    `json:"isNumber"`
}

// Blank 单元格为空或全空白
func (c Cell) Blank() bool {
	return !c.Present
}

// NaN 数值字段填写了但无法解析
func (c Cell) NaN() bool {
	return c.Present && math.IsNaN(c.Number)
}

// RawImportRow 表格中的一行数据，按 FieldKey 定长存放
type RawImportRow struct {
	RowNumber int
	Cells     [fieldCount]Cell
}

// Get 读取字段
func (r *RawImportRow) Get(key FieldKey) Cell {
	if key < 0 || key >= fieldCount {
		return Cell{}
	}
	return r.Cells[key]
}

// Set 写入字段
func (r *RawImportRow) Set(key FieldKey, c Cell) {
	if key < 0 || key >= fieldCount {
		return
	}
	r.Cells[key] = c
}

// Text 字段的去空白文本
func (r *RawImportRow) Text(key FieldKey) string {
	return r.Get(key).Raw
}

// Number 数值字段；缺省或非数值返回 0
func (r *RawImportRow) Number(key FieldKey) float64 {
	c := r.Get(key)
	if !c.Present || math.IsNaN(c.Number) {
		return 0
	}
	return c.Number
}
