package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"choma/internal/model"
	"choma/internal/parser"
)

const (
	// TemplateSheet 数据工作表名（读取时只看第一个工作表）
	TemplateSheet = "Meals"
	// InstructionsSheet 填写说明工作表名
	InstructionsSheet = "Instructions"
	// TemplateFilename 下载时的文件名
	TemplateFilename = "meal-import-template.xlsx"

	// validationRows 下拉校验覆盖的行数
	validationRows = 1000
)

// exampleMeals 模板示例行
var exampleMeals = []map[parser.FieldKey]interface{}{
	{
		parser.FieldName:            "Jollof Rice with Chicken",
		parser.FieldDescription:     "Smoky party jollof served with grilled chicken",
		parser.FieldIngredientsCost: 1500.0,
		parser.FieldPackaging:       200.0,
		parser.FieldDelivery:        300.0,
		parser.FieldPlatformFee:     100.0,
		parser.FieldCategory:        string(model.CategoryLunch),
		parser.FieldCalories:        650.0,
		parser.FieldProtein:         35.0,
		parser.FieldCarbs:           80.0,
		parser.FieldFat:             18.0,
		parser.FieldFiber:           4.0,
		parser.FieldSugar:           6.0,
		parser.FieldWeight:          450.0,
		parser.FieldIngredients:     "Rice, tomatoes, pepper, chicken, onions",
		parser.FieldPreparationTime: 60.0,
		parser.FieldAllergens:       "",
		parser.FieldTags:            "spicy, rice, chicken",
		parser.FieldAvailable:       "TRUE",
		parser.FieldAdminNotes:      "",
		parser.FieldChefNotes:       "Use long grain parboiled rice",
		parser.FieldImage:           "https://example.com/images/jollof.jpg",
	},
	{
		parser.FieldName:            "Efo Riro with Pounded Yam",
		parser.FieldDescription:     "Rich spinach stew with assorted meat",
		parser.FieldIngredientsCost: 2200.0,
		parser.FieldPackaging:       250.0,
		parser.FieldDelivery:        300.0,
		parser.FieldPlatformFee:     150.0,
		parser.FieldCategory:        string(model.CategoryDinner),
		parser.FieldCalories:        720.0,
		parser.FieldProtein:         40.0,
		parser.FieldCarbs:           70.0,
		parser.FieldFat:             30.0,
		parser.FieldFiber:           9.0,
		parser.FieldSugar:           3.0,
		parser.FieldWeight:          600.0,
		parser.FieldIngredients:     "Spinach, palm oil, locust beans, beef, yam",
		parser.FieldPreparationTime: 90.0,
		parser.FieldAllergens:       "fish",
		parser.FieldTags:            "soup, swallow",
		parser.FieldAvailable:       "TRUE",
		parser.FieldAdminNotes:      "Weekend special",
		parser.FieldChefNotes:       "",
		parser.FieldImage:           "",
	},
	{
		parser.FieldName:            "Zobo Drink",
		parser.FieldDescription:     "Chilled hibiscus drink with ginger and pineapple",
		parser.FieldIngredientsCost: 300.0,
		parser.FieldPackaging:       100.0,
		parser.FieldDelivery:        200.0,
		parser.FieldPlatformFee:     50.0,
		parser.FieldCategory:        string(model.CategoryBeverage),
		parser.FieldCalories:        120.0,
		parser.FieldProtein:         0.0,
		parser.FieldCarbs:           30.0,
		parser.FieldFat:             0.0,
		parser.FieldFiber:           0.0,
		parser.FieldSugar:           25.0,
		parser.FieldWeight:          500.0,
		parser.FieldIngredients:     "Hibiscus leaves, ginger, pineapple",
		parser.FieldPreparationTime: 20.0,
		parser.FieldAllergens:       "",
		parser.FieldTags:            "drink, cold",
		parser.FieldAvailable:       "FALSE",
		parser.FieldAdminNotes:      "",
		parser.FieldChefNotes:       "",
		parser.FieldImage:           "",
	},
}

// fieldRules 说明页中每列的填写规则
var fieldRules = map[parser.FieldKey]string{
	parser.FieldName:            "Required. Must not be blank.",
	parser.FieldDescription:     "Optional. Free text.",
	parser.FieldIngredientsCost: "Required. Number greater than 0.",
	parser.FieldPackaging:       "Required. Number, 0 or more.",
	parser.FieldDelivery:        "Required. Number, 0 or more.",
	parser.FieldPlatformFee:     "Required. Number, 0 or more.",
	parser.FieldCategory:        "Optional. One of the listed categories.",
	parser.FieldCalories:        "Optional. Number, 0 or more.",
	parser.FieldProtein:         "Optional. Number, 0 or more.",
	parser.FieldCarbs:           "Optional. Number, 0 or more.",
	parser.FieldFat:             "Optional. Number, 0 or more.",
	parser.FieldFiber:           "Optional. Number, 0 or more.",
	parser.FieldSugar:           "Optional. Number, 0 or more.",
	parser.FieldWeight:          "Optional. Number, 0 or more.",
	parser.FieldIngredients:     "Optional. Free text.",
	parser.FieldPreparationTime: "Optional. Minutes, greater than 0. Drives cooking cost and complexity.",
	parser.FieldAllergens:       "Optional. Comma separated list.",
	parser.FieldTags:            "Optional. Comma separated list.",
	parser.FieldAvailable:       "Optional. TRUE, FALSE, true, false, 1 or 0. Defaults to TRUE.",
	parser.FieldAdminNotes:      "Optional. Free text.",
	parser.FieldChefNotes:       "Optional. Free text.",
	parser.FieldImage:           "Optional. Absolute http(s) URL.",
}

// GenerateTemplate 生成导入模板：表头 + examples 行示例 + 说明页
// examples <= 0 时只输出表头。
func GenerateTemplate(examples int) (*excelize.File, error) {
	wb := excelize.NewFile()
	if err := wb.SetSheetName("Sheet1", TemplateSheet); err != nil {
		wb.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeTemplateSheet(wb, examples); err != nil {
		wb.Close()
		return nil, err
	}
	if err := writeInstructionsSheet(wb); err != nil {
		wb.Close()
		return nil, err
	}

	wb.SetActiveSheet(0)
	return wb, nil
}

func writeTemplateSheet(wb *excelize.File, examples int) error {
	specs := parser.Specs()

	headerStyle, err := wb.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2E7D32"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := wb.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	header := make([]interface{}, 0, len(specs))
	for _, spec := range specs {
		header = append(header, spec.Header)
	}
	if err := wb.SetSheetRow(TemplateSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(specs))
	if err != nil {
		return err
	}
	if err := wb.SetCellStyle(TemplateSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := wb.SetColWidth(TemplateSheet, "A", lastCol, 18); err != nil {
		return err
	}

	for i := 0; i < examples; i++ {
		row := exampleRow(specs, i)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(TemplateSheet, cell, &row); err != nil {
			return fmt.Errorf("write example row %d: %w", i+1, err)
		}
	}

	// 金额列使用千分位格式；读取时取原始值，不影响解析
	lastRow := validationRows + 1
	for idx, spec := range specs {
		switch spec.Key {
		case parser.FieldIngredientsCost, parser.FieldPackaging, parser.FieldDelivery, parser.FieldPlatformFee:
		default:
			continue
		}
		col, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			return err
		}
		if err := wb.SetCellStyle(TemplateSheet, col+"2", fmt.Sprintf("%s%d", col, lastRow), moneyStyle); err != nil {
			return err
		}
	}

	if err := addDropList(wb, specs, parser.FieldCategory, categoryNames(), lastRow); err != nil {
		return err
	}
	if err := addDropList(wb, specs, parser.FieldAvailable, []string{"TRUE", "FALSE"}, lastRow); err != nil {
		return err
	}

	return wb.SetPanes(TemplateSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func exampleRow(specs []parser.FieldSpec, i int) []interface{} {
	src := exampleMeals[i%len(exampleMeals)]
	row := make([]interface{}, 0, len(specs))
	for _, spec := range specs {
		v := src[spec.Key]
		// 示例超过内置数量时，名称追加序号保持唯一
		if spec.Key == parser.FieldName && i >= len(exampleMeals) {
			v = fmt.Sprintf("%s %d", v, i/len(exampleMeals)+1)
		}
		row = append(row, v)
	}
	return row
}

func addDropList(wb *excelize.File, specs []parser.FieldSpec, key parser.FieldKey, values []string, lastRow int) error {
	for idx, spec := range specs {
		if spec.Key != key {
			continue
		}
		col, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			return err
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, lastRow)
		if err := dv.SetDropList(values); err != nil {
			return fmt.Errorf("drop list for %s: %w", spec.Header, err)
		}
		return wb.AddDataValidation(TemplateSheet, dv)
	}
	return nil
}

func writeInstructionsSheet(wb *excelize.File) error {
	if _, err := wb.NewSheet(InstructionsSheet); err != nil {
		return fmt.Errorf("create instructions sheet: %w", err)
	}

	lines := [][]interface{}{
		{"Column", "Rule"},
	}
	for _, spec := range parser.Specs() {
		lines = append(lines, []interface{}{spec.Header, fieldRules[spec.Key]})
	}
	lines = append(lines,
		[]interface{}{"", ""},
		[]interface{}{"Categories", strings.Join(categoryNames(), ", ")},
		[]interface{}{"Notes", "Only the first sheet is imported. Header text must match exactly. Cooking cost, totals and earnings are calculated automatically."},
	)

	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := line
		if err := wb.SetSheetRow(InstructionsSheet, cell, &row); err != nil {
			return err
		}
	}

	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := wb.SetCellStyle(InstructionsSheet, "A1", "B1", bold); err != nil {
		return err
	}
	if err := wb.SetColWidth(InstructionsSheet, "A", "A", 26); err != nil {
		return err
	}
	return wb.SetColWidth(InstructionsSheet, "B", "B", 90)
}

func categoryNames() []string {
	out := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, string(c))
	}
	return out
}
