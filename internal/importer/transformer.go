package importer

import (
	"fmt"

	"github.com/google/uuid"

	"choma/internal/model"
	"choma/internal/parser"
	"choma/internal/service/calculator"
)

// correlationNamespace 关联 ID 命名空间（UUIDv5）
var correlationNamespace = uuid.MustParse("6f1c2a7e-3b8d-5e4f-9a10-c4d2e8b7f351")

// CorrelationID 由批次 ID 与行号确定性生成，同一输入始终得到同一 ID
func CorrelationID(batchID string, row int) string {
	return uuid.NewSHA1(correlationNamespace, []byte(fmt.Sprintf("%s#%d", batchID, row))).String()
}

// Transform 将已通过校验的行转换为统一口径餐品记录，与输入按下标对齐
// 纯函数：无 I/O，相同输入得到相同输出。调用方须保证 Validate 无错误。
func Transform(batchID string, rows []parser.RawImportRow, engine *calculator.Engine) []model.Meal {
	out := make([]model.Meal, 0, len(rows))
	for i := range rows {
		out = append(out, transformRow(batchID, &rows[i], engine))
	}
	return out
}

func transformRow(batchID string, row *parser.RawImportRow, engine *calculator.Engine) model.Meal {
	prep := row.Number(parser.FieldPreparationTime)
	quote := engine.Quote(calculator.Inputs{
		Ingredients:     row.Number(parser.FieldIngredientsCost),
		Packaging:       row.Number(parser.FieldPackaging),
		Delivery:        row.Number(parser.FieldDelivery),
		PlatformFee:     row.Number(parser.FieldPlatformFee),
		PreparationTime: prep,
	})

	category, _ := model.ParseCategory(row.Text(parser.FieldCategory))

	available := true
	if c := row.Get(parser.FieldAvailable); c.Present {
		available, _ = parser.ParseBoolToken(c.Raw)
	}

	return model.Meal{
		CorrelationID: CorrelationID(batchID, row.RowNumber),
		SourceRow:     row.RowNumber,

		Name:        row.Text(parser.FieldName),
		Description: row.Text(parser.FieldDescription),
		Pricing:     quote.Pricing,
		Nutrition: model.Nutrition{
			Calories: row.Number(parser.FieldCalories),
			Protein:  row.Number(parser.FieldProtein),
			Carbs:    row.Number(parser.FieldCarbs),
			Fat:      row.Number(parser.FieldFat),
			Fiber:    row.Number(parser.FieldFiber),
			Sugar:    row.Number(parser.FieldSugar),
			Weight:   row.Number(parser.FieldWeight),
		},
		Category:        category,
		PreparationTime: prep,
		ComplexityLevel: quote.Complexity,
		Ingredients:     row.Text(parser.FieldIngredients),
		Allergens:       parser.SplitList(row.Text(parser.FieldAllergens)),
		Tags:            parser.SplitList(row.Text(parser.FieldTags)),
		IsAvailable:     available,
		AdminNotes:      row.Text(parser.FieldAdminNotes),
		ChefNotes:       row.Text(parser.FieldChefNotes),
		Image:           row.Text(parser.FieldImage),

		CostModelVersion: quote.Version,
	}
}
