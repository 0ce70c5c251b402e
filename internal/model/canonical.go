package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// 金额以 JSON 数字输出（6610.5 而不是 "6610.5"）
	decimal.MarshalJSONWithoutQuotes = true
}

// Category 餐品分类（封闭集合）
type Category string

const (
	CategoryBreakfast Category = "Breakfast"
	CategoryLunch     Category = "Lunch"
	CategoryDinner    Category = "Dinner"
	CategorySnack     Category = "Snack"
	CategoryDessert   Category = "Dessert"
	CategoryBeverage  Category = "Beverage"
)

// Categories 全部合法分类（展示顺序）
var Categories = []Category{
	CategoryBreakfast,
	CategoryLunch,
	CategoryDinner,
	CategorySnack,
	CategoryDessert,
	CategoryBeverage,
}

// ParseCategory 精确匹配分类名（区分大小写）
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// ComplexityLevel 复杂度等级，决定烹饪成本的固定项与系数
type ComplexityLevel string

const (
	ComplexityLow    ComplexityLevel = "low"
	ComplexityMedium ComplexityLevel = "medium"
	ComplexityHigh   ComplexityLevel = "high"
)

// Pricing 价格拆分：原始成本 + 全部衍生字段
//
// 金额保存为两位小数的十进制值，序列化后 totalPrice = totalCosts + profit + platformFee
// 与 chefEarnings + platformEarnings = totalPrice 逐位成立。
type Pricing struct {
	Ingredients      decimal.Decimal `json:"ingredients" bson:"ingredients"`
	CookingCost      decimal.Decimal `json:"cookingCost" bson:"cookingCost"`
	Packaging        decimal.Decimal `json:"packaging" bson:"packaging"`
	Delivery         decimal.Decimal `json:"delivery" bson:"delivery"`
	PlatformFee      decimal.Decimal `json:"platformFee" bson:"platformFee"`
	TotalCosts       decimal.Decimal `json:"totalCosts" bson:"totalCosts"`
	Profit           decimal.Decimal `json:"profit" bson:"profit"`
	TotalPrice       decimal.Decimal `json:"totalPrice" bson:"totalPrice"`
	ChefEarnings     decimal.Decimal `json:"chefEarnings" bson:"chefEarnings"`
	PlatformEarnings decimal.Decimal `json:"platformEarnings" bson:"platformEarnings"`
}

// Nutrition 营养信息，缺省为 0
type Nutrition struct {
	Calories float64 `json:"calories" bson:"calories"`
	Protein  float64 `json:"protein" bson:"protein"`
	Carbs    float64 `json:"carbs" bson:"carbs"`
	Fat      float64 `json:"fat" bson:"fat"`
	Fiber    float64 `json:"fiber" bson:"fiber"`
	Sugar    float64 `json:"sugar" bson:"sugar"`
	Weight   float64 `json:"weight" bson:"weight"`
}

// Meal 提交就绪的统一口径餐品记录
//
// 由转换阶段一次性生成；之后只有兼容字段（BasePrice/ChefFee/PlatformFee）由提交阶段补齐。
type Meal struct {
	CorrelationID string `json:"correlationId" bson:"correlationId"`
	SourceRow     int    `json:"sourceRow" bson:"sourceRow"`

	Name            string          `json:"name" bson:"name"`
	Description     string          `json:"description" bson:"description"`
	Pricing         Pricing         `json:"pricing" bson:"pricing"`
	Nutrition       Nutrition       `json:"nutrition" bson:"nutrition"`
	Category        Category        `json:"category,omitempty" bson:"category,omitempty"`
	PreparationTime float64         `json:"preparationTime" bson:"preparationTime"`
	ComplexityLevel ComplexityLevel `json:"complexityLevel" bson:"complexityLevel"`
	Ingredients     string          `json:"ingredients" bson:"ingredients"`
	Allergens       []string        `json:"allergens" bson:"allergens"`
	Tags            []string        `json:"tags" bson:"tags"`
	IsAvailable     bool            `json:"isAvailable" bson:"isAvailable"`
	AdminNotes      string          `json:"adminNotes" bson:"adminNotes"`
	ChefNotes       string          `json:"chefNotes" bson:"chefNotes"`
	Image           string          `json:"image" bson:"image"`

	CostModelVersion string `json:"costModelVersion" bson:"costModelVersion"`

	// 后端兼容字段，由提交阶段从 Pricing 复制
	BasePrice   decimal.Decimal `json:"basePrice" bson:"basePrice"`
	ChefFee     decimal.Decimal `json:"chefFee" bson:"chefFee"`
	PlatformFee decimal.Decimal `json:"platformFee" bson:"platformFee"`
}

// WithMirrorFields 返回补齐顶层兼容字段后的副本
func (m Meal) WithMirrorFields() Meal {
	m.BasePrice = m.Pricing.TotalPrice
	m.ChefFee = m.Pricing.ChefEarnings
	m.PlatformFee = m.Pricing.PlatformFee
	return m
}

// StoredMeal 已入库的餐品
type StoredMeal struct {
	ID        string    `json:"id" bson:"_id"`
	Meal      `bson:",inline"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
