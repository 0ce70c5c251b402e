package calculator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"choma/internal/model"
)

// Inputs 单个餐品的原始成本输入
type Inputs struct {
	Ingredients     float64 `json:"ingredients"`
	Packaging       float64 `json:"packaging"`
	Delivery        float64 `json:"delivery"`
	PlatformFee     float64 `json:"platformFee"`
	PreparationTime float64 `json:"preparationTime"`
}

// Quote 计算结果
type Quote struct {
	Pricing    model.Pricing         `json:"pricing"`
	Complexity model.ComplexityLevel `json:"complexityLevel"`
	Version    string                `json:"costModelVersion"`
}

// Engine 价格/收益计算引擎，无状态、无 I/O
type Engine struct {
	model CostModel
}

// NewEngine 创建计算引擎
func NewEngine(m CostModel) *Engine {
	return &Engine{model: m}
}

// Model 当前成本模型
func (e *Engine) Model() CostModel {
	return e.model
}

// Complexity 由准备时长推导复杂度
func (e *Engine) Complexity(prepMinutes float64) model.ComplexityLevel {
	switch {
	case math.IsNaN(prepMinutes) || prepMinutes <= e.model.LowMaxMinutes:
		return model.ComplexityLow
	case prepMinutes <= e.model.MediumMaxMinutes:
		return model.ComplexityMedium
	default:
		return model.ComplexityHigh
	}
}

// CookingCost 烹饪成本
// ((燃气/小时 + 人工/小时) × 时长/60 + 器具固定成本) × 复杂度系数，四舍五入到整数；时长 <= 0 时为 0
func (e *Engine) CookingCost(prepMinutes float64, level model.ComplexityLevel) decimal.Decimal {
	if math.IsNaN(prepMinutes) || prepMinutes <= 0 {
		return decimal.Zero
	}
	tier := e.model.tier(level)

	hours := dec(prepMinutes).Div(decimal.NewFromInt(60))
	hourly := dec(e.model.GasCostPerHour).Add(dec(e.model.LabourCostPerHour))
	base := hourly.Mul(hours).Add(dec(tier.utensil))

	return base.Mul(dec(tier.multiplier)).Round(0)
}

// Quote 计算完整的价格拆分
func (e *Engine) Quote(in Inputs) Quote {
	level := e.Complexity(in.PreparationTime)

	ingredients := money(in.Ingredients)
	packaging := money(in.Packaging)
	delivery := money(in.Delivery)
	platformFee := money(in.PlatformFee)
	cooking := e.CookingCost(in.PreparationTime, level)

	totalCosts := ingredients.Add(cooking).Add(packaging).Add(delivery)
	profit := totalCosts.Mul(dec(e.model.ProfitRate)).Round(2)
	totalPrice := totalCosts.Add(profit).Add(platformFee)

	// 利润五五分：厨师一半（保留两位），余数归平台
	chefShare := profit.Div(decimal.NewFromInt(2)).Round(2)
	platformShare := profit.Sub(chefShare)

	chefEarnings := ingredients.Add(cooking).Add(chefShare)
	platformEarnings := packaging.Add(delivery).Add(platformFee).Add(platformShare)

	return Quote{
		Pricing: model.Pricing{
			Ingredients:      ingredients,
			CookingCost:      cooking,
			Packaging:        packaging,
			Delivery:         delivery,
			PlatformFee:      platformFee,
			TotalCosts:       totalCosts,
			Profit:           profit,
			TotalPrice:       totalPrice,
			ChefEarnings:     chefEarnings,
			PlatformEarnings: platformEarnings,
		},
		Complexity: level,
		Version:    e.model.Version,
	}
}

// Verify 校验价格拆分的恒等式，按精确十进制比较
func Verify(p model.Pricing) error {
	totalCosts := p.Ingredients.Add(p.CookingCost).Add(p.Packaging).Add(p.Delivery)
	if !totalCosts.Equal(p.TotalCosts) {
		return fmt.Errorf("totalCosts %s != ingredients+cooking+packaging+delivery %s", p.TotalCosts, totalCosts)
	}

	want := p.TotalCosts.Add(p.Profit).Add(p.PlatformFee)
	if !want.Equal(p.TotalPrice) {
		return fmt.Errorf("totalPrice %s != totalCosts+profit+platformFee %s", p.TotalPrice, want)
	}

	earnings := p.ChefEarnings.Add(p.PlatformEarnings)
	if !earnings.Equal(p.TotalPrice) {
		return fmt.Errorf("chef+platform earnings %s != totalPrice %s", earnings, p.TotalPrice)
	}
	return nil
}

func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// money 金额统一保留两位小数
func money(v float64) decimal.Decimal {
	return dec(v).Round(2)
}

// RoundMoney 按金额精度（两位小数）取整，校验阶段与计算使用同一规则
func RoundMoney(v float64) float64 {
	return money(v).InexactFloat64()
}
