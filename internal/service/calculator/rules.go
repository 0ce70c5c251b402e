package calculator

import (
	"errors"

	"choma/internal/model"
)

// CostModelV2 当前成本模型版本：食材/包装/配送/平台费 + 自动烹饪成本，40% 利润五五分
const CostModelV2 = "v2"

// CostModel 成本模型参数
type CostModel struct {
	Version string `json:"version"`

	GasCostPerHour    float64 `json:"gasCostPerHour"`
	LabourCostPerHour float64 `json:"labourCostPerHour"`

	UtensilLow    float64 `json:"utensilLow"`
	UtensilMedium float64 `json:"utensilMedium"`
	UtensilHigh   float64 `json:"utensilHigh"`

	MultiplierLow    float64 `json:"multiplierLow"`
	MultiplierMedium float64 `json:"multiplierMedium"`
	MultiplierHigh   float64 `json:"multiplierHigh"`

	ProfitRate float64 `json:"profitRate"`

	// 复杂度分档（分钟）
	LowMaxMinutes    float64 `json:"lowMaxMinutes"`
	MediumMaxMinutes float64 `json:"mediumMaxMinutes"`
}

// DefaultCostModel 默认成本模型
func DefaultCostModel() CostModel {
	return CostModel{
		Version:           CostModelV2,
		GasCostPerHour:    800,
		LabourCostPerHour: 1500,
		UtensilLow:        200,
		UtensilMedium:     350,
		UtensilHigh:       500,
		MultiplierLow:     0.8,
		MultiplierMedium:  1.0,
		MultiplierHigh:    1.3,
		ProfitRate:        0.40,
		LowMaxMinutes:     30,
		MediumMaxMinutes:  60,
	}
}

// Validate 参数合法性检查
func (m CostModel) Validate() error {
	if m.Version == "" {
		return errors.New("cost model version is required")
	}
	if m.GasCostPerHour < 0 || m.LabourCostPerHour < 0 {
		return errors.New("hourly rates must be non-negative")
	}
	if m.UtensilLow < 0 || m.UtensilMedium < 0 || m.UtensilHigh < 0 {
		return errors.New("utensil costs must be non-negative")
	}
	if !(m.MultiplierLow < m.MultiplierMedium && m.MultiplierMedium < m.MultiplierHigh) {
		return errors.New("complexity multipliers must increase from low to high")
	}
	if m.ProfitRate < 0 || m.ProfitRate > 1 {
		return errors.New("profit rate must be within [0, 1]")
	}
	if m.LowMaxMinutes <= 0 || m.MediumMaxMinutes <= m.LowMaxMinutes {
		return errors.New("complexity thresholds must be positive and increasing")
	}
	return nil
}

type tierParams struct {
	utensil    float64
	multiplier float64
}

func (m CostModel) tier(level model.ComplexityLevel) tierParams {
	switch level {
	case model.ComplexityLow:
		return tierParams{utensil: m.UtensilLow, multiplier: m.MultiplierLow}
	case model.ComplexityHigh:
		return tierParams{utensil: m.UtensilHigh, multiplier: m.MultiplierHigh}
	default:
		return tierParams{utensil: m.UtensilMedium, multiplier: m.MultiplierMedium}
	}
}
