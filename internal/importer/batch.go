package importer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"choma/internal/model"
	"choma/internal/parser"
)

// ErrInvalidTransition 非法的阶段迁移
var ErrInvalidTransition = errors.New("invalid batch stage transition")

// Stage 批次所处阶段
type Stage string

const (
	StageParsed      Stage = "parsed"
	StageValidated   Stage = "validated"
	StageTransformed Stage = "transformed"
	StageConfirmed   Stage = "confirmed"
	StageSubmitted   Stage = "submitted"
	StageCancelled   Stage = "cancelled"
)

var transitions = map[Stage][]Stage{
	StageParsed:      {StageValidated, StageCancelled},
	StageValidated:   {StageTransformed, StageCancelled},
	StageTransformed: {StageConfirmed, StageCancelled},
	StageConfirmed:   {StageSubmitted},
}

// Batch 一次导入的流水线状态，在各阶段之间显式传递
type Batch struct {
	ID        string                `json:"batchId"`
	Operator  string                `json:"operator"`
	Filename  string                `json:"filename"`
	Stage     Stage                 `json:"stage"`
	Rows      []parser.RawImportRow `json:"-"`
	Records   []model.Meal          `json:"records"`
	Result    *model.UploadResult   `json:"result,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

// NewBatch 以解析结果创建批次
func NewBatch(operator, filename string, rows []parser.RawImportRow) *Batch {
	return &Batch{
		ID:        uuid.NewString(),
		Operator:  operator,
		Filename:  filename,
		Stage:     StageParsed,
		Rows:      rows,
		CreatedAt: time.Now(),
	}
}

func (b *Batch) advance(to Stage) error {
	for _, next := range transitions[b.Stage] {
		if next == to {
			b.Stage = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Stage, to)
}

// MarkValidated 校验通过
func (b *Batch) MarkValidated() error {
	return b.advance(StageValidated)
}

// SetRecords 写入转换结果；原始行随之丢弃
func (b *Batch) SetRecords(records []model.Meal) error {
	if err := b.advance(StageTransformed); err != nil {
		return err
	}
	b.Records = records
	b.Rows = nil
	return nil
}

// Confirm 操作员确认提交
func (b *Batch) Confirm() error {
	return b.advance(StageConfirmed)
}

// Complete 记录提交结果
func (b *Batch) Complete(result model.UploadResult) error {
	if err := b.advance(StageSubmitted); err != nil {
		return err
	}
	b.Result = &result
	return nil
}

// Cancel 放弃批次，不保留任何中间数据
func (b *Batch) Cancel() error {
	if err := b.advance(StageCancelled); err != nil {
		return err
	}
	b.Rows = nil
	b.Records = nil
	return nil
}

// PreviewRow 预览中的单行摘要
type PreviewRow struct {
	Row             int                   `json:"row"`
	CorrelationID   string                `json:"correlationId"`
	Name            string                `json:"name"`
	Category        model.Category        `json:"category,omitempty"`
	ComplexityLevel model.ComplexityLevel `json:"complexityLevel"`
	CookingCost     float64               `json:"cookingCost"`
	TotalPrice      float64               `json:"totalPrice"`
	ChefEarnings    float64               `json:"chefEarnings"`
}

// PreviewTotals 预览合计
type PreviewTotals struct {
	Rows             int     `json:"rows"`
	TotalPrice       float64 `json:"totalPrice"`
	ChefEarnings     float64 `json:"chefEarnings"`
	PlatformEarnings float64 `json:"platformEarnings"`
}

// Preview 确认前展示给操作员的摘要
type Preview struct {
	BatchID          string        `json:"batchId"`
	Filename         string        `json:"filename"`
	Stage            Stage         `json:"stage"`
	CostModelVersion string        `json:"costModelVersion"`
	Rows             []PreviewRow  `json:"rows"`
	Totals           PreviewTotals `json:"totals"`
}

// Preview 生成摘要
func (b *Batch) Preview() Preview {
	p := Preview{
		BatchID:  b.ID,
		Filename: b.Filename,
		Stage:    b.Stage,
		Rows:     make([]PreviewRow, 0, len(b.Records)),
	}

	// 合计用十进制累加，避免浮点误差
	var totalPrice, chef, platform decimal.Decimal
	for _, m := range b.Records {
		if p.CostModelVersion == "" {
			p.CostModelVersion = m.CostModelVersion
		}
		p.Rows = append(p.Rows, PreviewRow{
			Row:             m.SourceRow,
			CorrelationID:   m.CorrelationID,
			Name:            m.Name,
			Category:        m.Category,
			ComplexityLevel: m.ComplexityLevel,
			CookingCost:     m.Pricing.CookingCost.InexactFloat64(),
			TotalPrice:      m.Pricing.TotalPrice.InexactFloat64(),
			ChefEarnings:    m.Pricing.ChefEarnings.InexactFloat64(),
		})
		totalPrice = totalPrice.Add(m.Pricing.TotalPrice)
		chef = chef.Add(m.Pricing.ChefEarnings)
		platform = platform.Add(m.Pricing.PlatformEarnings)
	}

	p.Totals = PreviewTotals{
		Rows:             len(b.Records),
		TotalPrice:       totalPrice.InexactFloat64(),
		ChefEarnings:     chef.InexactFloat64(),
		PlatformEarnings: platform.InexactFloat64(),
	}
	return p
}
