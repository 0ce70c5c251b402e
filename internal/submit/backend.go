package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"choma/internal/model"
	"choma/internal/service/calculator"
)

// ErrEmptyBatch 没有可提交的记录
var ErrEmptyBatch = errors.New("no meals to submit")

// Backend 批量创建端点：逐条尝试，返回逐条结果
type Backend interface {
	BulkCreate(ctx context.Context, req model.BulkCreateRequest) (*model.BulkCreateResponse, error)
}

// MealRepository 可逐条报告结果的餐品存储
type MealRepository interface {
	InsertMeals(ctx context.Context, meals []model.Meal) ([]model.InsertOutcome, error)
}

// StoreBackend 直接写入本地存储（SQLite / MongoDB）的后端
type StoreBackend struct {
	repo MealRepository
}

// NewStoreBackend 创建本地存储后端
func NewStoreBackend(repo MealRepository) *StoreBackend {
	return &StoreBackend{repo: repo}
}

// BulkCreate 逐条检查并写入，按批量接口格式返回
func (b *StoreBackend) BulkCreate(ctx context.Context, req model.BulkCreateRequest) (*model.BulkCreateResponse, error) {
	if len(req.Meals) == 0 {
		return nil, ErrEmptyBatch
	}

	outcomes := make([]model.InsertOutcome, len(req.Meals))
	accepted := make([]model.Meal, 0, len(req.Meals))
	positions := make([]int, 0, len(req.Meals))
	for i, meal := range req.Meals {
		if err := CheckMeal(meal); err != nil {
			outcomes[i].Err = err
			continue
		}
		accepted = append(accepted, meal)
		positions = append(positions, i)
	}

	if len(accepted) > 0 {
		inserted, err := b.repo.InsertMeals(ctx, accepted)
		if err != nil {
			return nil, fmt.Errorf("insert meals: %w", err)
		}
		for j, out := range inserted {
			if j < len(positions) {
				outcomes[positions[j]] = out
			}
		}
	}

	resp := BuildResponse(req.Meals, outcomes)
	return &resp, nil
}

// CheckMeal 入库前的单条检查：名称非空，价格拆分自洽
func CheckMeal(m model.Meal) error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("meal name is required")
	}
	if !m.Pricing.Ingredients.IsPositive() {
		return errors.New("pricing.ingredients must be greater than 0")
	}
	if err := calculator.Verify(m.Pricing); err != nil {
		return fmt.Errorf("inconsistent pricing: %w", err)
	}
	return nil
}

// BuildResponse 将逐条入库结果组装为批量接口响应
func BuildResponse(meals []model.Meal, outcomes []model.InsertOutcome) model.BulkCreateResponse {
	resp := model.BulkCreateResponse{
		Created: []model.BulkCreatedItem{},
		Errors:  []model.BulkItemError{},
	}
	for i, meal := range meals {
		var out model.InsertOutcome
		if i < len(outcomes) {
			out = outcomes[i]
		} else {
			out.Err = errors.New("no result reported for meal")
		}

		if out.Err != nil {
			resp.Errors = append(resp.Errors, model.BulkItemError{
				Error: out.Err.Error(),
				Meal:  model.BulkErrorMeal{Name: meal.Name, CorrelationID: meal.CorrelationID},
			})
			continue
		}
		resp.Created = append(resp.Created, model.BulkCreatedItem{
			ID:            out.ID,
			Name:          meal.Name,
			CorrelationID: meal.CorrelationID,
		})
	}
	resp.Summary = model.BulkCreateSummary{Created: len(resp.Created), Failed: len(resp.Errors)}
	return resp
}
