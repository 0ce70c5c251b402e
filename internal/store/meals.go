package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"choma/internal/model"
)

// ErrDuplicateMeal 同名餐品已存在（名称不区分大小写）
var ErrDuplicateMeal = errors.New("a meal with this name already exists")

// InsertMeals 逐条写入，单条失败不影响其他记录；返回与输入对齐的结果
func (s *Store) InsertMeals(ctx context.Context, meals []model.Meal) ([]model.InsertOutcome, error) {
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO meals (
			id, correlation_id, name, category, complexity_level,
			total_price, chef_earnings, platform_earnings, cost_model_version,
			is_available, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare meal insert: %w", err)
	}
	defer stmt.Close()

	outcomes := make([]model.InsertOutcome, len(meals))
	for i, meal := range meals {
		id := uuid.NewString()
		payload, err := json.Marshal(meal)
		if err != nil {
			outcomes[i].Err = fmt.Errorf("encode meal: %w", err)
			continue
		}

		_, err = stmt.ExecContext(ctx,
			id,
			meal.CorrelationID,
			meal.Name,
			string(meal.Category),
			string(meal.ComplexityLevel),
			meal.Pricing.TotalPrice.InexactFloat64(),
			meal.Pricing.ChefEarnings.InexactFloat64(),
			meal.Pricing.PlatformEarnings.InexactFloat64(),
			meal.CostModelVersion,
			boolToInt(meal.IsAvailable),
			string(payload),
			time.Now().UTC(),
		)
		if err != nil {
			// 上下文取消后剩余记录不再尝试
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			outcomes[i].Err = translateInsertError(err)
			continue
		}
		outcomes[i].ID = id
	}
	return outcomes, nil
}

// ListMeals 按创建时间倒序分页
func (s *Store) ListMeals(ctx context.Context, limit, offset int) ([]model.StoredMeal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload, created_at FROM meals
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	out := []model.StoredMeal{}
	for rows.Next() {
		var (
			sm      model.StoredMeal
			payload string
		)
		if err := rows.Scan(&sm.ID, &payload, &sm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &sm.Meal); err != nil {
			return nil, fmt.Errorf("failed to decode meal %s: %w", sm.ID, err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// CountMeals 餐品总数
func (s *Store) CountMeals(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return n, nil
}

// GetMeal 按 ID 读取
func (s *Store) GetMeal(ctx context.Context, id string) (*model.StoredMeal, error) {
	var (
		sm      model.StoredMeal
		payload string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, payload, created_at FROM meals WHERE id = ?`, id).
		Scan(&sm.ID, &payload, &sm.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &sm.Meal); err != nil {
		return nil, fmt.Errorf("failed to decode meal %s: %w", sm.ID, err)
	}
	return &sm, nil
}

func translateInsertError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicateMeal
	}
	return fmt.Errorf("failed to insert meal: %w", err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
