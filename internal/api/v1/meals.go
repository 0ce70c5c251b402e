package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"choma/internal/logger"
	"choma/internal/model"
	"choma/internal/submit"
)

// maxPageSize 列表接口单页上限
const maxPageSize = 200

// MealListResponse 餐品列表响应
type MealListResponse struct {
	Items  []model.StoredMeal `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// ListMeals 已入库餐品（最新在前）
// GET /api/meals?limit=50&offset=0
func (h *Handler) ListMeals(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	ctx := c.Request.Context()
	meals, err := h.repo.ListMeals(ctx, limit, offset)
	if err != nil {
		logger.Error(c, "list meals failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meals"})
		return
	}
	total, err := h.repo.CountMeals(ctx)
	if err != nil {
		logger.Error(c, "count meals failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count meals"})
		return
	}
	if meals == nil {
		meals = []model.StoredMeal{}
	}

	c.JSON(http.StatusOK, MealListResponse{
		Items:  meals,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// BulkCreate 批量创建餐品，逐条独立写入
// POST /api/meals/bulk
func (h *Handler) BulkCreate(c *gin.Context) {
	var req model.BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.bulk.BulkCreate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, submit.ErrEmptyBatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c, "bulk create failed", err, zap.Int("meals", len(req.Meals)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create meals"})
		return
	}

	logger.Info(c, "bulk create",
		zap.Int("created", resp.Summary.Created),
		zap.Int("failed", resp.Summary.Failed),
	)
	c.JSON(http.StatusOK, resp)
}

// queryInt 读取非负整数查询参数，非法值使用默认值，超过单页上限时截断
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if v > maxPageSize && key == "limit" {
		return maxPageSize
	}
	return v
}
