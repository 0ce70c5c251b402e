package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"choma/internal/logger"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	StorageDriver    string `json:"storageDriver"`    // sqlite / mongo
	SubmitMode       string `json:"submitMode"`       // local / remote
	CostModelVersion string `json:"costModelVersion"` // 当前成本模型版本
	TotalMeals       int64  `json:"totalMeals"`       // 已入库餐品数
	LastImportTime   string `json:"lastImportTime"`   // 最后导入时间
	LastImportStatus string `json:"lastImportStatus"` // 最后导入状态
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	resp := StatusResponse{
		StorageDriver:    h.repo.Driver(),
		SubmitMode:       h.opts.SubmitMode,
		CostModelVersion: h.coordinator.Engine().Model().Version,
	}

	total, err := h.repo.CountMeals(ctx)
	if err != nil {
		logger.Warn(c, "count meals failed", zap.Error(err))
		total = 0
	}
	resp.TotalMeals = total

	last, err := h.repo.LastImportLog(ctx)
	if err == nil && last != nil {
		resp.LastImportTime = last.CreatedAt.Format(time.RFC3339)
		resp.LastImportStatus = string(last.Status)
	}

	c.JSON(http.StatusOK, resp)
}
