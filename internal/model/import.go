package model

import "time"

// ValidationError 行级错误（校验阶段与提交阶段共用）
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// UploadStatus 一次导入的最终状态
type UploadStatus string

const (
	UploadSucceeded UploadStatus = "succeeded"
	UploadPartial   UploadStatus = "partial"
	UploadFailed    UploadStatus = "failed"
)

// UploadResult 一次提交的最终报告
type UploadResult struct {
	BatchID      string            `json:"batchId"`
	TotalRows    int               `json:"totalRows"`
	SuccessCount int               `json:"successCount"`
	FailedCount  int               `json:"failedCount"`
	Errors       []ValidationError `json:"errors"`
	Status       UploadStatus      `json:"status"`
}

// ResolveStatus 根据计数推导状态
func (r *UploadResult) ResolveStatus() {
	switch {
	case r.FailedCount == 0 && r.SuccessCount > 0:
		r.Status = UploadSucceeded
	case r.SuccessCount == 0:
		r.Status = UploadFailed
	default:
		r.Status = UploadPartial
	}
}

// BulkCreateRequest 批量创建请求体
type BulkCreateRequest struct {
	Meals []Meal `json:"meals"`
}

// BulkCreateSummary 批量创建计数
type BulkCreateSummary struct {
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// BulkCreatedItem 单条创建成功
type BulkCreatedItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// BulkErrorMeal 失败条目对应的餐品标识
type BulkErrorMeal struct {
	Name          string `json:"name"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// BulkItemError 单条创建失败；后端可能使用 error 或 message 字段
type BulkItemError struct {
	Error   string        `json:"error,omitempty"`
	Message string        `json:"message,omitempty"`
	Meal    BulkErrorMeal `json:"meal"`
}

// Text 返回后端填写的错误信息（error 优先）
func (e BulkItemError) Text() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return "unknown error"
}

// BulkCreateResponse 批量创建响应：逐条结果，不做整批原子
type BulkCreateResponse struct {
	Summary BulkCreateSummary `json:"summary"`
	Created []BulkCreatedItem `json:"created"`
	Errors  []BulkItemError   `json:"errors"`
}

// ImportLog 导入日志
type ImportLog struct {
	ID           int64        `json:"id"`
	BatchID      string       `json:"batchId"`
	Operator     string       `json:"operator"`
	Filename     string       `json:"filename"`
	TotalRows    int          `json:"totalRows"`
	SuccessCount int          `json:"successCount"`
	FailedCount  int          `json:"failedCount"`
	Status       UploadStatus `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// InsertOutcome 单条入库结果，与请求按下标对齐
type InsertOutcome struct {
	ID  string
	Err error
}
