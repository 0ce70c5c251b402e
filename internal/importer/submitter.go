package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"choma/internal/logger"
	"choma/internal/model"
	"choma/internal/parser"
	"choma/internal/submit"
)

// ImportLogWriter 导入日志写入
type ImportLogWriter interface {
	InsertImportLog(ctx context.Context, entry model.ImportLog) (int64, error)
}

// Submitter 批量提交并对账
type Submitter struct {
	backend submit.Backend
	logs    ImportLogWriter
}

// NewSubmitter 创建提交器；logs 可为 nil
func NewSubmitter(backend submit.Backend, logs ImportLogWriter) *Submitter {
	return &Submitter{backend: backend, logs: logs}
}

// Submit 确认并提交批次，不重试
// 整个请求失败时全部记为失败并给出一条通用错误；部分失败按后端计数逐条报告。
// 仅在批次阶段不允许提交时返回 error。
func (s *Submitter) Submit(ctx context.Context, b *Batch) (model.UploadResult, error) {
	if b.Stage == StageTransformed {
		if err := b.Confirm(); err != nil {
			return model.UploadResult{}, err
		}
	}
	if b.Stage != StageConfirmed {
		return model.UploadResult{}, fmt.Errorf("%w: cannot submit batch in stage %s", ErrInvalidTransition, b.Stage)
	}

	req := model.BulkCreateRequest{Meals: make([]model.Meal, 0, len(b.Records))}
	for _, m := range b.Records {
		req.Meals = append(req.Meals, m.WithMirrorFields())
	}

	var result model.UploadResult
	resp, err := s.backend.BulkCreate(ctx, req)
	if err != nil {
		logger.Error(ctx, "bulk submission failed", err, zap.String("batch_id", b.ID), zap.Int("rows", len(b.Records)))
		result = wholeBatchFailure(b, err)
	} else {
		result = Reconcile(b.ID, b.Records, resp)
	}

	if err := b.Complete(result); err != nil {
		return result, err
	}

	logger.Info(ctx, "batch submitted",
		zap.String("batch_id", b.ID),
		zap.Int("rows", result.TotalRows),
		zap.Int("created", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
		zap.String("status", string(result.Status)),
	)
	s.writeLog(ctx, b, result, err)
	return result, nil
}

func (s *Submitter) writeLog(ctx context.Context, b *Batch, result model.UploadResult, submitErr error) {
	if s.logs == nil {
		return
	}
	entry := model.ImportLog{
		BatchID:      b.ID,
		Operator:     b.Operator,
		Filename:     b.Filename,
		TotalRows:    result.TotalRows,
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailedCount,
		Status:       result.Status,
	}
	if submitErr != nil {
		entry.ErrorMessage = submitErr.Error()
	} else if len(result.Errors) > 0 {
		entry.ErrorMessage = result.Errors[0].Message
	}
	if _, err := s.logs.InsertImportLog(ctx, entry); err != nil {
		logger.Warn(ctx, "write import log failed", zap.String("batch_id", b.ID), zap.Error(err))
	}
}

func wholeBatchFailure(b *Batch, err error) model.UploadResult {
	result := model.UploadResult{
		BatchID:     b.ID,
		TotalRows:   len(b.Records),
		FailedCount: len(b.Records),
		Errors: []model.ValidationError{{
			Row:     0,
			Field:   "batch",
			Message: fmt.Sprintf("Submission failed, no meals were created: %v", err),
		}},
	}
	result.ResolveStatus()
	return result
}

// Reconcile 将批量响应对账为 UploadResult
// 失败条目按回传的 correlationId 定位原始行，其次按名称，最后按剩余记录的顺序。
func Reconcile(batchID string, records []model.Meal, resp *model.BulkCreateResponse) model.UploadResult {
	result := model.UploadResult{
		BatchID:   batchID,
		TotalRows: len(records),
		Errors:    []model.ValidationError{},
	}

	created, failed := resp.Summary.Created, resp.Summary.Failed
	if created == 0 && failed == 0 {
		created, failed = len(resp.Created), len(resp.Errors)
	}
	result.SuccessCount = created
	result.FailedCount = failed

	m := newRowMatcher(records)
	for _, item := range resp.Created {
		m.claim(item.CorrelationID, item.Name, false)
	}

	for _, item := range resp.Errors {
		ve := model.ValidationError{
			Field:   parser.HeaderOf(parser.FieldName),
			Message: item.Text(),
			Value:   item.Meal.Name,
		}
		if idx := m.claim(item.Meal.CorrelationID, item.Meal.Name, true); idx >= 0 {
			ve.Row = records[idx].SourceRow
			if ve.Value == "" {
				ve.Value = records[idx].Name
			}
		}
		result.Errors = append(result.Errors, ve)
	}

	// 后端只给了计数没有明细时补齐条目
	for len(result.Errors) < failed {
		ve := model.ValidationError{
			Field:   parser.HeaderOf(parser.FieldName),
			Message: "Backend reported a failure without details",
		}
		if idx := m.claim("", "", true); idx >= 0 {
			ve.Row = records[idx].SourceRow
			ve.Value = records[idx].Name
		}
		result.Errors = append(result.Errors, ve)
	}

	result.ResolveStatus()
	return result
}

type rowMatcher struct {
	records []model.Meal
	claimed []bool
	byID    map[string]int
}

func newRowMatcher(records []model.Meal) *rowMatcher {
	m := &rowMatcher{
		records: records,
		claimed: make([]bool, len(records)),
		byID:    make(map[string]int, len(records)),
	}
	for i, r := range records {
		if r.CorrelationID != "" {
			m.byID[r.CorrelationID] = i
		}
	}
	return m
}

// claim 返回匹配到的记录下标，-1 表示无可用记录
func (m *rowMatcher) claim(correlationID, name string, positional bool) int {
	if idx, ok := m.byID[correlationID]; ok && correlationID != "" && !m.claimed[idx] {
		m.claimed[idx] = true
		return idx
	}
	if name != "" {
		for i, r := range m.records {
			if !m.claimed[i] && r.Name == name {
				m.claimed[i] = true
				return i
			}
		}
	}
	if !positional {
		return -1
	}
	for i := range m.records {
		if !m.claimed[i] {
			m.claimed[i] = true
			return i
		}
	}
	return -1
}
