package importer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"choma/internal/model"
	"choma/internal/parser"
	"choma/internal/service/calculator"
	"choma/internal/service/excel"
)

// RejectedError 校验未通过，批次不会被暂存
type RejectedError struct {
	Errors []model.ValidationError
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%d validation error(s)", len(e.Errors))
}

// IsStructural 结构性错误（文件不可读、缺少表头或数据行）
func IsStructural(err error) bool {
	var missing *parser.MissingHeadersError
	return errors.Is(err, excel.ErrEmptyFile) ||
		errors.Is(err, excel.ErrUnreadable) ||
		errors.Is(err, excel.ErrNoSheets) ||
		errors.Is(err, parser.ErrNoDataRows) ||
		errors.As(err, &missing)
}

// Coordinator 导入协调器：解析 -> 校验 -> 转换，产出待确认批次
type Coordinator struct {
	engine *calculator.Engine
}

// NewCoordinator 创建导入协调器
func NewCoordinator(engine *calculator.Engine) *Coordinator {
	return &Coordinator{engine: engine}
}

// Engine 当前计算引擎
func (c *Coordinator) Engine() *calculator.Engine {
	return c.engine
}

// PrepareOptions 导入选项
type PrepareOptions struct {
	Operator string
	Filename string
	Data     io.Reader
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/parsed/validated/invalid/transformed/done/error
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Prepare 同步执行解析、校验、转换
// 结构性错误直接返回；校验失败返回 *RejectedError。
func (c *Coordinator) Prepare(opts PrepareOptions) (*Batch, error) {
	return c.run(opts, func(ProgressEvent) {})
}

// PrepareStream 异步执行，返回进度通道；最后一个事件为 done 或 invalid 或 error
func (c *Coordinator) PrepareStream(opts PrepareOptions) (<-chan ProgressEvent, func() *Batch) {
	progressChan := make(chan ProgressEvent, 16)
	var batch *Batch

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(progressChan)
		b, err := c.run(opts, func(ev ProgressEvent) { progressChan <- ev })
		var rejected *RejectedError
		switch {
		case errors.As(err, &rejected):
			// invalid 事件已发送
		case err != nil:
			progressChan <- ProgressEvent{Type: "error", Message: err.Error(), Timestamp: time.Now()}
		default:
			batch = b
		}
	}()

	return progressChan, func() *Batch {
		<-done
		return batch
	}
}

func (c *Coordinator) run(opts PrepareOptions, emit func(ProgressEvent)) (*Batch, error) {
	filename := filepath.Base(strings.TrimSpace(opts.Filename))
	emit(ProgressEvent{
		Type:      "start",
		Message:   "Reading uploaded spreadsheet",
		Data:      map[string]string{"filename": filename},
		Timestamp: time.Now(),
	})

	grid, err := excel.ReadFirstSheet(opts.Data, filename)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	rows, err := parser.ParseGrid(grid)
	if err != nil {
		return nil, fmt.Errorf("parse spreadsheet: %w", err)
	}

	batch := NewBatch(opts.Operator, filename, rows)
	emit(ProgressEvent{
		Type:      "parsed",
		Message:   fmt.Sprintf("Parsed %d data rows", len(rows)),
		Data:      map[string]interface{}{"batchId": batch.ID, "rows": len(rows)},
		Timestamp: time.Now(),
	})

	// 表头为第 1 行，首个数据行为第 2 行
	if errs := Validate(rows, 2); len(errs) > 0 {
		emit(ProgressEvent{
			Type:      "invalid",
			Message:   fmt.Sprintf("Validation failed with %d error(s)", len(errs)),
			Data:      errs,
			Timestamp: time.Now(),
		})
		return nil, &RejectedError{Errors: errs}
	}
	if err := batch.MarkValidated(); err != nil {
		return nil, err
	}
	emit(ProgressEvent{Type: "validated", Message: "All rows passed validation", Timestamp: time.Now()})

	if err := batch.SetRecords(Transform(batch.ID, rows, c.engine)); err != nil {
		return nil, err
	}
	emit(ProgressEvent{
		Type:      "transformed",
		Message:   "Pricing and earnings calculated",
		Data:      map[string]interface{}{"records": len(batch.Records)},
		Timestamp: time.Now(),
	})

	emit(ProgressEvent{
		Type:      "done",
		Message:   "Ready for review",
		Data:      batch.Preview(),
		Timestamp: time.Now(),
	})
	return batch, nil
}
