package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"choma/internal/importer"
	"choma/internal/logger"
	"choma/internal/service/excel"
	"choma/internal/session"
)

// multipartSlack 请求体上限在文件上限之外为 multipart 边界留出的余量
const multipartSlack = 1 << 20

// DownloadTemplate 下载导入模板
// GET /api/meals/import/template
func (h *Handler) DownloadTemplate(c *gin.Context) {
	wb, err := excel.GenerateTemplate(h.opts.TemplateRows)
	if err != nil {
		logger.Error(c, "generate template failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate template"})
		return
	}
	defer wb.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", excel.TemplateFilename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := wb.Write(c.Writer); err != nil {
		logger.Error(c, "write template failed", err)
	}
}

// Preview 解析、校验、转换上传文件，暂存批次并返回预览
// POST /api/meals/import/preview
func (h *Handler) Preview(c *gin.Context) {
	fh, ok := h.uploadedFile(c)
	if !ok {
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer f.Close()

	batch, err := h.coordinator.Prepare(importer.PrepareOptions{
		Operator: operatorOf(c),
		Filename: fh.Filename,
		Data:     f,
	})
	if err != nil {
		h.respondPrepareError(c, err)
		return
	}

	if err := h.sessions.Put(c.Request.Context(), batch); err != nil {
		logger.Error(c, "stage batch failed", err, zap.String("batch_id", batch.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage batch"})
		return
	}

	logger.Info(c, "batch staged",
		zap.String("batch_id", batch.ID),
		zap.String("operator", batch.Operator),
		zap.Int("rows", len(batch.Records)),
	)
	c.JSON(http.StatusOK, batch.Preview())
}

// PreviewStream 预览的流式版本 (SSE)，最后一个事件为 done / invalid / error
// POST /api/meals/import/preview/stream
func (h *Handler) PreviewStream(c *gin.Context) {
	fh, ok := h.uploadedFile(c)
	if !ok {
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer f.Close()

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	progressChan, result := h.coordinator.PrepareStream(importer.PrepareOptions{
		Operator: operatorOf(c),
		Filename: fh.Filename,
		Data:     f,
	})

	for event := range progressChan {
		// done 事件发出前先暂存批次，客户端收到后即可确认
		if event.Type == "done" {
			if batch := result(); batch != nil {
				if err := h.sessions.Put(c.Request.Context(), batch); err != nil {
					logger.Error(c, "stage batch failed", err, zap.String("batch_id", batch.ID))
					event = importer.ProgressEvent{Type: "error", Message: "failed to stage batch", Timestamp: time.Now()}
				}
			}
		}

		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// Confirm 提交暂存批次；提交开始后不随请求取消
// POST /api/meals/import/:batchId/confirm
func (h *Handler) Confirm(c *gin.Context) {
	batchID := c.Param("batchId")

	batch, err := h.sessions.Take(c.Request.Context(), operatorOf(c), batchID)
	if err != nil {
		h.respondSessionError(c, batchID, err)
		return
	}

	ctx := logger.WithRequestID(context.WithoutCancel(c.Request.Context()), c.GetString(logger.RequestIDKey))
	result, err := h.submitter.Submit(ctx, batch)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c, "submit batch failed", err, zap.String("batch_id", batchID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit batch"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cancel 放弃暂存批次
// DELETE /api/meals/import/:batchId
func (h *Handler) Cancel(c *gin.Context) {
	batchID := c.Param("batchId")

	batch, err := h.sessions.Take(c.Request.Context(), operatorOf(c), batchID)
	if err != nil {
		h.respondSessionError(c, batchID, err)
		return
	}
	if err := batch.Cancel(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	logger.Info(c, "batch cancelled", zap.String("batch_id", batchID))
	c.JSON(http.StatusOK, gin.H{"batchId": batch.ID, "stage": batch.Stage})
}

// ListImportLogs 最近的导入记录
// GET /api/meals/import/logs?limit=20
func (h *Handler) ListImportLogs(c *gin.Context) {
	limit := queryInt(c, "limit", 20)

	logs, err := h.repo.ListImportLogs(c.Request.Context(), limit)
	if err != nil {
		logger.Error(c, "list import logs failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list import logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// uploadedFile 读取表单中的 file 字段并检查大小；失败时已写入响应
func (h *Handler) uploadedFile(c *gin.Context) (*multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes+multipartSlack)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.opts.MaxUploadBytes)})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return nil, false
	}
	if fh.Size > h.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.opts.MaxUploadBytes)})
		return nil, false
	}
	return fh, true
}

// respondPrepareError 结构性错误 400，校验失败 422（附全部行错误）
func (h *Handler) respondPrepareError(c *gin.Context, err error) {
	var rejected *importer.RejectedError
	switch {
	case errors.As(err, &rejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"errors": rejected.Errors,
		})
	case importer.IsStructural(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(c, "prepare batch failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process file"})
	}
}

func (h *Handler) respondSessionError(c *gin.Context, batchID string, err error) {
	if errors.Is(err, session.ErrBatchNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("batch %s not found or expired", batchID)})
		return
	}
	logger.Error(c, "load staged batch failed", err, zap.String("batch_id", batchID))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load staged batch"})
}
