package session

import (
	"context"
	"errors"
	"time"

	"choma/internal/importer"
)

// ErrBatchNotFound 没有暂存批次，或批次已过期、已被确认/取消
var ErrBatchNotFound = errors.New("staged batch not found")

// DefaultTTL 暂存批次的默认有效期
const DefaultTTL = 30 * time.Minute

// Store 按操作员会话暂存待确认批次；每个会话同时只有一个批次
type Store interface {
	// Put 暂存批次，覆盖该会话之前的批次
	Put(ctx context.Context, b *importer.Batch) error
	// Get 读取会话当前批次
	Get(ctx context.Context, operator string) (*importer.Batch, error)
	// Take 取出并移除指定批次，保证同一批次只会被提交一次
	Take(ctx context.Context, operator, batchID string) (*importer.Batch, error)
	// Delete 丢弃指定批次
	Delete(ctx context.Context, operator, batchID string) error
}
