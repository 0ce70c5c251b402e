package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"choma/internal/importer"
)

// RedisStore 基于 Redis 的暂存，多实例部署时共享
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient 按 URL（redis://host:port/db）创建客户端并检查连通性
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// NewRedisStore 创建 Redis 暂存；ttl <= 0 时使用 DefaultTTL
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func batchKey(operator string) string {
	return fmt.Sprintf("meal_import:batch:%s", operator)
}

func (s *RedisStore) Put(ctx context.Context, b *importer.Batch) error {
	data, err := encodeBatch(b)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, batchKey(b.Operator), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, operator string) (*importer.Batch, error) {
	data, err := s.client.Get(ctx, batchKey(operator)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load staged batch: %w", err)
	}
	return decodeBatch(data)
}

func (s *RedisStore) Take(ctx context.Context, operator, batchID string) (*importer.Batch, error) {
	key := batchKey(operator)

	// WATCH 保证读取与删除之间键未被改写，只有提交成功的一方拿到批次
	var taken *importer.Batch
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrBatchNotFound
		}
		if err != nil {
			return fmt.Errorf("load staged batch: %w", err)
		}
		b, err := decodeBatch(data)
		if err != nil {
			return err
		}
		if b.ID != batchID {
			return ErrBatchNotFound
		}

		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		}); err != nil {
			return err
		}
		taken = b
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return taken, nil
}

func (s *RedisStore) Delete(ctx context.Context, operator, batchID string) error {
	_, err := s.Take(ctx, operator, batchID)
	return err
}

func encodeBatch(b *importer.Batch) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode staged batch: %w", err)
	}
	return data, nil
}

func decodeBatch(data []byte) (*importer.Batch, error) {
	var b importer.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode staged batch: %w", err)
	}
	return &b, nil
}
