package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"choma/internal/model"
)

// HTTPOptions 远程批量端点配置
type HTTPOptions struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	// 每秒请求数；<= 0 表示不限流
	RatePerSecond float64
	Burst         int
}

// HTTPBackend 通过 HTTP 调用远程批量创建端点
type HTTPBackend struct {
	endpoint string
	token    string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPBackend 创建 HTTP 后端
func NewHTTPBackend(opts HTTPOptions) (*HTTPBackend, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("submit endpoint is empty")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &HTTPBackend{
		endpoint: opts.Endpoint,
		token:    opts.Token,
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
	}, nil
}

// BulkCreate 发送一次批量请求；非 2xx、超时、响应无法解析都视为整批失败
func (b *HTTPBackend) BulkCreate(ctx context.Context, req model.BulkCreateRequest) (*model.BulkCreateResponse, error) {
	if len(req.Meals) == 0 {
		return nil, ErrEmptyBatch
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("bulk create request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bulk create returned %d: %s", resp.StatusCode, snippet(raw))
	}

	var out model.BulkCreateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func snippet(b []byte) string {
	const max = 200
	s := string(bytes.TrimSpace(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
