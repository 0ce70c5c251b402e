package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_AssignsAndLogsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.InfoLevel)
	prev := Log
	Log = zap.New(core)
	t.Cleanup(func() { Log = prev })

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) {
		Info(c, "handled")
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "handled", entries[0].Message)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "http_request", entries[1].Message)
	assert.EqualValues(t, http.StatusOK, entries[1].ContextMap()["status"])
}

func TestRequestID_FromPlainContext(t *testing.T) {
	assert.Equal(t, "unknown", requestID(context.Background()))
	assert.Equal(t, "abc", requestID(WithRequestID(context.Background(), "abc")))
}

func TestInitialize_RejectsBadLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	assert.Error(t, Initialize("development", "loud"))
	require.NoError(t, Initialize("production", "warn"))
}
