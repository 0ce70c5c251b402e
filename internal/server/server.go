package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "choma/internal/api/v1"
	"choma/internal/config"
	"choma/internal/importer"
	"choma/internal/logger"
	"choma/internal/service/calculator"
)

// Server HTTP服务器
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	repo         Repository
	closeSession func() error
	v1           *v1.Handler
}

// NewServer 创建服务器并按配置装配存储、暂存和提交后端
func NewServer(ctx context.Context, cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sessions, closeSession, err := OpenSessionStore(ctx, cfg)
	if err != nil {
		repo.Close()
		return nil, err
	}
	backend, err := NewBackend(cfg, repo)
	if err != nil {
		closeSession()
		repo.Close()
		return nil, err
	}

	engine := calculator.NewEngine(cfg.Pricing.CostModel())
	v1Handler := v1.NewHandler(
		importer.NewCoordinator(engine),
		sessions,
		importer.NewSubmitter(backend, repo),
		repo,
		v1.Options{
			MaxUploadBytes: cfg.Import.MaxUploadBytes(),
			TemplateRows:   cfg.Import.TemplateRows,
			SubmitMode:     cfg.Submit.Mode,
		},
	)

	s := &Server{
		router:       gin.New(),
		repo:         repo,
		closeSession: closeSession,
		v1:           v1Handler,
	}
	s.setupRoutes()

	logger.Log.Info("server components ready",
		zap.String("storage", repo.Driver()),
		zap.String("session", cfg.Session.Driver),
		zap.String("submit", cfg.Submit.Mode),
		zap.String("cost_model", engine.Model().Version),
	)
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), logger.RequestLogger())

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, "+v1.OperatorHeader)
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// V1 API 路由
	api := s.router.Group("/api")
	{
		s.v1.RegisterRoutes(api)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，阻塞直到 Shutdown
func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收请求并关闭存储与暂存连接
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.closeSession(); err != nil {
		errs = append(errs, err)
	}
	if err := s.repo.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
