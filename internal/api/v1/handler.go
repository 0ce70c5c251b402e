package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"choma/internal/importer"
	"choma/internal/model"
	"choma/internal/session"
	"choma/internal/submit"
)

// OperatorHeader 操作员会话请求头，暂存批次按它隔离
const OperatorHeader = "X-Operator-Session"

// defaultOperator 未携带会话头时使用的会话
const defaultOperator = "default"

// Repository 餐品与导入日志存储（SQLite / MongoDB）
type Repository interface {
	submit.MealRepository
	importer.ImportLogWriter
	ListMeals(ctx context.Context, limit, offset int) ([]model.StoredMeal, error)
	CountMeals(ctx context.Context) (int64, error)
	ListImportLogs(ctx context.Context, limit int) ([]model.ImportLog, error)
	LastImportLog(ctx context.Context) (*model.ImportLog, error)
	Driver() string
}

// Options 处理器选项
type Options struct {
	MaxUploadBytes int64
	TemplateRows   int
	SubmitMode     string
}

// Handler V1 API 处理器
type Handler struct {
	coordinator *importer.Coordinator
	sessions    session.Store
	submitter   *importer.Submitter
	repo        Repository
	bulk        *submit.StoreBackend
	validate    *validator.Validate
	opts        Options
}

// NewHandler 创建 V1 API 处理器
func NewHandler(coordinator *importer.Coordinator, sessions session.Store, submitter *importer.Submitter, repo Repository, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.TemplateRows < 0 {
		opts.TemplateRows = 0
	}
	return &Handler{
		coordinator: coordinator,
		sessions:    sessions,
		submitter:   submitter,
		repo:        repo,
		bulk:        submit.NewStoreBackend(repo),
		validate:    newRequestValidator(),
		opts:        opts,
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 批量导入：模板、预览、确认、取消
	router.GET("/meals/import/template", h.DownloadTemplate)
	router.POST("/meals/import/preview", h.Preview)
	router.POST("/meals/import/preview/stream", h.PreviewStream)
	router.POST("/meals/import/:batchId/confirm", h.Confirm)
	router.DELETE("/meals/import/:batchId", h.Cancel)
	router.GET("/meals/import/logs", h.ListImportLogs)

	// 餐品
	router.GET("/meals", h.ListMeals)
	router.POST("/meals/bulk", h.BulkCreate)

	// 成本模型
	router.GET("/meals/pricing/model", h.GetCostModel)
	router.POST("/meals/pricing/quote", h.Quote)
}

func operatorOf(c *gin.Context) string {
	if op := c.GetHeader(OperatorHeader); op != "" {
		return op
	}
	return defaultOperator
}
