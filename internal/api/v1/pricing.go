package v1

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"choma/internal/service/calculator"
)

// QuoteRequest 单个餐品报价请求
type QuoteRequest struct {
	Ingredients     float64 `json:"ingredients" validate:"gt=0"`
	Packaging       float64 `json:"packaging" validate:"gte=0"`
	Delivery        float64 `json:"delivery" validate:"gte=0"`
	PlatformFee     float64 `json:"platformFee" validate:"gte=0"`
	PreparationTime float64 `json:"preparationTime" validate:"gte=0"`
}

// newRequestValidator 校验错误使用 JSON 字段名
func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// GetCostModel 当前成本模型参数
// GET /api/meals/pricing/model
func (h *Handler) GetCostModel(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.Engine().Model())
}

// Quote 按与导入相同的规则计算单个餐品的价格拆分
// POST /api/meals/pricing/quote
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote request", "details": describeValidation(err)})
		return
	}

	c.JSON(http.StatusOK, h.coordinator.Engine().Quote(calculator.Inputs{
		Ingredients:     req.Ingredients,
		Packaging:       req.Packaging,
		Delivery:        req.Delivery,
		PlatformFee:     req.PlatformFee,
		PreparationTime: req.PreparationTime,
	}))
}

func describeValidation(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "gt":
			out = append(out, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "gte":
			out = append(out, fmt.Sprintf("%s must be %s or more", fe.Field(), fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return out
}
