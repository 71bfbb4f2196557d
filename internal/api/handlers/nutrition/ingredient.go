package nutrition

import (
	"net/http"
	"strconv"

	"github.com/arpheno/mealprep/internal/core/ai"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IngredientHandler 食材查詢與 AI 生成端點
type IngredientHandler struct {
	base    *Handler
	aiSvc   *ai.Service
	enabled bool
}

// NewIngredientHandler 創建食材 handler；aiSvc 可為 nil（生成端點回 503）
func NewIngredientHandler(base *Handler, aiSvc *ai.Service) *IngredientHandler {
	return &IngredientHandler{
		base:    base,
		aiSvc:   aiSvc,
		enabled: aiSvc != nil,
	}
}

// generateRequest POST /api/v1/ingredients/generate 請求體
type generateRequest struct {
	Description string `json:"description" binding:"required"`
}

// Generate POST /api/v1/ingredients/generate
func (h *IngredientHandler) Generate(c *gin.Context) {
	if !h.enabled {
		c.JSON(http.StatusServiceUnavailable, common.ErrorResponse{
			Code:    common.ErrCodeServiceUnavailable,
			Message: "AI 食材生成未啟用",
		})
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "description 為必填欄位",
		})
		return
	}

	ing, err := h.aiSvc.GenerateIngredient(c.Request.Context(), req.Description)
	if err != nil {
		common.LogError("AI 食材生成失敗",
			zap.String("description", req.Description),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, common.ErrorResponse{
			Code:    common.ErrAIServiceError.Code,
			Message: "食材生成失敗",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, ing)
}

// Search GET /api/v1/ingredients?search=&limit=
func (h *IngredientHandler) Search(c *gin.Context) {
	query := c.Query("search")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	ingredients, err := h.base.store.SearchIngredients(query, limit)
	if err != nil {
		common.LogError("食材查詢失敗", zap.String("search", query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    common.ErrCodeInternalError,
			Message: "食材查詢失敗",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":       len(ingredients),
		"ingredients": ingredients,
	})
}
