package nutrition

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/core/drv"
	"github.com/arpheno/mealprep/internal/core/nutrient"
	"github.com/arpheno/mealprep/internal/core/plan"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler 營養目標與食材端點
type Handler struct {
	store *catalog.Store
}

// NewHandler 創建 handler
func NewHandler(store *catalog.Store) *Handler {
	return &Handler{store: store}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "id 必須是正整數",
		})
		return 0, false
	}
	return uint(id), true
}

// newDRVResolver 每次請求重建 resolver，目標值永遠反映當前型錄
func (h *Handler) newDRVResolver() (*drv.Resolver, []catalog.DietaryReferenceValue, error) {
	nutrients, err := h.store.ListNutrientsWithAliases()
	if err != nil {
		return nil, nil, err
	}
	records, err := h.store.ListDRVs()
	if err != nil {
		return nil, nil, err
	}
	return drv.NewResolver(nutrient.NewResolver(nutrients)), records, nil
}

// GetProfileTargets GET /api/v1/profiles/:id/targets
func (h *Handler) GetProfileTargets(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	profile, err := h.store.GetProfile(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, common.ErrorResponse{
				Code:    common.ErrCodeNotFound,
				Message: "profile 不存在",
			})
			return
		}
		common.LogError("讀取 profile 失敗", zap.Uint("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    common.ErrCodeInternalError,
			Message: "讀取 profile 失敗",
		})
		return
	}

	resolver, records, err := h.newDRVResolver()
	if err != nil {
		common.LogError("讀取參考值失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    common.ErrCodeInternalError,
			Message: "讀取參考值失敗",
		})
		return
	}

	targets := resolver.Resolve(profile, records)
	c.JSON(http.StatusOK, gin.H{
		"profile_id": profile.ID,
		"targets":    targets,
	})
}

// GetPlanTargets GET /api/v1/plans/:id/targets
// 成員目標逐一解析後聚合；單位衝突的貢獻會被跳過並列在 warnings
func (h *Handler) GetPlanTargets(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	mealPlan, err := h.store.GetPlan(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, common.ErrorResponse{
				Code:    common.ErrCodeNotFound,
				Message: "meal plan 不存在",
			})
			return
		}
		common.LogError("讀取 meal plan 失敗", zap.Uint("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    common.ErrCodeInternalError,
			Message: "讀取 meal plan 失敗",
		})
		return
	}

	resolver, records, err := h.newDRVResolver()
	if err != nil {
		common.LogError("讀取參考值失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    common.ErrCodeInternalError,
			Message: "讀取參考值失敗",
		})
		return
	}

	perProfile := make([]plan.ProfileTargets, 0, len(mealPlan.Profiles))
	for i := range mealPlan.Profiles {
		p := &mealPlan.Profiles[i]
		perProfile = append(perProfile, plan.ProfileTargets{
			ProfileID: p.ID,
			Targets:   resolver.Resolve(p, records),
		})
	}

	aggregated, err := plan.Aggregate(perProfile)
	response := gin.H{
		"plan_id":  mealPlan.ID,
		"profiles": len(mealPlan.Profiles),
		"targets":  aggregated,
	}

	var mismatch *plan.UnitMismatchError
	if errors.As(err, &mismatch) {
		common.LogWarn("計畫目標聚合發現單位衝突",
			zap.Uint("plan_id", mealPlan.ID),
			zap.Int("conflicts", len(mismatch.Conflicts)))
		warnings := make([]gin.H, len(mismatch.Conflicts))
		for i, conflict := range mismatch.Conflicts {
			warnings[i] = gin.H{
				"nutrient":   conflict.Nutrient,
				"profile_id": conflict.ProfileID,
				"unit":       conflict.Unit,
				"want":       conflict.Want,
			}
		}
		response["warnings"] = warnings
	}

	c.JSON(http.StatusOK, response)
}
