package api

import (
	"context"
	"net/http"
	"time"

	"github.com/arpheno/mealprep/internal/api/handlers/health"
	"github.com/arpheno/mealprep/internal/api/handlers/nutrition"
	"github.com/arpheno/mealprep/internal/api/middleware"
	"github.com/arpheno/mealprep/internal/core/ai"
	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/infrastructure/config"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// 超時設置
	timeoutDuration = 60 * time.Second
	// 請求體大小限制 (1MB)；這個服務沒有大 payload
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, db *gorm.DB) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 初始化服務
	store := catalog.NewStore(db)
	targetsHandler := nutrition.NewHandler(store)

	var aiSvc *ai.Service
	if cfg.OpenAI.Enabled {
		aiCache, err := ai.NewCache(&cfg.Cache)
		if err != nil {
			common.LogError("Failed to initialize AI cache", zap.Error(err))
			return nil, err
		}
		aiSvc = ai.NewService(store, ai.NewClient(&cfg.OpenAI), aiCache)
	}
	ingredientHandler := nutrition.NewIngredientHandler(targetsHandler, aiSvc)

	common.LogInfo("Services initialized",
		zap.Bool("ai_enabled", cfg.OpenAI.Enabled),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("database_driver", cfg.Database.Driver),
	)

	// 全局中間件：設置超時與共用依賴
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		// 健康檢查會用到
		c.Set("config", cfg)
		c.Set("db", db)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeGatewayTimeout,
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		// 個人與計畫的營養目標
		api.GET("/profiles/:id/targets", targetsHandler.GetProfileTargets)
		api.GET("/plans/:id/targets", targetsHandler.GetPlanTargets)

		// 食材查詢與 AI 生成
		ingredients := api.Group("/ingredients")
		{
			ingredients.GET("", ingredientHandler.Search)
			ingredients.POST("/generate", ingredientHandler.Generate)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
