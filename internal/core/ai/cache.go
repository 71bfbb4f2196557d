package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/arpheno/mealprep/internal/infrastructure/config"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// Cache AI 回應快取。只快取模型的原始輸出，
// 解析後的目標值與資料庫內容永遠即時重算。
type Cache struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewCache 創建快取服務；停用時回傳 no-op 實例
func NewCache(cfg *config.CacheConfig) (*Cache, error) {
	if !cfg.Enabled {
		return &Cache{config: cfg}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client: client,
		config: cfg,
	}, nil
}

// Get 以食品描述查快取；miss 或停用時回傳 false
func (c *Cache) Get(ctx context.Context, description string) (string, bool) {
	if !c.config.Enabled || c.client == nil {
		return "", false
	}

	key := c.generateKey(description)
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			common.LogWarn("快取讀取失敗")
		}
		common.LogCacheMiss("ai_food", key)
		return "", false
	}

	common.LogCacheHit("ai_food", key)
	return data, true
}

// Set 寫入快取；失敗只記 log，不影響主流程
func (c *Cache) Set(ctx context.Context, description, payload string) {
	if !c.config.Enabled || c.client == nil {
		return
	}

	key := c.generateKey(description)
	if err := c.client.Set(ctx, key, payload, c.config.TTL).Err(); err != nil {
		common.LogWarn("快取寫入失敗")
	}
}

// generateKey 以描述的雜湊當鍵，避免把使用者輸入原文放進 key
func (c *Cache) generateKey(description string) string {
	sum := sha256.Sum256([]byte(description))
	return "ai:food:" + hex.EncodeToString(sum[:])
}
