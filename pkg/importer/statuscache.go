package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitalvault/importer/pkg/common/config"
	"github.com/vitalvault/importer/pkg/common/logger"
	"github.com/vitalvault/importer/pkg/common/models"
)

// StatusCache mirrors per-file import status into Redis so the dashboard can
// poll progress without hitting the import service. Writes are best-effort:
// a cache failure is logged and never changes an import's outcome.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(cfg *config.Config) *StatusCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &StatusCache{client: client, ttl: cfg.StatusCacheTTL}
}

func (c *StatusCache) Publish(ctx context.Context, pf models.ProcessedFile) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(pf)
	if err != nil {
		return
	}
	key := fmt.Sprintf("import:file:%s", pf.ID)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.WithField("file", pf.Name).WithField("error", err.Error()).
			Warn("failed to mirror file status to cache")
	}
}

func (c *StatusCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
