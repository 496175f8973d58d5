package embedcache

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/config"
)

// Wrapper stacks the cache layers so lookups go LRU, then Redis, then the
// database, then the provider.
func Wrapper(cfg config.EmbedCacheConfig, client redis.UniversalClient, store Store) ai.EmbedderWrapper {
	return func(e ai.IEmbedder) ai.IEmbedder {
		if cfg.UseDB && store != nil {
			e = WrapDB(e, store)
		}
		if client != nil {
			e = WrapRedis(e, client, time.Duration(cfg.RedisTTLHours)*time.Hour)
		}
		return WrapLRU(e, cfg.LRUSize, time.Duration(cfg.LRUTTLSeconds)*time.Second)
	}
}
