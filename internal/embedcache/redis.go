package embedcache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/config"
)

const redisKeyPrefix = "smartnote:"

// NewRedisClient returns nil when no address is configured.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func WrapRedis(e ai.IEmbedder, client redis.UniversalClient, ttl time.Duration) ai.IEmbedder {
	if e == nil || client == nil {
		return e
	}
	return &redisEmbedder{next: e, client: client, ttl: ttl}
}

type redisEmbedder struct {
	next   ai.IEmbedder
	client redis.UniversalClient
	ttl    time.Duration
}

func (r *redisEmbedder) Embed(ctx context.Context, text string, taskType string) (*ai.Embedding, error) {
	logger := logutil.GetLogger(ctx)
	key := redisKeyPrefix + buildCacheKey(r.next.ModelName(), taskType, text).String()
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if values, ok := decodeVector(raw); ok {
			logger.Debug("embedding cache hit (redis)", zap.String("task_type", taskType))
			return &ai.Embedding{Model: r.next.ModelName(), Vector: values}, nil
		}
		logger.Warn("drop malformed redis embedding", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		logger.Warn("read redis embedding cache failed", zap.Error(err))
	}
	res, err := r.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := r.client.Set(ctx, key, encodeVector(res.Vector), r.ttl).Err(); err != nil {
		logger.Warn("write redis embedding cache failed", zap.Error(err))
	}
	return res, nil
}

func (r *redisEmbedder) ModelName() string {
	return r.next.ModelName()
}

func encodeVector(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, bool) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, false
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, true
}
