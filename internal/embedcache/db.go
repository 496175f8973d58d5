package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/model"
)

// Store persists cached embeddings. *repo.EmbeddingCacheRepo satisfies it.
type Store interface {
	Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

func WrapDB(e ai.IEmbedder, store Store) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store Store
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) (*ai.Embedding, error) {
	logger := logutil.GetLogger(ctx)
	key := buildCacheKey(d.next.ModelName(), taskType, text)
	values, ok, err := d.store.Get(ctx, key.Model, key.TaskType, key.ContentHash)
	if err != nil {
		logger.Warn("read embedding cache failed", zap.Error(err))
	}
	if ok && len(values) > 0 {
		logger.Debug("embedding cache hit (db)", zap.String("task_type", taskType))
		return &ai.Embedding{Model: d.next.ModelName(), Vector: values}, nil
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := d.store.Save(ctx, &model.EmbeddingCache{
		ModelName:   key.Model,
		TaskType:    key.TaskType,
		ContentHash: key.ContentHash,
		Embedding:   res.Vector,
		Ctime:       time.Now().Unix(),
	}); err != nil {
		logger.Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
