package embedcache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/config"
	"github.com/xxxsen/smartnote/internal/model"
)

type countingEmbedder struct {
	model string
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) (*ai.Embedding, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &ai.Embedding{Model: c.model, Vector: []float32{float32(len(text)), 1}}, nil
}

func (c *countingEmbedder) ModelName() string {
	return c.model
}

type memStore struct {
	items   map[string][]float32
	getErr  error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{items: map[string][]float32{}}
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.items[modelName+"|"+taskType+"|"+contentHash]
	return v, ok, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.ModelName+"|"+item.TaskType+"|"+item.ContentHash] = item.Embedding
	return nil
}

func TestBuildCacheKey(t *testing.T) {
	a := buildCacheKey("m", ai.TaskRetrievalDocument, "hello")
	b := buildCacheKey("m", ai.TaskRetrievalQuery, "hello")
	require.NotEqual(t, a.String(), b.String())
	require.Len(t, a.ContentHash, 64)
	require.Equal(t, "unknown", buildCacheKey(" ", "t", "x").Model)
}

func TestLRUCachesByTaskType(t *testing.T) {
	next := &countingEmbedder{model: "p/m"}
	e := WrapLRU(next, 10, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, "hello", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	second, err := e.Embed(ctx, "hello", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, 1, next.calls)
	require.Equal(t, first.Vector, second.Vector)
	require.Equal(t, "p/m", second.Model)

	_, err = e.Embed(ctx, "hello", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestLRUDisabled(t *testing.T) {
	next := &countingEmbedder{model: "p/m"}
	require.Same(t, next, WrapLRU(next, 0, time.Minute).(*countingEmbedder))
}

func TestLRUDoesNotCacheErrors(t *testing.T) {
	next := &countingEmbedder{model: "p/m", err: errors.New("down")}
	e := WrapLRU(next, 10, time.Minute)
	_, err := e.Embed(context.Background(), "x", ai.TaskRetrievalQuery)
	require.Error(t, err)
	_, err = e.Embed(context.Background(), "x", ai.TaskRetrievalQuery)
	require.Error(t, err)
	require.Equal(t, 2, next.calls)
}

func TestDBCache(t *testing.T) {
	next := &countingEmbedder{model: "p/m"}
	store := newMemStore()
	e := WrapDB(next, store)
	ctx := context.Background()

	_, err := e.Embed(ctx, "note body", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	res, err := e.Embed(ctx, "note body", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, 1, next.calls)
	require.Equal(t, 1, store.saves)
	require.Equal(t, "p/m", res.Model)
}

func TestDBCacheFailuresDoNotFailEmbed(t *testing.T) {
	next := &countingEmbedder{model: "p/m"}
	store := newMemStore()
	store.getErr = errors.New("read failed")
	store.saveErr = errors.New("write failed")
	e := WrapDB(next, store)
	res, err := e.Embed(context.Background(), "x", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.NotEmpty(t, res.Vector)
}

func TestVectorCodec(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, ok := decodeVector(encodeVector(in))
	require.True(t, ok)
	require.Equal(t, in, out)

	_, ok = decodeVector([]byte{1, 2, 3})
	require.False(t, ok)
	_, ok = decodeVector(nil)
	require.False(t, ok)
}

func TestWrapperOrder(t *testing.T) {
	next := &countingEmbedder{model: "p/m"}
	store := newMemStore()
	wrap := Wrapper(config.EmbedCacheConfig{LRUSize: 5, LRUTTLSeconds: 60, UseDB: true}, nil, store)
	e := wrap(next)
	_, ok := e.(*lruEmbedder)
	require.True(t, ok)
	_, err := e.Embed(context.Background(), "a", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, 1, store.saves)
	require.Equal(t, "p/m", e.ModelName())
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	next := &countingEmbedder{model: "test/redis-" + time.Now().Format("150405.000000")}
	e := WrapRedis(next, client, time.Minute)
	first, err := e.Embed(ctx, "cached text", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	second, err := e.Embed(ctx, "cached text", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, 1, next.calls)
	require.Equal(t, first.Vector, second.Vector)
}

func TestNewRedisClientDisabled(t *testing.T) {
	client, err := NewRedisClient(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	require.Nil(t, client)
}
