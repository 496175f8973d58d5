package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/config"
	"github.com/xxxsen/smartnote/internal/db"
	"github.com/xxxsen/smartnote/internal/embedcache"
	"github.com/xxxsen/smartnote/internal/filestore"
	"github.com/xxxsen/smartnote/internal/repo"
	"github.com/xxxsen/smartnote/internal/service"
)

// app holds the long lived dependencies shared by the sub commands.
type app struct {
	db         *sql.DB
	redis      *redis.Client
	embedCache *repo.EmbeddingCacheRepo
	auth       *service.AuthService
	notes      *service.NoteService
	ai         *service.AIService
	enrich     *service.EnrichService
	export     *service.ExportService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	a := &app{db: conn}

	a.redis, err = embedcache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	userRepo := repo.NewUserRepo(conn)
	noteRepo := repo.NewNoteRepo(conn)
	embeddingRepo := repo.NewNoteEmbeddingRepo(conn)
	a.embedCache = repo.NewEmbeddingCacheRepo(conn)

	var cacheClient redis.UniversalClient
	if a.redis != nil {
		cacheClient = a.redis
	}
	var cacheStore embedcache.Store
	if cfg.AI.EmbedCache.UseDB {
		cacheStore = a.embedCache
	}
	manager, err := ai.Build(cfg.AI, embedcache.Wrapper(cfg.AI.EmbedCache, cacheClient, cacheStore))
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}

	a.auth = service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours), cfg.Properties.EnableUserRegister)
	a.notes = service.NewNoteService(noteRepo, embeddingRepo)
	a.ai = service.NewAIService(manager, noteRepo, embeddingRepo, service.AIServiceConfig{
		SearchThreshold:     cfg.AI.SearchThreshold,
		ShortQueryThreshold: cfg.AI.ShortQueryThreshold,
		RelatedThreshold:    cfg.AI.RelatedThreshold,
	})
	a.enrich = service.NewEnrichService(noteRepo, manager, a.ai)
	a.export = service.NewExportService(noteRepo, store)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
