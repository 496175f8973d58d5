package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/config"
	"github.com/xxxsen/smartnote/internal/handler"
	"github.com/xxxsen/smartnote/internal/job"
	"github.com/xxxsen/smartnote/internal/middleware"
	"github.com/xxxsen/smartnote/internal/schedule"
)

func runServer(cfg *config.Config, a *app) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Bool("redis", a.redis != nil),
	)

	deps := handler.RouterDeps{
		Auth:   handler.NewAuthHandler(a.auth),
		Notes:  handler.NewNoteHandler(a.notes),
		AI:     handler.NewAIHandler(a.ai, a.enrich),
		Export: handler.NewExportHandler(a.export),
		Health: handler.NewHealthHandler(a.db),
		Properties: handler.NewPropertiesHandler(handler.Properties{
			EnableUserRegister: cfg.Properties.EnableUserRegister,
			EnableSummary:      len(cfg.AI.Summarizer) > 0,
			EnableTags:         len(cfg.AI.Tagger) > 0,
			EnableSemantic:     len(cfg.AI.Embedder) > 0,
		}),
		JWTSecret:   []byte(cfg.JWTSecret),
		AIRateLimit: time.Duration(cfg.AIRateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewNoteEnrichJob(a.enrich, cfg.Jobs.EnrichDelaySeconds), cfg.Jobs.EnrichSpec); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(a.embedCache, cfg.Jobs.CacheMaxAgeDays), cfg.Jobs.CacheCleanupSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
