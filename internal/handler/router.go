package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/smartnote/internal/middleware"
)

type RouterDeps struct {
	Auth        *AuthHandler
	Notes       *NoteHandler
	AI          *AIHandler
	Export      *ExportHandler
	Health      *HealthHandler
	Properties  *PropertiesHandler
	JWTSecret   []byte
	AIRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Health)
	api.GET("/properties", deps.Properties.Get)
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/notes", deps.Notes.Create)
	authGroup.GET("/notes", deps.Notes.List)
	authGroup.GET("/notes/:id", deps.Notes.Get)
	authGroup.PUT("/notes/:id", deps.Notes.Update)
	authGroup.DELETE("/notes/:id", deps.Notes.Delete)
	authGroup.GET("/notes/:id/related", deps.AI.Related)
	authGroup.POST("/notes/:id/enrich", middleware.RateLimit(deps.AIRateLimit), deps.AI.Enrich)
	authGroup.GET("/search/semantic", deps.AI.SemanticSearch)
	authGroup.GET("/tags", deps.Notes.Tags)

	aiGroup := authGroup.Group("/ai")
	aiGroup.Use(middleware.RateLimit(deps.AIRateLimit))
	aiGroup.POST("/summary", deps.AI.Summary)
	aiGroup.POST("/tags", deps.AI.Tags)

	authGroup.POST("/export", deps.Export.Export)
	authGroup.GET("/files/:key", deps.Export.Download)
}
