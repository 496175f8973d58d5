package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	JWTSecret     string           `json:"jwt_secret"`
	JWTTTLHours   int              `json:"jwt_ttl_hours"`
	Database      DatabaseConfig   `json:"database"`
	LogConfig     logger.LogConfig `json:"log_config"`
	AI            AIConfig         `json:"ai"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Redis         RedisConfig      `json:"redis"`
	Jobs          JobsConfig       `json:"jobs"`
	Properties    Properties       `json:"properties"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	// AIRateLimitSeconds is the minimum gap between two calls of the same AI
	// endpoint by the same user.
	AIRateLimitSeconds int `json:"ai_rate_limit_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type Properties struct {
	EnableUserRegister bool `json:"enable_user_register"`
}

type AIProviderConfig struct {
	Name string      `json:"name"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// AIModelRef points one AI feature at a provider/model pair. Features hold a
// list of refs which are tried in order.
type AIModelRef struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type EmbedCacheConfig struct {
	LRUSize       int  `json:"lru_size"`
	LRUTTLSeconds int  `json:"lru_ttl_seconds"`
	RedisTTLHours int  `json:"redis_ttl_hours"`
	UseDB         bool `json:"use_db"`
}

type AIConfig struct {
	Providers           []AIProviderConfig `json:"providers"`
	Summarizer          []AIModelRef       `json:"summarizer"`
	Tagger              []AIModelRef       `json:"tagger"`
	Embedder            []AIModelRef       `json:"embedder"`
	Timeout             int                `json:"timeout"`
	MaxInputChars       int                `json:"max_input_chars"`
	MaxInputTokens      int                `json:"max_input_tokens"`
	MaxTags             int                `json:"max_tags"`
	SearchThreshold     float32            `json:"search_threshold"`
	ShortQueryThreshold float32            `json:"short_query_threshold"`
	RelatedThreshold    float32            `json:"related_threshold"`
	EmbedCache          EmbedCacheConfig   `json:"embed_cache"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type JobsConfig struct {
	EnrichSpec         string `json:"enrich_spec"`
	EnrichDelaySeconds int64  `json:"enrich_delay_seconds"`
	CacheCleanupSpec   string `json:"cache_cleanup_spec"`
	CacheMaxAgeDays    int    `json:"cache_max_age_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.Database.DSN == "" && c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.JWTTTLHours == 0 {
		c.JWTTTLHours = 72
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.AIRateLimitSeconds < 0 {
		c.AIRateLimitSeconds = 0
	}
	if err := c.AI.normalize(); err != nil {
		return err
	}
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	c.FileStore.Type = strings.ToLower(strings.TrimSpace(c.FileStore.Type))
	if c.FileStore.Type != "local" && c.FileStore.Type != "s3" {
		return fmt.Errorf("file_store.type must be local or s3")
	}
	if c.Jobs.CacheMaxAgeDays <= 0 {
		c.Jobs.CacheMaxAgeDays = 30
	}
	if c.Jobs.EnrichDelaySeconds < 0 {
		c.Jobs.EnrichDelaySeconds = 0
	}
	return nil
}

func (a *AIConfig) normalize() error {
	names := make(map[string]struct{}, len(a.Providers))
	for i, p := range a.Providers {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("ai.providers[%d].name is required", i)
		}
		if strings.TrimSpace(p.Type) == "" {
			return fmt.Errorf("ai.providers[%d].type is required", i)
		}
		if _, ok := names[name]; ok {
			return fmt.Errorf("ai provider %s defined twice", name)
		}
		names[name] = struct{}{}
	}
	for feature, refs := range map[string][]AIModelRef{
		"summarizer": a.Summarizer,
		"tagger":     a.Tagger,
		"embedder":   a.Embedder,
	} {
		for _, ref := range refs {
			if _, ok := names[ref.Provider]; !ok {
				return fmt.Errorf("ai.%s references unknown provider %q", feature, ref.Provider)
			}
			if strings.TrimSpace(ref.Model) == "" {
				return fmt.Errorf("ai.%s model is required for provider %s", feature, ref.Provider)
			}
		}
	}
	if a.Timeout <= 0 {
		a.Timeout = 60
	}
	if a.MaxInputChars <= 0 {
		a.MaxInputChars = 20000
	}
	if a.MaxInputTokens <= 0 {
		a.MaxInputTokens = 2000
	}
	if a.MaxTags <= 0 {
		a.MaxTags = 7
	}
	if a.SearchThreshold <= 0 {
		a.SearchThreshold = 0.55
	}
	if a.ShortQueryThreshold <= 0 {
		a.ShortQueryThreshold = 0.70
	}
	if a.EmbedCache.LRUSize == 0 {
		a.EmbedCache.LRUSize = 2000
	}
	if a.EmbedCache.LRUTTLSeconds == 0 {
		a.EmbedCache.LRUTTLSeconds = 3600
	}
	if a.EmbedCache.RedisTTLHours <= 0 {
		a.EmbedCache.RedisTTLHours = 24 * 7
	}
	return nil
}
