package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	Import      ImportConfig     `json:"import"`
	Dedup       DedupConfig      `json:"dedup"`
	Remote      RemoteConfig     `json:"remote"`
	Archive     ArchiveConfig    `json:"archive"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type ImportConfig struct {
	ChunkSize              int    `json:"chunk_size"`
	MaxOpsPerWrite         int    `json:"max_ops_per_write"`
	BulkConcurrency        int    `json:"bulk_concurrency"`
	JobTTLHours            int    `json:"job_ttl_hours"`
	CleanupCron            string `json:"cleanup_cron"`
	MaxUploadSize          int64  `json:"max_upload_size"`
	UploadRateLimitSeconds int    `json:"upload_rate_limit_seconds"`
	DriverSlack            int    `json:"driver_slack"`
}

// DedupConfig selects the optional URL normalization steps used when
// matching imported bookmarks against existing ones.
type DedupConfig struct {
	StripTrailingSlash bool `json:"strip_trailing_slash"`
	StripWWW           bool `json:"strip_www"`
}

type RemoteConfig struct {
	BookmarkCollection     string `json:"bookmark_collection"`
	AnnotationCollection   string `json:"annotation_collection"`
	TagCollection          string `json:"tag_collection"`
	TimeoutSeconds         int    `json:"timeout_seconds"`
	PageSize               int    `json:"page_size"`
	SessionCacheSize       int    `json:"session_cache_size"`
	SessionCacheTTLMinutes int    `json:"session_cache_ttl_minutes"`
}

// ArchiveConfig configures where raw uploads are kept. An empty type turns
// archiving off.
type ArchiveConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	DefaultChunkSize       = 200
	DefaultMaxOpsPerWrite  = 10
	DefaultBulkConcurrency = 5
	DefaultJobTTLHours     = 24
	DefaultCleanupCron     = "*/30 * * * *"
	DefaultMaxUploadSize   = 10 << 20
	DefaultUploadRateLimit = 2
	DefaultDriverSlack     = 5
)

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
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "":
		c.Database.Driver = "sqlite"
		fallthrough
	case "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres")
	}
	c.Import.applyDefaults()
	if c.Import.MaxOpsPerWrite < 2 {
		return fmt.Errorf("import.max_ops_per_write must be at least 2")
	}
	if _, err := cron.ParseStandard(c.Import.CleanupCron); err != nil {
		return fmt.Errorf("import.cleanup_cron: %w", err)
	}
	c.Remote.applyDefaults()
	switch strings.ToLower(c.Archive.Type) {
	case "", "local", "s3":
	default:
		return fmt.Errorf("archive.type must be empty, local or s3")
	}
	return nil
}

func (c *ImportConfig) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxOpsPerWrite <= 0 {
		c.MaxOpsPerWrite = DefaultMaxOpsPerWrite
	}
	if c.BulkConcurrency <= 0 {
		c.BulkConcurrency = DefaultBulkConcurrency
	}
	if c.JobTTLHours <= 0 {
		c.JobTTLHours = DefaultJobTTLHours
	}
	if c.CleanupCron == "" {
		c.CleanupCron = DefaultCleanupCron
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.UploadRateLimitSeconds <= 0 {
		c.UploadRateLimitSeconds = DefaultUploadRateLimit
	}
	if c.DriverSlack <= 0 {
		c.DriverSlack = DefaultDriverSlack
	}
}

func (c *RemoteConfig) applyDefaults() {
	if c.BookmarkCollection == "" {
		c.BookmarkCollection = "community.lexicon.bookmarks.bookmark"
	}
	if c.AnnotationCollection == "" {
		c.AnnotationCollection = "app.markport.annotation"
	}
	if c.TagCollection == "" {
		c.TagCollection = "app.markport.tag"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.SessionCacheSize <= 0 {
		c.SessionCacheSize = 1024
	}
	if c.SessionCacheTTLMinutes <= 0 {
		c.SessionCacheTTLMinutes = 10
	}
}
