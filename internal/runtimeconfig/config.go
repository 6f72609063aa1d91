package runtimeconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	urlkit "github.com/goliatone/go-urlkit"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cms-replace/content"
)

var ErrStorageProviderUnknown = errors.New("replace config: storage provider is invalid")
var ErrStorageDriverUnknown = errors.New("replace config: storage driver is invalid")
var ErrStorageDSNRequired = errors.New("replace config: storage dsn is required for the bun provider")

// ErrCacheTTLInvalid guards against caches that never expire entries by accident.
var ErrCacheTTLInvalid = errors.New("replace config: cache ttl must be positive when cache is enabled")
var ErrChunkSizeInvalid = errors.New("replace config: batch chunk size must be positive")
var ErrContextWidthInvalid = errors.New("replace config: matcher context width must be zero or positive")
var ErrMatchTimeoutInvalid = errors.New("replace config: matcher timeout must be zero or positive")
var ErrMaxDepthInvalid = errors.New("replace config: walker max depth must be positive")
var ErrPageSizeInvalid = errors.New("replace config: search page size must be positive")
var ErrLoggingProviderRequired = errors.New("replace config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("replace config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("replace config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("replace config: logging format is invalid")

// Config aggregates the tunables of the replace module. Every section has a
// usable default so a YAML file only needs the keys it changes.
type Config struct {
	DefaultLocale string                 `yaml:"default_locale"`
	Storage       StorageConfig          `yaml:"storage"`
	Cache         CacheConfig            `yaml:"cache"`
	Batch         BatchConfig            `yaml:"batch"`
	Matcher       MatcherConfig          `yaml:"matcher"`
	Walker        WalkerConfig           `yaml:"walker"`
	Search        SearchConfig           `yaml:"search"`
	Export        ExportConfig           `yaml:"export"`
	Logging       LoggingConfig          `yaml:"logging"`
	Features      Features               `yaml:"features"`
	Schemas       []content.BundleSchema `yaml:"schemas"`
}

// StorageConfig selects the record and report stores.
type StorageConfig struct {
	// Provider is "memory" or "bun".
	Provider string `yaml:"provider"`
	// Driver is "sqlite" or "postgres" for the bun provider.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CacheConfig wraps bun record repositories with go-repository-cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

type BatchConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

// MatcherConfig controls match display and regex evaluation limits.
type MatcherConfig struct {
	ContextWidth int             `yaml:"context_width"`
	MatchTimeout time.Duration   `yaml:"match_timeout"`
	Highlight    HighlightConfig `yaml:"highlight"`
}

type HighlightConfig struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

type WalkerConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
}

// ExportConfig links CSV rows to public URLs. Routes are named after record
// kinds; a nil Routes uses one "/<kind>/:id" route per kind.
type ExportConfig struct {
	URLGroup string         `yaml:"url_group"`
	BaseURL  string         `yaml:"base_url"`
	Routes   *urlkit.Config `yaml:"-"`
}

// Features toggles optional collaborators.
type Features struct {
	Logger  bool `yaml:"logger"`
	Metrics bool `yaml:"metrics"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// DefaultConfig returns in-memory storage with the documented limits.
func DefaultConfig() Config {
	return Config{
		DefaultLocale: "en",
		Storage: StorageConfig{
			Provider: "memory",
			Driver:   "sqlite",
		},
		Cache: CacheConfig{
			Enabled:    false,
			DefaultTTL: time.Minute,
		},
		Batch: BatchConfig{
			ChunkSize: 10,
		},
		Matcher: MatcherConfig{
			ContextWidth: 100,
			Highlight: HighlightConfig{
				Open:  "<strong>",
				Close: "</strong>",
			},
		},
		Walker: WalkerConfig{
			MaxDepth: 8,
		},
		Search: SearchConfig{
			DefaultPageSize: 50,
		},
		Export: ExportConfig{
			URLGroup: "public",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Load decodes YAML over the defaults. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("replace config: decode: %w", err)
	}
	return cfg, nil
}

// LoadFile reads path with Load. An empty path returns the defaults.
func LoadFile(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("replace config: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	switch normalize(cfg.Storage.Provider) {
	case "memory":
	case "bun":
		if !isSupportedDriver(cfg.Storage.Driver) {
			return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
		}
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return ErrStorageDSNRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, cfg.Storage.Provider)
	}
	if cfg.Cache.Enabled && cfg.Cache.DefaultTTL <= 0 {
		return ErrCacheTTLInvalid
	}
	if cfg.Batch.ChunkSize <= 0 {
		return ErrChunkSizeInvalid
	}
	if cfg.Matcher.ContextWidth < 0 {
		return ErrContextWidthInvalid
	}
	if cfg.Matcher.MatchTimeout < 0 {
		return ErrMatchTimeoutInvalid
	}
	if cfg.Walker.MaxDepth <= 0 {
		return ErrMaxDepthInvalid
	}
	if cfg.Search.DefaultPageSize <= 0 {
		return ErrPageSizeInvalid
	}
	if cfg.Features.Logger {
		provider := normalize(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedDriver(driver string) bool {
	switch normalize(driver) {
	case "sqlite", "sqlite3", "postgres", "pgx":
		return true
	default:
		return false
	}
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch normalize(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch normalize(format) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
