package di

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-cms-replace/internal/content"
	"github.com/goliatone/go-cms-replace/internal/export"
	"github.com/goliatone/go-cms-replace/internal/jobs"
	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/internal/logging/console"
	"github.com/goliatone/go-cms-replace/internal/logging/gologger"
	"github.com/goliatone/go-cms-replace/internal/matcher"
	"github.com/goliatone/go-cms-replace/internal/metrics"
	"github.com/goliatone/go-cms-replace/internal/replace"
	"github.com/goliatone/go-cms-replace/internal/reports"
	"github.com/goliatone/go-cms-replace/internal/runtimeconfig"
	"github.com/goliatone/go-cms-replace/internal/schema"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
)

// Container wires stores, engines and services from the runtime config.
type Container struct {
	Config runtimeconfig.Config

	bunDB         *bun.DB
	ownsDB        bool
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	loggerProvider interfaces.LoggerProvider
	registerer     prometheus.Registerer
	metrics        *metrics.Metrics
	clock          func() time.Time

	schemas  *schema.Registry
	records  interfaces.RecordStore
	reports  reports.Store
	audit    jobs.AuditRecorder
	progress jobs.ProgressFunc

	searchSvc   search.Service
	engine      *replace.Engine
	coordinator *jobs.Coordinator
	reportSvc   reports.Service
	exporter    *export.Writer
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithBunDB supplies the database used by the bun storage provider.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the default cache provider.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithMetricsRegisterer registers collectors with reg when metrics are enabled.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *Container) {
		c.registerer = reg
	}
}

func WithSchemaRegistry(registry *schema.Registry) Option {
	return func(c *Container) {
		c.schemas = registry
	}
}

func WithRecordStore(store interfaces.RecordStore) Option {
	return func(c *Container) {
		c.records = store
	}
}

func WithReportStore(store reports.Store) Option {
	return func(c *Container) {
		c.reports = store
	}
}

func WithAuditRecorder(recorder jobs.AuditRecorder) Option {
	return func(c *Container) {
		c.audit = recorder
	}
}

// WithProgress receives job progress after every chunk.
func WithProgress(fn jobs.ProgressFunc) Option {
	return func(c *Container) {
		c.progress = fn
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		c.clock = clock
	}
}

// NewContainer validates cfg and builds every collaborator. Bun storage
// opens its own database from the config unless one is supplied, and
// creates the tables it needs.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	if cfg.Features.Metrics {
		c.metrics = metrics.New(c.registerer)
	}
	if err := c.configureSchemas(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	if err := c.configureStorage(context.Background()); err != nil {
		return nil, err
	}
	c.configureServices()
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil || !c.Config.Features.Logger {
		return nil
	}
	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return fmt.Errorf("di: gologger provider: %w", err)
		}
		c.loggerProvider = provider
	default:
		level := console.ParseLevel(logCfg.Level)
		c.loggerProvider = console.NewProvider(console.Options{MinLevel: &level})
	}
	return nil
}

func (c *Container) configureSchemas() error {
	if c.schemas == nil {
		registry, err := schema.NewRegistry()
		if err != nil {
			return err
		}
		c.schemas = registry
	}
	if len(c.Config.Schemas) > 0 {
		if err := c.schemas.RegisterAll(c.Config.Schemas); err != nil {
			return fmt.Errorf("di: register schemas: %w", err)
		}
	}
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.Config.Cache.DefaultTTL > 0 {
			cfg.TTL = c.Config.Cache.DefaultTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}
	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureStorage(ctx context.Context) error {
	storageLogger := logging.StorageLogger(c.loggerProvider)
	if strings.EqualFold(strings.TrimSpace(c.Config.Storage.Provider), "bun") {
		if c.bunDB == nil {
			db, err := OpenBunDB(c.Config.Storage.Driver, c.Config.Storage.DSN)
			if err != nil {
				return err
			}
			c.bunDB = db
			c.ownsDB = true
		}
		if err := c.Migrate(ctx); err != nil {
			return err
		}
		if c.records == nil {
			c.records = content.NewBunRecordStoreWithCache(c.bunDB, c.cacheService, c.keySerializer)
		}
		if c.reports == nil {
			c.reports = reports.NewBunStore(c.bunDB)
		}
		storageLogger.Debug("storage.bun.ready", "driver", c.Config.Storage.Driver, "cache", c.cacheService != nil)
	}
	if c.records == nil {
		c.records = content.NewMemoryRecordStore()
	}
	if c.reports == nil {
		c.reports = reports.NewMemoryStore()
	}
	if c.audit == nil {
		c.audit = jobs.NewLoggerAuditRecorder(logging.JobsLogger(c.loggerProvider))
	}
	return nil
}

func (c *Container) configureServices() {
	cfg := c.Config
	contextOpts := matcher.ContextOptions{
		Width: cfg.Matcher.ContextWidth,
		Open:  cfg.Matcher.Highlight.Open,
		Close: cfg.Matcher.Highlight.Close,
	}

	c.searchSvc = search.NewService(c.schemas, c.records,
		search.WithLogger(logging.SearchLogger(c.loggerProvider)),
		search.WithMetrics(c.metrics),
		search.WithContextOptions(contextOpts),
		search.WithMatchTimeout(cfg.Matcher.MatchTimeout),
		search.WithDefaultPageSize(cfg.Search.DefaultPageSize),
		search.WithMaxDepth(cfg.Walker.MaxDepth),
	)
	c.engine = replace.NewEngine(c.schemas, c.records,
		replace.WithLogger(logging.ReplaceLogger(c.loggerProvider)),
		replace.WithMetrics(c.metrics),
		replace.WithClock(c.clock),
		replace.WithMatchTimeout(cfg.Matcher.MatchTimeout),
		replace.WithMaxDepth(cfg.Walker.MaxDepth),
	)
	c.coordinator = jobs.NewCoordinator(
		jobs.WithChunkSize(cfg.Batch.ChunkSize),
		jobs.WithAuditRecorder(c.audit),
		jobs.WithLogger(logging.JobsLogger(c.loggerProvider)),
		jobs.WithMetrics(c.metrics),
		jobs.WithProgress(c.progress),
		jobs.WithClock(c.clock),
	)
	c.reportSvc = reports.NewService(c.reports, c.engine, c.searchSvc, c.coordinator,
		reports.WithLogger(logging.ReportsLogger(c.loggerProvider)),
		reports.WithMetrics(c.metrics),
		reports.WithClock(c.clock),
	)
	c.exporter = export.NewWriter(
		export.WithLogger(logging.ModuleLogger(c.loggerProvider, "replace.export")),
		export.WithRoutes(cfg.Export.Routes),
		export.WithDefaults(export.Options{URLGroup: cfg.Export.URLGroup, BaseURL: cfg.Export.BaseURL}),
	)
}

// OpenBunDB opens a sqlite or postgres database behind bun.
func OpenBunDB(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("di: open sqlite: %w", err)
		}
		// sqlite serialises writers; one connection keeps in-memory DSNs shared.
		sqlDB.SetMaxOpenConns(1)
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	case "postgres", "pgx":
		sqlDB, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("di: open postgres: %w", err)
		}
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("%w: %s", runtimeconfig.ErrStorageDriverUnknown, driver)
	}
}

// Migrate creates the record and report tables when missing.
func (c *Container) Migrate(ctx context.Context) error {
	if c.bunDB == nil {
		return nil
	}
	if err := content.RegisterModels(ctx, c.bunDB); err != nil {
		return fmt.Errorf("di: migrate records: %w", err)
	}
	if err := reports.RegisterModels(ctx, c.bunDB); err != nil {
		return fmt.Errorf("di: migrate reports: %w", err)
	}
	return nil
}

// Close releases the database when the container opened it.
func (c *Container) Close() error {
	if c.ownsDB && c.bunDB != nil {
		return c.bunDB.Close()
	}
	return nil
}

func (c *Container) Schemas() *schema.Registry {
	return c.schemas
}

func (c *Container) RecordStore() interfaces.RecordStore {
	return c.records
}

func (c *Container) ReportStore() reports.Store {
	return c.reports
}

func (c *Container) AuditRecorder() jobs.AuditRecorder {
	return c.audit
}

func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

func (c *Container) SearchService() search.Service {
	return c.searchSvc
}

func (c *Container) ReplaceEngine() *replace.Engine {
	return c.engine
}

func (c *Container) Coordinator() *jobs.Coordinator {
	return c.coordinator
}

func (c *Container) ReportService() reports.Service {
	return c.reportSvc
}

func (c *Container) Exporter() *export.Writer {
	return c.exporter
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Logger returns a module logger from the configured provider.
func (c *Container) Logger(module string) interfaces.Logger {
	return logging.ModuleLogger(c.loggerProvider, module)
}
