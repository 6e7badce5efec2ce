// Package streamguard wires the password reset protection and the input
// guard into a fiber application.
package streamguard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oarkflow/squealx"
	"github.com/oarkflow/squealx/connection"
	"github.com/oarkflow/squealx/drivers/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard/pkg/audit"
	"github.com/oarkflow/streamguard/pkg/contracts"
	"github.com/oarkflow/streamguard/pkg/http/routes"
	"github.com/oarkflow/streamguard/pkg/libs"
	"github.com/oarkflow/streamguard/pkg/objects"
	"github.com/oarkflow/streamguard/pkg/ratelimit"
	"github.com/oarkflow/streamguard/pkg/reset"
	"github.com/oarkflow/streamguard/pkg/storage"
)

type Plugin struct {
	App      *fiber.App
	Prefix   string
	DB       *squealx.DB
	Redis    redis.UniversalClient
	Notifier contracts.Notifier
	Breaches contracts.BreachChecker
	Config   *libs.Config
	Logger   zerolog.Logger

	storage   *storage.DatabaseStorage
	memory    *ratelimit.MemoryStore
	dbSink    *audit.DatabaseSink
	manager   *libs.Manager
	ownsRedis bool
	ownsDB    bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

type Option func(*Plugin)

func WithPrefix(prefix string) Option {
	return func(p *Plugin) {
		p.Prefix = prefix
	}
}

func WithApp(app *fiber.App) Option {
	return func(p *Plugin) {
		p.App = app
	}
}

func WithDB(db *squealx.DB) Option {
	return func(p *Plugin) {
		p.DB = db
	}
}

// WithRedis shares rate-limit counters between instances.
func WithRedis(client redis.UniversalClient) Option {
	return func(p *Plugin) {
		p.Redis = client
	}
}

func WithNotificationHandler(notifier contracts.Notifier) Option {
	return func(p *Plugin) {
		p.Notifier = notifier
	}
}

// WithBreachChecker replaces the breach lookup built from the password
// policy config.
func WithBreachChecker(checker contracts.BreachChecker) Option {
	return func(p *Plugin) {
		p.Breaches = checker
	}
}

func WithConfig(cfg *libs.Config) Option {
	return func(p *Plugin) {
		p.Config = cfg
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Plugin) {
		p.Logger = logger
	}
}

func NewPluginWithOptions(opts ...Option) *Plugin {
	p := &Plugin{Prefix: "/", Logger: log.Logger}
	for _, opt := range opts {
		opt(p)
	}
	if p.Prefix == "" {
		p.Prefix = "/"
	}
	return p
}

// Register builds every collaborator, publishes the manager through
// objects.Manager, mounts the routes and starts the cleanup loop.
func (p *Plugin) Register() error {
	cfg := p.Config
	if cfg == nil {
		if objects.Config == nil {
			return errors.New("streamguard: no configuration loaded")
		}
		cfg = libs.LoadConfig(objects.Config)
		p.Config = cfg
	}

	if p.DB == nil {
		db, err := OpenDatabase(cfg.Database)
		if err != nil {
			return err
		}
		p.DB = db
		p.ownsDB = true
	}
	vault, err := storage.NewDatabaseStorage(p.DB)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	p.storage = vault

	limiter := ratelimit.New(p.rateLimitStore(cfg.Redis))

	p.dbSink = audit.NewDatabaseSink(vault, cfg.AuditQueueSize)
	sink := audit.NewMultiSink(audit.NewLogSink(&p.Logger), p.dbSink)

	notifier := p.Notifier
	if notifier == nil {
		notifier = libs.NotificationHandler{Logger: &p.Logger}
	}
	service := reset.NewService(vault, vault, notifier, limiter,
		reset.WithTokenTTL(cfg.TokenTTL),
		reset.WithHashAlgorithm(cfg.PasswordPolicy.HashAlgorithm),
		reset.WithServiceTiers(cfg.Tiers),
		reset.WithServiceLogger(p.Logger),
	)
	breaches := p.Breaches
	if breaches == nil {
		breaches = cfg.BreachChecker()
	}
	workflow := reset.NewWorkflow(limiter, service, vault,
		reset.WithBreachChecker(breaches),
		reset.WithTiers(cfg.Tiers),
		reset.WithDelay(reset.RandomDelay(cfg.MinDelay, cfg.MaxDelay)),
		reset.WithPasswordPolicy(cfg.PasswordRule()),
		reset.WithXSSRule(cfg.XSSRule()),
		reset.WithAuditSink(sink),
		reset.WithLogger(p.Logger),
		reset.WithFailureLogging(cfg.LogValidationFailures),
	)
	p.manager = libs.NewManager(cfg, workflow, limiter, sink, libs.WithManagerLogger(p.Logger))
	objects.Manager = p.manager

	if p.App != nil {
		if app := p.App.Config(); app.ProxyHeader != "" && !app.EnableTrustedProxyCheck {
			p.Logger.Warn().Str("header", app.ProxyHeader).Msg("proxy header trusted from any peer; build the app with Config.ApplyProxy")
		}
		routes.Setup(p.Prefix, p.App)
	}
	p.startCleanup(cfg.CleanupInterval)
	p.Logger.Info().Str("prefix", p.Prefix).Str("database", string(vault.Type())).Bool("redis", p.memory == nil).Msg("streamguard registered")
	return nil
}

func (p *Plugin) rateLimitStore(cfg libs.RedisConfig) contracts.RateLimitStore {
	if p.Redis == nil && cfg.Addr != "" {
		p.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		p.ownsRedis = true
	}
	if p.Redis != nil {
		return ratelimit.NewRedisStore(p.Redis, cfg.Prefix)
	}
	p.memory = ratelimit.NewMemoryStore()
	return p.memory
}

func (p *Plugin) Storage() *storage.DatabaseStorage {
	return p.storage
}

func (p *Plugin) Manager() *libs.Manager {
	return p.manager
}

// Cleanup removes reset tokens older than the token TTL and, for the
// in-memory store, expired rate-limit windows.
func (p *Plugin) Cleanup(now time.Time) {
	if p.storage != nil {
		n, err := p.storage.DeleteExpiredResetTokens(now.Add(-p.Config.TokenTTL))
		if err != nil {
			p.Logger.Error().Err(err).Msg("failed to delete expired reset tokens")
		} else if n > 0 {
			p.Logger.Debug().Int64("deleted", n).Msg("expired reset tokens deleted")
		}
	}
	if p.memory != nil {
		if n := p.memory.Prune(); n > 0 {
			p.Logger.Debug().Int("pruned", n).Msg("expired rate limit windows pruned")
		}
	}
}

func (p *Plugin) startCleanup(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				p.Cleanup(now)
			}
		}
	}()
}

func (p *Plugin) Name() string {
	return "StreamGuard"
}

func (p *Plugin) DependsOn() []string {
	return []string{"Database"}
}

// Close stops the cleanup loop, flushes queued audit events and releases
// the connections the plugin opened itself.
func (p *Plugin) Close() error {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}
	if p.dbSink != nil {
		p.dbSink.Close()
	}
	var errs []error
	if p.ownsRedis && p.Redis != nil {
		errs = append(errs, p.Redis.Close())
	}
	if p.ownsDB && p.DB != nil {
		errs = append(errs, p.DB.Close())
	}
	return errors.Join(errs...)
}

// OpenDatabase connects to the configured database. SQLite uses Name as
// the file path.
func OpenDatabase(cfg libs.DatabaseConfig) (*squealx.DB, error) {
	if cfg.Driver == "" || cfg.Driver == "sqlite" || cfg.Driver == "sqlite3" {
		db, err := sqlite.Open(cfg.Name, "sqlite")
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Name, err)
		}
		return db, nil
	}
	db, _, err := connection.FromConfig(squealx.Config{
		Driver:   cfg.Driver,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		Database: cfg.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	return db, nil
}
