package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/sharpline/internal/blob/s3"
	"github.com/alanyoungcy/sharpline/internal/cache/redis"
	"github.com/alanyoungcy/sharpline/internal/config"
	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/index"
	"github.com/alanyoungcy/sharpline/internal/notify"
	"github.com/alanyoungcy/sharpline/internal/report"
	"github.com/alanyoungcy/sharpline/internal/scan"
	"github.com/alanyoungcy/sharpline/internal/server/handler"
	"github.com/alanyoungcy/sharpline/internal/store/memory"
	"github.com/alanyoungcy/sharpline/internal/store/postgres"
)

// Dependencies bundles everything the run modes need. Optional services are
// nil when not configured.
type Dependencies struct {
	// Stores
	Markets domain.MarketStore
	Labels  domain.LabelResolver
	Index   domain.OutcomeIndex
	Reports domain.ReportStore

	// Redis
	Lock    domain.LockManager
	Bus     domain.SignalBus
	Limiter domain.RateLimiter

	// Blob storage
	Archiver domain.ReportArchiver

	// Notifications
	Notifier *notify.Notifier

	// Pingers are the external services reported by /api/health.
	Pingers map[string]handler.Pinger
}

// pingFunc adapts a health check function to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs all dependency implementations from cfg and returns them
// together with a cleanup function to call on shutdown. Dry runs read the
// fixture into memory and report to stdout without touching any external
// service.
func Wire(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Pingers: map[string]handler.Pinger{}}

	if cfg.Mode == config.ModeDryRun {
		store, err := memory.LoadFixture(cfg.DryRun.Fixture)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: fixture: %w", err)
		}
		deps.Markets = store
		deps.Labels = store
		deps.Index = index.NewMemory(store, logger)
		deps.Notifier = notify.NewNotifier(
			[]notify.Sender{notify.NewWriterSender(stdout)},
			cfg.Notify.Events,
			logger,
		)
		return deps, cleanup, nil
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)
	deps.Pingers["postgres"] = pgClient

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	markets := postgres.NewMarketStore(pool)
	deps.Markets = markets
	deps.Labels = markets
	if cfg.Report.Store {
		deps.Reports = postgres.NewReportStore(pool)
	}

	switch cfg.Index.Backend {
	case config.IndexPostgres:
		deps.Index = postgres.NewUniversalIndex(pool, logger)
	default:
		deps.Index = index.NewMemory(markets, logger)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Pingers["redis"] = redisClient

		deps.Lock = redis.NewLockManager(redisClient)
		deps.Bus = redis.NewSignalBus(redisClient, redis.WithStreamMaxLen(cfg.Redis.StreamMaxLen))
		deps.Limiter = redis.NewRateLimiter(redisClient)
	} else {
		logger.WarnContext(ctx, "redis disabled: no scan lock, signal bus or rate limit")
	}

	// --- S3 report archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Pingers["s3"] = pingFunc(s3Client.Health)
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.WithPrefix(cfg.S3.Prefix),
			s3blob.WithExistenceCheck(s3blob.NewReader(s3Client)),
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// ScanConfig converts the scan section into engine parameters.
func ScanConfig(c config.ScanConfig) (scan.Config, error) {
	sign, err := scan.ParsePointSign(strings.ToLower(c.PointSign))
	if err != nil {
		return scan.Config{}, err
	}
	betTypes := make([]domain.BetType, 0, len(c.BetTypes))
	for _, s := range c.BetTypes {
		bt, err := domain.ParseBetType(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return scan.Config{}, err
		}
		betTypes = append(betTypes, bt)
	}
	var category *string
	if c.Category != "" {
		category = domain.StrPtr(c.Category)
	}
	return scan.Config{
		SharpBook:     c.SharpBook,
		KellyFraction: c.KellyFraction,
		MinEdge:       c.MinEdge,
		MinStake:      c.MinStake,
		PointSign:     sign,
		Concurrency:   c.Concurrency,
		BetTypes:      betTypes,
		CategoryID:    category,
		EventID:       strings.TrimSpace(c.EventID),
		Lookback:      c.Lookback.Duration,
	}, nil
}

// NewEngine builds the scan engine with the scanners named in cfg.
func NewEngine(cfg config.ScanConfig, deps *Dependencies, logger *slog.Logger) (*scan.Engine, error) {
	sc, err := ScanConfig(cfg)
	if err != nil {
		return nil, err
	}
	reg := scan.NewRegistry()
	reg.Register(scan.NewEdgeScanner(scan.NewFairOdds(deps.Markets, sc, logger), deps.Index, sc))
	reg.Register(scan.NewArbitrageScanner(deps.Index, sc))
	scanners, err := reg.Select(cfg.Scanners)
	if err != nil {
		return nil, err
	}
	return scan.NewEngine(deps.Markets, deps.Index, scanners, sc, logger), nil
}

// NewEmitter builds the report emitter over the configured sinks.
func NewEmitter(cfg *config.Config, deps *Dependencies, logger *slog.Logger) *report.Emitter {
	var sinks []report.Sink
	if deps.Notifier != nil {
		sinks = append(sinks, report.NewNotifySink(deps.Notifier))
	}
	if deps.Reports != nil {
		sinks = append(sinks, report.NewStoreSink(deps.Reports))
	}
	if deps.Archiver != nil {
		sinks = append(sinks, report.NewArchiveSink(deps.Archiver, logger))
	}
	if deps.Bus != nil && cfg.Report.Publish {
		sinks = append(sinks, report.NewBusSink(deps.Bus))
	}
	return report.NewEmitter(deps.Labels, sinks, logger)
}
