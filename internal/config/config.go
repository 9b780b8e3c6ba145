// Package config defines the sharpline configuration, its defaults and
// validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Run modes.
const (
	ModeScan   = "scan"
	ModeDaemon = "daemon"
	ModeServer = "server"
	ModeDryRun = "dryrun"
)

// Index backends.
const (
	IndexMemory   = "memory"
	IndexPostgres = "postgres"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SHARPLINE_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Index    IndexConfig    `toml:"index"`
	Scan     ScanConfig     `toml:"scan"`
	Report   ReportConfig   `toml:"report"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	DryRun   DryRunConfig   `toml:"dryrun"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds the market store connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Without Redis there is no
// cross-process scan lock, signal bus or API rate limit.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamMaxLen int64  `toml:"stream_max_len"`
}

// S3Config holds the report archive bucket.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// IndexConfig selects the universal outcome index backend.
type IndexConfig struct {
	Backend string `toml:"backend"`
}

// ScanConfig holds the detection parameters.
type ScanConfig struct {
	SharpBook     string   `toml:"sharp_book"`
	KellyFraction float64  `toml:"kelly_fraction"`
	MinEdge       float64  `toml:"min_edge"`
	MinStake      float64  `toml:"min_stake"`
	PointSign     string   `toml:"point_sign"`
	Concurrency   int      `toml:"concurrency"`
	BetTypes      []string `toml:"bet_types"`
	Scanners      []string `toml:"scanners"`
	Category      string   `toml:"category"`
	EventID       string   `toml:"event_id"`
	Lookback      duration `toml:"lookback"`
	Interval      duration `toml:"interval"`
	Timeout       duration `toml:"timeout"`
	LockTTL       duration `toml:"lock_ttl"`
}

// ReportConfig toggles the report sinks that need no credentials of their
// own. Chat and archive sinks follow their sections.
type ReportConfig struct {
	Store   bool `toml:"store"`
	Publish bool `toml:"publish"`
}

// DryRunConfig points dry runs at a JSON fixture.
type DryRunConfig struct {
	Fixture string `toml:"fixture"`
}

// duration wraps time.Duration so TOML strings like "5m" decode.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with the values in
// config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "sharpline",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:      true,
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "sharpline-reports",
			Prefix:         "reports",
			ForcePathStyle: true,
		},
		Index: IndexConfig{Backend: IndexMemory},
		Scan: ScanConfig{
			SharpBook:     "pinnacle",
			KellyFraction: 0.25,
			MinEdge:       1.01,
			MinStake:      0.005,
			PointSign:     "shared",
			Concurrency:   8,
			Scanners:      []string{"edge", "arbitrage"},
			Lookback:      duration{time.Hour},
			Interval:      duration{5 * time.Minute},
			Timeout:       duration{2 * time.Minute},
			LockTTL:       duration{5 * time.Minute},
		},
		Report: ReportConfig{Store: true, Publish: true},
		Server: ServerConfig{
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       120,
			RateLimitWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"positive_ev", "arbitrage", "scan_failed"},
		},
		Mode:     ModeDaemon,
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	ModeScan:   true,
	ModeDaemon: true,
	ModeServer: true,
	ModeDryRun: true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validBetTypes = map[string]bool{
	"h2h": true, "spreads": true, "totals": true,
	"outrights": true, "asian_spreads": true, "misc": true,
}

var validScanners = map[string]bool{"edge": true, "arbitrage": true}

// NeedsPostgres reports whether the mode reads the Postgres market store.
func (c *Config) NeedsPostgres() bool {
	return c.Mode != ModeDryRun
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[c.Mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, daemon, server, dryrun)", c.Mode))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scan
	s := c.Scan
	if strings.TrimSpace(s.SharpBook) == "" {
		errs = append(errs, "scan: sharp_book must not be empty")
	}
	if s.KellyFraction <= 0 || s.KellyFraction > 1 {
		errs = append(errs, fmt.Sprintf("scan: kelly_fraction must be in (0, 1], got %g", s.KellyFraction))
	}
	if s.MinEdge < 1 {
		errs = append(errs, fmt.Sprintf("scan: min_edge must be >= 1, got %g", s.MinEdge))
	}
	if s.MinStake < 0 {
		errs = append(errs, "scan: min_stake must be >= 0")
	}
	if ps := strings.ToLower(s.PointSign); ps != "" && ps != "shared" && ps != "mirrored" {
		errs = append(errs, fmt.Sprintf("scan: point_sign must be shared or mirrored, got %q", s.PointSign))
	}
	if s.Concurrency < 1 {
		errs = append(errs, "scan: concurrency must be >= 1")
	}
	for _, bt := range s.BetTypes {
		if !validBetTypes[strings.ToLower(strings.TrimSpace(bt))] {
			errs = append(errs, fmt.Sprintf("scan: unknown bet type %q", bt))
		}
	}
	if len(s.Scanners) == 0 {
		errs = append(errs, "scan: scanners must not be empty")
	}
	for _, name := range s.Scanners {
		if !validScanners[name] {
			errs = append(errs, fmt.Sprintf("scan: unknown scanner %q (valid: edge, arbitrage)", name))
		}
	}
	if s.Lookback.Duration < 0 {
		errs = append(errs, "scan: lookback must be >= 0")
	}
	if (c.Mode == ModeDaemon || c.Mode == ModeServer) && s.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0 for mode "+c.Mode)
	}
	if s.Timeout.Duration < 0 {
		errs = append(errs, "scan: timeout must be >= 0")
	}
	if c.Redis.Enabled && s.LockTTL.Duration <= 0 {
		errs = append(errs, "scan: lock_ttl must be > 0 when redis is enabled")
	}

	// Index
	switch c.Index.Backend {
	case IndexMemory:
	case IndexPostgres:
		if c.Mode == ModeDryRun {
			errs = append(errs, "index: backend postgres is not available in dryrun mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("index: unknown backend %q (valid: memory, postgres)", c.Index.Backend))
	}

	// Postgres
	if c.NeedsPostgres() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Mode == ModeServer {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateLimitWindow.Duration <= 0 {
			errs = append(errs, "server: rate_limit_window must be > 0 when rate_limit is set")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	// Dry run
	if c.Mode == ModeDryRun && c.DryRun.Fixture == "" {
		errs = append(errs, "dryrun: fixture must be set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
