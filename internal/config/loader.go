package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (skipped when path is empty) over the
// defaults, then applies SHARPLINE_* environment overrides, including those
// from a .env file in the working directory. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose SHARPLINE_* variable is set and
// non-empty, so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SHARPLINE_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // common platform alias
	setStr(&cfg.Postgres.Host, "SHARPLINE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SHARPLINE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SHARPLINE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SHARPLINE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SHARPLINE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SHARPLINE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SHARPLINE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SHARPLINE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SHARPLINE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SHARPLINE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SHARPLINE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SHARPLINE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SHARPLINE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SHARPLINE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SHARPLINE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SHARPLINE_REDIS_TLS_ENABLED")
	setInt64(&cfg.Redis.StreamMaxLen, "SHARPLINE_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SHARPLINE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SHARPLINE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SHARPLINE_S3_REGION")
	setStr(&cfg.S3.Bucket, "SHARPLINE_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "SHARPLINE_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "SHARPLINE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SHARPLINE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SHARPLINE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SHARPLINE_S3_FORCE_PATH_STYLE")

	// ── Index ──
	setStr(&cfg.Index.Backend, "SHARPLINE_INDEX_BACKEND")

	// ── Scan ──
	setStr(&cfg.Scan.SharpBook, "SHARPLINE_SCAN_SHARP_BOOK")
	setFloat64(&cfg.Scan.KellyFraction, "SHARPLINE_SCAN_KELLY_FRACTION")
	setFloat64(&cfg.Scan.MinEdge, "SHARPLINE_SCAN_MIN_EDGE")
	setFloat64(&cfg.Scan.MinStake, "SHARPLINE_SCAN_MIN_STAKE")
	setStr(&cfg.Scan.PointSign, "SHARPLINE_SCAN_POINT_SIGN")
	setInt(&cfg.Scan.Concurrency, "SHARPLINE_SCAN_CONCURRENCY")
	setStringSlice(&cfg.Scan.BetTypes, "SHARPLINE_SCAN_BET_TYPES")
	setStringSlice(&cfg.Scan.Scanners, "SHARPLINE_SCAN_SCANNERS")
	setStr(&cfg.Scan.Category, "SHARPLINE_SCAN_CATEGORY")
	setStr(&cfg.Scan.EventID, "SHARPLINE_SCAN_EVENT_ID")
	setDuration(&cfg.Scan.Lookback, "SHARPLINE_SCAN_LOOKBACK")
	setDuration(&cfg.Scan.Interval, "SHARPLINE_SCAN_INTERVAL")
	setDuration(&cfg.Scan.Timeout, "SHARPLINE_SCAN_TIMEOUT")
	setDuration(&cfg.Scan.LockTTL, "SHARPLINE_SCAN_LOCK_TTL")

	// ── Report ──
	setBool(&cfg.Report.Store, "SHARPLINE_REPORT_STORE")
	setBool(&cfg.Report.Publish, "SHARPLINE_REPORT_PUBLISH")

	// ── Server ──
	setInt(&cfg.Server.Port, "SHARPLINE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SHARPLINE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SHARPLINE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SHARPLINE_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "SHARPLINE_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SHARPLINE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SHARPLINE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SHARPLINE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SHARPLINE_NOTIFY_EVENTS")

	// ── Dry run ──
	setStr(&cfg.DryRun.Fixture, "SHARPLINE_DRYRUN_FIXTURE")

	// ── Top-level ──
	setStr(&cfg.Mode, "SHARPLINE_MODE")
	setStr(&cfg.LogLevel, "SHARPLINE_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
