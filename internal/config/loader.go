package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies STOCKFOLIO_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known STOCKFOLIO_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "STOCKFOLIO_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "STOCKFOLIO_SERVER_CORS_ORIGINS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "STOCKFOLIO_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "STOCKFOLIO_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "STOCKFOLIO_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "STOCKFOLIO_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "STOCKFOLIO_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "STOCKFOLIO_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "STOCKFOLIO_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "STOCKFOLIO_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "STOCKFOLIO_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "STOCKFOLIO_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "STOCKFOLIO_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "STOCKFOLIO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STOCKFOLIO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STOCKFOLIO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STOCKFOLIO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "STOCKFOLIO_REDIS_MAX_RETRIES")
	setDuration(&cfg.Redis.QuoteTTL, "STOCKFOLIO_REDIS_QUOTE_TTL")

	// ── Market data ──
	setStr(&cfg.MarketData.BaseURL, "STOCKFOLIO_MARKET_DATA_BASE_URL")
	setStr(&cfg.MarketData.APIKey, "STOCKFOLIO_MARKET_DATA_API_KEY")
	setDuration(&cfg.MarketData.Timeout, "STOCKFOLIO_MARKET_DATA_TIMEOUT")
	setBool(&cfg.MarketData.Debug, "STOCKFOLIO_MARKET_DATA_DEBUG")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "STOCKFOLIO_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "STOCKFOLIO_S3_REGION")
	setStr(&cfg.S3.Bucket, "STOCKFOLIO_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "STOCKFOLIO_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "STOCKFOLIO_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "STOCKFOLIO_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "STOCKFOLIO_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "STOCKFOLIO_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "STOCKFOLIO_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "STOCKFOLIO_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
