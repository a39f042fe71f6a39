package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/pvaldes/stockfolio/internal/blob/s3"
	"github.com/pvaldes/stockfolio/internal/cache/redis"
	"github.com/pvaldes/stockfolio/internal/config"
	"github.com/pvaldes/stockfolio/internal/domain"
	"github.com/pvaldes/stockfolio/internal/marketdata"
	"github.com/pvaldes/stockfolio/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application needs to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	TxManager    domain.TxManager
	Accounts     domain.AccountStore
	Positions    domain.PositionStore
	Transactions domain.TransactionStore

	// Market data (quote API behind the Redis cache)
	Prices domain.PriceSource

	// Blob storage; nil unless archival is enabled.
	Archiver *s3blob.Archiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

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
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	txnStore := postgres.NewTransactionStore(pool)
	deps.TxManager = postgres.NewTxManager(pool)
	deps.Accounts = postgres.NewAccountStore(pool)
	deps.Positions = postgres.NewPositionStore(pool)
	deps.Transactions = txnStore

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	quoteCache := redis.NewQuoteCache(redisClient, cfg.Redis.QuoteTTL.Duration)

	// --- Market data ---
	quoteClient := marketdata.New(marketdata.Config{
		BaseURL: cfg.MarketData.BaseURL,
		APIKey:  cfg.MarketData.APIKey,
		Timeout: cfg.MarketData.Timeout.Duration,
		Debug:   cfg.MarketData.Debug,
	}, logger)
	deps.Prices = marketdata.NewCachedSource(quoteClient, quoteCache, logger)

	// --- S3 blob storage (only when archival is enabled) ---
	if cfg.Archive.Enabled {
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

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), txnStore)
	}

	return deps, cleanup, nil
}
