package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/match-aggregator/internal/config"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/match-aggregator/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/match-aggregator/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/match-aggregator/internal/infrastructure/stream"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/riskibarqy/match-aggregator/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

const connectTimeout = 5 * time.Second

// storage holds the persistence side of the app and the handles to close on
// shutdown.
type storage struct {
	repo      match.Repository
	publisher usecase.LiveUpdatePublisher
	db        *sqlx.DB
	redis     *redis.Client
}

func openStorage(ctx context.Context, cfg config.Config, logger *logging.Logger) (*storage, error) {
	out := &storage{}

	if cfg.DBURL != "" {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		out.db = db
		out.repo = postgres.NewMatchRepository(db)
		logger.Info("match repository ready", "backend", "postgres", "db_name", dbNameFromURL(cfg.DBURL))
	} else {
		var seed []match.CanonicalMatch
		if cfg.AppEnv == config.EnvDev {
			seed = memory.SeedMatches(time.Now().UTC())
		}
		out.repo = memory.NewMatchRepository(seed)
		logger.Info("match repository ready", "backend", "memory", "seeded", len(seed))
	}

	if cfg.RedisURL == "" {
		return out, nil
	}

	client, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		out.close(logger)
		return nil, err
	}
	out.redis = client
	out.repo = cache.NewMatchRepository(out.repo, client, cache.MatchRepositoryConfig{
		KeyPrefix: cfg.RedisKeyPrefix,
		TTL:       cfg.RedisCacheTTL,
		Logger:    logger.Named("match_cache"),
	})
	out.publisher = stream.NewRedisPublisher(client, stream.RedisPublisherConfig{
		Prefix: cfg.StreamPrefix,
		MaxLen: cfg.StreamMaxLen,
	})
	logger.Info("redis cache and live stream ready", "key_prefix", cfg.RedisKeyPrefix, "stream_prefix", cfg.StreamPrefix)

	return out, nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Open(
		"postgres",
		NormalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *storage) close(logger *logging.Logger) {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Warn("close redis failed", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Warn("close database failed", "error", err)
		}
	}
}
