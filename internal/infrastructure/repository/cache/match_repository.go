package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/riskibarqy/match-aggregator/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultKeyPrefix = "matches"
	defaultTTL       = 30 * time.Second

	// readThroughTimeout bounds a shared read of the wrapped repository.
	readThroughTimeout = 10 * time.Second
)

// RedisStore is the subset of the go-redis client the decorator uses.
type RedisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type MatchRepositoryConfig struct {
	KeyPrefix string
	TTL       time.Duration
	Logger    *logging.Logger
}

// MatchRepository is a read-through Redis decorator. Writes bump a generation
// counter so every cached read from an older generation is ignored.
type MatchRepository struct {
	next   match.Repository
	store  RedisStore
	prefix string
	ttl    time.Duration
	logger *logging.Logger
	flight resilience.SingleFlight[cachedPage]
}

type cachedPage struct {
	Items []match.CanonicalMatch `json:"items"`
	Total int                    `json:"total"`
}

func NewMatchRepository(next match.Repository, store RedisStore, cfg MatchRepositoryConfig) *MatchRepository {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MatchRepository{next: next, store: store, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *MatchRepository) Find(ctx context.Context, filter match.Filter) ([]match.CanonicalMatch, int, error) {
	key := r.findKey(r.generation(ctx), filter)

	if raw, err := r.store.Get(ctx, key).Bytes(); err == nil {
		var page cachedPage
		if err := sonic.Unmarshal(raw, &page); err == nil {
			return page.Items, page.Total, nil
		}
		r.logger.WarnContext(ctx, "discard undecodable cached matches", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.WarnContext(ctx, "redis read failed, reading through", "key", key, "error", err)
	}

	// The shared read is detached so one abandoned request cannot fail the
	// others waiting on the same key.
	page, err, _ := r.flight.Do(ctx, key, func() (cachedPage, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readThroughTimeout)
		defer cancel()

		items, total, err := r.next.Find(readCtx, filter)
		if err != nil {
			return cachedPage{}, err
		}
		page := cachedPage{Items: items, Total: total}
		if raw, err := sonic.Marshal(page); err == nil {
			if err := r.store.Set(readCtx, key, raw, r.ttl).Err(); err != nil {
				r.logger.WarnContext(readCtx, "redis write failed", "key", key, "error", err)
			}
		}
		return page, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return append([]match.CanonicalMatch{}, page.Items...), page.Total, nil
}

func (r *MatchRepository) UpsertMatches(ctx context.Context, items []match.CanonicalMatch) error {
	if err := r.next.UpsertMatches(ctx, items); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	if err := r.store.Incr(ctx, r.prefix+":generation").Err(); err != nil {
		r.logger.WarnContext(ctx, "redis generation bump failed; cached reads may be stale until ttl", "error", err)
	}
	return nil
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, sport match.Sport, externalID string) (match.CanonicalMatch, bool, error) {
	return r.next.GetByExternalID(ctx, sport, externalID)
}

func (r *MatchRepository) generation(ctx context.Context) int64 {
	value, err := r.store.Get(ctx, r.prefix+":generation").Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.DebugContext(ctx, "redis generation read failed", "error", err)
		}
		return 0
	}
	return value
}

func (r *MatchRepository) findKey(generation int64, filter match.Filter) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(r.prefix)
	_, _ = buf.WriteString(":g")
	_, _ = buf.WriteString(strconv.FormatInt(generation, 10))
	_, _ = buf.WriteString(":find:")
	_, _ = buf.WriteString(fmt.Sprintf("%s|%s|%s|%s|%s|%t|%d|%d",
		filter.Sport, filter.Status, filter.League, filter.Team, filter.Search,
		filter.Descending, filter.Offset, filter.Limit))
	if filter.DateRange.From != nil {
		_, _ = buf.WriteString("|from=" + filter.DateRange.From.UTC().Format(time.RFC3339))
	}
	if filter.DateRange.To != nil {
		_, _ = buf.WriteString("|to=" + filter.DateRange.To.UTC().Format(time.RFC3339))
	}
	return buf.String()
}
