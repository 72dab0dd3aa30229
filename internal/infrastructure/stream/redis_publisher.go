package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
)

const (
	defaultStreamPrefix = "matches.live"
	defaultMaxLen       = 10000
)

// XAdder is the subset of the go-redis client the publisher uses.
type XAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type RedisPublisherConfig struct {
	Prefix string
	MaxLen int64
}

// RedisPublisher appends live match snapshots to one stream per sport,
// e.g. "matches.live.football".
type RedisPublisher struct {
	client XAdder
	prefix string
	maxLen int64
	now    func() time.Time
}

type liveMatchMessage struct {
	ExternalID string `json:"external_id"`
	Provider   string `json:"provider"`
	Sport      string `json:"sport"`
	League     string `json:"league,omitempty"`
	HomeTeam   string `json:"home_team"`
	AwayTeam   string `json:"away_team"`
	Status     string `json:"status"`
	Period     string `json:"period,omitempty"`
	Minute     *int   `json:"minute,omitempty"`
	HomeScore  *int   `json:"home_score,omitempty"`
	AwayScore  *int   `json:"away_score,omitempty"`
}

func NewRedisPublisher(client XAdder, cfg RedisPublisherConfig) *RedisPublisher {
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultStreamPrefix
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &RedisPublisher{client: client, prefix: prefix, maxLen: maxLen, now: time.Now}
}

func (p *RedisPublisher) StreamName(sport match.Sport) string {
	return p.prefix + "." + strings.ToLower(string(sport))
}

// PublishLiveMatches appends one entry per match. It stops at the first failure.
func (p *RedisPublisher) PublishLiveMatches(ctx context.Context, sport match.Sport, items []match.CanonicalMatch) error {
	stream := p.StreamName(sport)
	publishedAt := p.now().UTC().Unix()
	for _, item := range items {
		payload, err := sonic.MarshalString(liveMatchMessage{
			ExternalID: item.ExternalID,
			Provider:   item.Provider,
			Sport:      string(item.Sport),
			League:     item.League.Name,
			HomeTeam:   item.HomeTeam.Name,
			AwayTeam:   item.AwayTeam.Name,
			Status:     string(item.Status),
			Period:     item.Period,
			Minute:     item.Minute,
			HomeScore:  item.HomeScore,
			AwayScore:  item.AwayScore,
		})
		if err != nil {
			return fmt.Errorf("encode live match %s: %w", item.ExternalID, err)
		}

		err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: p.maxLen,
			Approx: true,
			Values: map[string]any{
				"external_id": item.ExternalID,
				"data":        payload,
				"timestamp":   publishedAt,
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("xadd %s: %w", stream, err)
		}
	}
	return nil
}
