package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/platform/id"
)

// MatchRepository keeps matches in process, keyed by (sport, external id).
// It backs local runs without a database and usecase tests.
type MatchRepository struct {
	mu      sync.RWMutex
	matches map[string]match.CanonicalMatch
	ids     id.Generator
	now     func() time.Time
}

func NewMatchRepository(seed []match.CanonicalMatch) *MatchRepository {
	repo := &MatchRepository{
		matches: make(map[string]match.CanonicalMatch, len(seed)),
		ids:     id.Prefixed("mt"),
		now:     time.Now,
	}
	_ = repo.UpsertMatches(context.Background(), seed)
	return repo
}

func (r *MatchRepository) Find(_ context.Context, filter match.Filter) ([]match.CanonicalMatch, int, error) {
	query := match.Query{
		Sport:    filter.Sport,
		Status:   filter.Status,
		League:   filter.League,
		Team:     filter.Team,
		Search:   filter.Search,
		DateFrom: filter.DateRange.From,
		DateTo:   filter.DateRange.To,
	}

	r.mu.RLock()
	items := make([]match.CanonicalMatch, 0, len(r.matches))
	for _, item := range r.matches {
		if query.Matches(item) {
			items = append(items, item)
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			if filter.Descending {
				return a.ScheduledAt.After(b.ScheduledAt)
			}
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		return a.ExternalID < b.ExternalID
	})

	total := len(items)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return append([]match.CanonicalMatch{}, items[start:end]...), total, nil
}

// UpsertMatches inserts unseen matches and updates known ones in place. The
// stored id and kickoff time of a known match never change.
func (r *MatchRepository) UpsertMatches(_ context.Context, items []match.CanonicalMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	for _, item := range items {
		if strings.TrimSpace(item.ExternalID) == "" {
			return fmt.Errorf("upsert match: external id is required")
		}

		key := matchKey(item.Sport, item.ExternalID)
		if existing, ok := r.matches[key]; ok {
			item.ID = existing.ID
			item.ScheduledAt = existing.ScheduledAt
		} else {
			newID, err := r.ids.NewID()
			if err != nil {
				return fmt.Errorf("generate match id: %w", err)
			}
			item.ID = newID
		}
		item.UpdatedAt = now
		r.matches[key] = item
	}
	return nil
}

func (r *MatchRepository) GetByExternalID(_ context.Context, sport match.Sport, externalID string) (match.CanonicalMatch, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.matches[matchKey(sport, externalID)]
	return item, ok, nil
}

func (r *MatchRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

func matchKey(sport match.Sport, externalID string) string {
	return string(sport) + "|" + strings.ToLower(strings.TrimSpace(externalID))
}
