package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

// DedupKey identifies records that describe the same match.
type DedupKey func(match.CanonicalMatch) string

// KeyByTeams merges cross-provider results: sport, league, both teams and kickoff day.
func KeyByTeams(m match.CanonicalMatch) string {
	return strings.ToLower(strings.Join([]string{
		string(m.Sport),
		m.League.Name,
		m.HomeTeam.Name,
		m.AwayTeam.Name,
		m.ScheduledAt.UTC().Format("2006-01-02"),
	}, "|"))
}

// KeyByExternalID merges refreshes of an already known match.
func KeyByExternalID(m match.CanonicalMatch) string {
	return strings.ToLower(m.ExternalID)
}

type Normalizer struct {
	logger *logging.Logger
}

func NewNormalizer(logger *logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{logger: logger}
}

// Canonicalize cleans a single record. The bool is false when the record lacks
// a mandatory field and must be dropped.
func (n *Normalizer) Canonicalize(m match.CanonicalMatch) (match.CanonicalMatch, bool) {
	m.ExternalID = strings.TrimSpace(m.ExternalID)
	m.Provider = strings.ToLower(strings.TrimSpace(m.Provider))
	m.Sport = match.NormalizeSport(string(m.Sport))
	m.Status = match.NormalizeStatus(string(m.Status))
	m.HomeTeam.Name = collapseSpaces(m.HomeTeam.Name)
	m.AwayTeam.Name = collapseSpaces(m.AwayTeam.Name)
	m.League.Name = collapseSpaces(m.League.Name)
	m.League.Country = collapseSpaces(m.League.Country)
	m.Venue = collapseSpaces(m.Venue)
	m.Period = strings.TrimSpace(m.Period)

	if m.ExternalID == "" || !m.HasTeams() || m.ScheduledAt.IsZero() {
		return m, false
	}
	return match.Sanitize(m), true
}

// Normalize canonicalizes, drops incomplete records and merges duplicates.
// Output keeps first-seen order; the caller applies listing order.
func (n *Normalizer) Normalize(ctx context.Context, items []match.CanonicalMatch, key DedupKey) []match.CanonicalMatch {
	if key == nil {
		key = KeyByTeams
	}

	out := make([]match.CanonicalMatch, 0, len(items))
	index := make(map[string]int, len(items))
	dropped := 0
	for _, item := range items {
		item, ok := n.Canonicalize(item)
		if !ok {
			dropped++
			n.logger.DebugContext(ctx, "drop incomplete match", "external_id", item.ExternalID, "provider", item.Provider)
			continue
		}

		k := key(item)
		pos, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, item)
			continue
		}
		out[pos] = mergeDuplicate(out[pos], item)
	}

	if dropped > 0 {
		n.logger.InfoContext(ctx, "dropped incomplete matches", "dropped", dropped, "kept", len(out))
	}
	return out
}

// mergeDuplicate keeps the first record unless the second carries a strictly
// more advanced status. Optional fields missing on the winner come from the loser.
func mergeDuplicate(first, second match.CanonicalMatch) match.CanonicalMatch {
	winner, loser := first, second
	if second.Status.MoreAdvancedThan(first.Status) {
		winner, loser = second, first
	}

	if winner.ID == "" {
		winner.ID = loser.ID
	}
	if winner.Venue == "" {
		winner.Venue = loser.Venue
	}
	if winner.League.Country == "" {
		winner.League.Country = loser.League.Country
	}
	if winner.League.LogoURL == "" {
		winner.League.LogoURL = loser.League.LogoURL
	}
	if winner.HomeTeam.LogoURL == "" {
		winner.HomeTeam.LogoURL = loser.HomeTeam.LogoURL
	}
	if winner.AwayTeam.LogoURL == "" {
		winner.AwayTeam.LogoURL = loser.AwayTeam.LogoURL
	}
	if winner.Odds == nil {
		winner.Odds = loser.Odds
	}
	if len(winner.Statistics) == 0 {
		winner.Statistics = loser.Statistics
	}
	if len(winner.Events) == 0 {
		winner.Events = loser.Events
	}
	return winner
}

// sortForListing orders scheduled listings soonest first and everything else
// most recent first. Ties fall back to ExternalID so output never depends on
// provider response order.
func sortForListing(items []match.CanonicalMatch, status match.Status) {
	ascending := status == match.StatusScheduled
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			if ascending {
				return a.ScheduledAt.Before(b.ScheduledAt)
			}
			return a.ScheduledAt.After(b.ScheduledAt)
		}
		return a.ExternalID < b.ExternalID
	})
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
