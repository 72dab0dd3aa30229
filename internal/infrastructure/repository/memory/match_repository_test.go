package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
)

func TestMatchRepository_UpsertIsStableByExternalID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kickoff := time.Date(2026, 4, 12, 15, 0, 0, 0, time.UTC)
	repo := NewMatchRepository(nil)

	live := match.CanonicalMatch{
		ExternalID:  "espn-1",
		Sport:       match.SportFootball,
		HomeTeam:    match.Team{Name: "Arsenal"},
		AwayTeam:    match.Team{Name: "Chelsea"},
		ScheduledAt: kickoff,
		Status:      match.StatusLive,
		HomeScore:   match.IntPtr(0),
		AwayScore:   match.IntPtr(0),
	}
	if err := repo.UpsertMatches(ctx, []match.CanonicalMatch{live}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	first, ok, _ := repo.GetByExternalID(ctx, match.SportFootball, "espn-1")
	if !ok || first.ID == "" {
		t.Fatalf("expected stored match with id, got %+v", first)
	}

	live.HomeScore = match.IntPtr(1)
	live.ScheduledAt = kickoff.Add(time.Hour)
	if err := repo.UpsertMatches(ctx, []match.CanonicalMatch{live}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if repo.Len() != 1 {
		t.Fatalf("expected one row, got %d", repo.Len())
	}
	second, _, _ := repo.GetByExternalID(ctx, match.SportFootball, "ESPN-1")
	if second.ID != first.ID {
		t.Fatalf("id changed on upsert: %s -> %s", first.ID, second.ID)
	}
	if !second.ScheduledAt.Equal(kickoff) {
		t.Fatalf("kickoff must be immutable, got %s", second.ScheduledAt)
	}
	if *second.HomeScore != 1 {
		t.Fatalf("expected score update, got %d", *second.HomeScore)
	}
}

func TestMatchRepository_FindFiltersOrdersAndPages(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)
	repo := NewMatchRepository(SeedMatches(now))

	items, total, err := repo.Find(context.Background(), match.Filter{Status: match.StatusScheduled, Limit: 1})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if total != 2 || len(items) != 1 || items[0].ExternalID != "seed-epl-1" {
		t.Fatalf("unexpected page: total=%d items=%+v", total, items)
	}

	items, total, _ = repo.Find(context.Background(), match.Filter{Status: match.StatusScheduled, Offset: 1, Limit: 1})
	if total != 2 || len(items) != 1 || items[0].ExternalID != "seed-nba-1" {
		t.Fatalf("unexpected second page: total=%d items=%+v", total, items)
	}

	items, total, _ = repo.Find(context.Background(), match.Filter{Team: "persib"})
	if total != 1 || items[0].HomeScore == nil || *items[0].HomeScore != 2 {
		t.Fatalf("unexpected team search: total=%d items=%+v", total, items)
	}

	items, _, _ = repo.Find(context.Background(), match.Filter{Offset: 10})
	if len(items) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(items))
	}
}
