package memory

import (
	"time"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
)

// SeedMatches returns a small fixture set for local runs without a database.
func SeedMatches(now time.Time) []match.CanonicalMatch {
	day := now.UTC().Truncate(24 * time.Hour)
	return []match.CanonicalMatch{
		{
			ExternalID:  "seed-epl-1",
			Provider:    "seed",
			Sport:       match.SportFootball,
			League:      match.League{Name: "Premier League", Country: "England"},
			HomeTeam:    match.Team{Name: "Arsenal"},
			AwayTeam:    match.Team{Name: "Chelsea"},
			Venue:       "Emirates Stadium",
			ScheduledAt: day.Add(36 * time.Hour),
			Status:      match.StatusScheduled,
		},
		{
			ExternalID:  "seed-liga1-1",
			Provider:    "seed",
			Sport:       match.SportFootball,
			League:      match.League{Name: "Liga 1", Country: "Indonesia"},
			HomeTeam:    match.Team{Name: "Persija Jakarta"},
			AwayTeam:    match.Team{Name: "Persib Bandung"},
			Venue:       "Jakarta International Stadium",
			ScheduledAt: day.Add(-24 * time.Hour).Add(12 * time.Hour),
			Status:      match.StatusFinished,
			HomeScore:   match.IntPtr(2),
			AwayScore:   match.IntPtr(1),
			Events: []match.Event{
				{Minute: 17, Type: match.EventGoal, Team: "Persija Jakarta", Player: "Marko Simic"},
				{Minute: 58, Type: match.EventGoal, Team: "Persib Bandung", Player: "David da Silva"},
				{Minute: 81, Type: match.EventGoal, Team: "Persija Jakarta", Player: "Riko Simanjuntak"},
			},
		},
		{
			ExternalID:  "seed-nba-1",
			Provider:    "seed",
			Sport:       match.SportBasketball,
			League:      match.League{Name: "NBA", Country: "USA"},
			HomeTeam:    match.Team{Name: "Boston Celtics"},
			AwayTeam:    match.Team{Name: "Miami Heat"},
			Venue:       "TD Garden",
			ScheduledAt: day.Add(48 * time.Hour),
			Status:      match.StatusScheduled,
		},
	}
}
