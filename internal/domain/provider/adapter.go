package provider

import (
	"context"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
)

// Adapter is the uniform capability contract every external data source implements.
type Adapter interface {
	Name() string
	Sports() []match.Sport
	Search(ctx context.Context, query match.Query) ([]match.CanonicalMatch, error)
	FetchBySport(ctx context.Context, sport match.Sport, dates match.DateRange, status match.Status) ([]match.CanonicalMatch, error)
}

// Supports reports whether the adapter declares the sport.
func Supports(adapter Adapter, sport match.Sport) bool {
	if adapter == nil {
		return false
	}
	for _, candidate := range adapter.Sports() {
		if candidate == sport {
			return true
		}
	}
	return false
}

// QualifiedID builds the provider-qualified external id, e.g. "espn-401547".
func QualifiedID(provider, id string) string {
	return provider + "-" + id
}
