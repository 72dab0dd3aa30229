package match

import "context"

// Filter narrows repository reads. Offset/Limit are applied after ordering.
type Filter struct {
	Sport      Sport
	Status     Status
	League     string
	Team       string
	Search     string
	DateRange  DateRange
	Descending bool
	Offset     int
	Limit      int
}

// Repository persists canonical matches keyed by (sport, external id).
type Repository interface {
	Find(ctx context.Context, filter Filter) ([]CanonicalMatch, int, error)
	UpsertMatches(ctx context.Context, items []CanonicalMatch) error
	GetByExternalID(ctx context.Context, sport Sport, externalID string) (CanonicalMatch, bool, error)
}
