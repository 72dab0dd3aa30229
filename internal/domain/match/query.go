package match

import (
	"strings"
	"time"
)

type Source string

const (
	SourceAPI      Source = "api"
	SourceDatabase Source = "database"
	SourceAuto     Source = "auto"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Query describes one inbound request against the match catalogue.
type Query struct {
	Sport    Sport      `validate:"omitempty,sport"`
	Status   Status     `validate:"omitempty,match_status"`
	League   string     `validate:"max=120"`
	Team     string     `validate:"max=120"`
	Search   string     `validate:"max=120"`
	DateFrom *time.Time `validate:"omitempty"`
	DateTo   *time.Time `validate:"omitempty"`
	Page     int        `validate:"gte=1"`
	Limit    int        `validate:"gte=1,lte=100"`
	Source   Source     `validate:"omitempty,oneof=api database auto"`
}

// WithDefaults returns a copy with blank paging and source filled in.
func (q Query) WithDefaults() Query {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Source == "" {
		q.Source = SourceAuto
	}
	q.League = strings.TrimSpace(q.League)
	q.Team = strings.TrimSpace(q.Team)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q Query) DateRange() DateRange {
	return DateRange{From: q.DateFrom, To: q.DateTo}
}

// Matches applies the non-paging filters to a single record.
func (q Query) Matches(m CanonicalMatch) bool {
	if q.Sport != "" && m.Sport != q.Sport {
		return false
	}
	if q.Status != "" && m.Status != q.Status {
		return false
	}
	if q.League != "" && !containsFold(m.League.Name, q.League) {
		return false
	}
	if q.Team != "" && !containsFold(m.HomeTeam.Name, q.Team) && !containsFold(m.AwayTeam.Name, q.Team) {
		return false
	}
	if q.Search != "" &&
		!containsFold(m.HomeTeam.Name, q.Search) &&
		!containsFold(m.AwayTeam.Name, q.Search) &&
		!containsFold(m.League.Name, q.Search) &&
		!containsFold(m.Venue, q.Search) {
		return false
	}
	return q.DateRange().Contains(m.ScheduledAt)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasMore    bool
}

// Page is the outbound result of a façade call.
type Page struct {
	Matches    []CanonicalMatch
	Pagination Pagination
	Source     Source
}
