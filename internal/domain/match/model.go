package match

import (
	"sort"
	"strings"
	"time"
)

type EventType string

const (
	EventGoal         EventType = "goal"
	EventCard         EventType = "card"
	EventSubstitution EventType = "substitution"
	EventOther        EventType = "other"
)

// CanonicalMatch is the provider-independent representation of one match.
type CanonicalMatch struct {
	ID          string
	ExternalID  string
	Provider    string
	Sport       Sport
	League      League
	HomeTeam    Team
	AwayTeam    Team
	Venue       string
	ScheduledAt time.Time
	Status      Status
	Period      string
	Minute      *int
	HomeScore   *int
	AwayScore   *int
	Odds        *Odds
	Statistics  map[string]string
	Events      []Event
	UpdatedAt   time.Time
}

type League struct {
	Name    string
	Country string
	LogoURL string
}

type Team struct {
	Name    string
	LogoURL string
}

type Odds struct {
	Home      *float64
	Draw      *float64
	Away      *float64
	Bookmaker string
}

type Event struct {
	Minute      int
	Type        EventType
	Team        string
	Player      string
	Description string
}

type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the range; open bounds always match.
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// HasTeams reports whether both sides are named.
func (m CanonicalMatch) HasTeams() bool {
	return strings.TrimSpace(m.HomeTeam.Name) != "" && strings.TrimSpace(m.AwayTeam.Name) != ""
}

// Name renders "Home vs Away".
func (m CanonicalMatch) Name() string {
	return strings.TrimSpace(m.HomeTeam.Name) + " vs " + strings.TrimSpace(m.AwayTeam.Name)
}

// Sanitize enforces the state invariants: minute only while live, scores only
// once the match has started, events ordered by minute.
func Sanitize(m CanonicalMatch) CanonicalMatch {
	if m.Status == "" {
		m.Status = StatusScheduled
	}
	if m.Status != StatusLive {
		m.Minute = nil
	}
	if !m.Status.HasScore() {
		m.HomeScore = nil
		m.AwayScore = nil
	}
	if !m.ScheduledAt.IsZero() {
		m.ScheduledAt = m.ScheduledAt.UTC()
	}
	if len(m.Events) > 1 {
		events := append([]Event(nil), m.Events...)
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Minute < events[j].Minute
		})
		m.Events = events
	}
	return m
}

func IntPtr(value int) *int {
	v := value
	return &v
}

func FloatPtr(value float64) *float64 {
	v := value
	return &v
}
