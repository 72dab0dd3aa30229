package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/usecase"
)

type matchListRequest struct {
	Sport    string `validate:"omitempty,max=40"`
	Status   string `validate:"omitempty,max=20"`
	League   string `validate:"max=120"`
	Team     string `validate:"max=120"`
	Search   string `validate:"max=120"`
	DateFrom string `validate:"omitempty,max=35"`
	DateTo   string `validate:"omitempty,max=35"`
	Page     string `validate:"omitempty,numeric"`
	Limit    string `validate:"omitempty,numeric"`
	Source   string `validate:"omitempty,oneof=api database auto"`
}

func matchListRequestFromURL(values url.Values) matchListRequest {
	search := values.Get("search")
	if search == "" {
		search = values.Get("q")
	}
	return matchListRequest{
		Sport:    strings.TrimSpace(values.Get("sport")),
		Status:   strings.TrimSpace(values.Get("status")),
		League:   strings.TrimSpace(values.Get("league")),
		Team:     strings.TrimSpace(values.Get("team")),
		Search:   strings.TrimSpace(search),
		DateFrom: strings.TrimSpace(values.Get("date_from")),
		DateTo:   strings.TrimSpace(values.Get("date_to")),
		Page:     strings.TrimSpace(values.Get("page")),
		Limit:    strings.TrimSpace(values.Get("limit")),
		Source:   strings.ToLower(strings.TrimSpace(values.Get("source"))),
	}
}

// toQuery converts the validated request. Range checks on paging stay with
// the façade so every caller gets the same rules.
func (r matchListRequest) toQuery() (match.Query, error) {
	query := match.Query{
		League: r.League,
		Team:   r.Team,
		Search: r.Search,
		Source: match.Source(r.Source),
	}

	if r.Sport != "" {
		sport, ok := match.ParseSport(r.Sport)
		if !ok {
			return match.Query{}, fmt.Errorf("%w: unknown sport %q", usecase.ErrValidation, r.Sport)
		}
		query.Sport = sport
	}
	if r.Status != "" {
		status, ok := match.ParseStatus(r.Status)
		if !ok {
			return match.Query{}, fmt.Errorf("%w: unknown status %q", usecase.ErrValidation, r.Status)
		}
		query.Status = status
	}

	var err error
	if query.DateFrom, err = parseDateParam("date_from", r.DateFrom, false); err != nil {
		return match.Query{}, err
	}
	if query.DateTo, err = parseDateParam("date_to", r.DateTo, true); err != nil {
		return match.Query{}, err
	}
	if query.Page, err = parseIntParam("page", r.Page); err != nil {
		return match.Query{}, err
	}
	if query.Limit, err = parseIntParam("limit", r.Limit); err != nil {
		return match.Query{}, err
	}
	return query, nil
}

// parseDateParam accepts RFC3339 or a bare date. A bare upper bound covers
// the whole day.
func parseDateParam(name, raw string, upper bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD or RFC3339", usecase.ErrValidation, name)
	}
	if upper {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

func parseIntParam(name, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrValidation, name)
	}
	return value, nil
}

type matchPageDTO struct {
	Matches    []matchDTO    `json:"matches"`
	Pagination paginationDTO `json:"pagination"`
	Source     string        `json:"source"`
}

type paginationDTO struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

type matchDTO struct {
	ID          string            `json:"id,omitempty"`
	ExternalID  string            `json:"external_id"`
	Provider    string            `json:"provider"`
	Sport       string            `json:"sport"`
	League      leagueDTO         `json:"league"`
	HomeTeam    teamDTO           `json:"home_team"`
	AwayTeam    teamDTO           `json:"away_team"`
	Venue       string            `json:"venue,omitempty"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	Status      string            `json:"status"`
	Period      string            `json:"period,omitempty"`
	Minute      *int              `json:"minute,omitempty"`
	HomeScore   *int              `json:"home_score"`
	AwayScore   *int              `json:"away_score"`
	Odds        *oddsDTO          `json:"odds,omitempty"`
	Statistics  map[string]string `json:"statistics,omitempty"`
	Events      []eventDTO        `json:"events,omitempty"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

type leagueDTO struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}

type teamDTO struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

type oddsDTO struct {
	Home      *float64 `json:"home,omitempty"`
	Draw      *float64 `json:"draw,omitempty"`
	Away      *float64 `json:"away,omitempty"`
	Bookmaker string   `json:"bookmaker,omitempty"`
}

type eventDTO struct {
	Minute      int    `json:"minute"`
	Type        string `json:"type"`
	Team        string `json:"team,omitempty"`
	Player      string `json:"player,omitempty"`
	Description string `json:"description,omitempty"`
}

func matchPageToDTO(page match.Page) matchPageDTO {
	items := make([]matchDTO, 0, len(page.Matches))
	for _, item := range page.Matches {
		items = append(items, matchToDTO(item))
	}
	return matchPageDTO{
		Matches: items,
		Pagination: paginationDTO{
			Page:       page.Pagination.Page,
			Limit:      page.Pagination.Limit,
			Total:      page.Pagination.Total,
			TotalPages: page.Pagination.TotalPages,
			HasMore:    page.Pagination.HasMore,
		},
		Source: string(page.Source),
	}
}

func matchToDTO(m match.CanonicalMatch) matchDTO {
	out := matchDTO{
		ID:          m.ID,
		ExternalID:  m.ExternalID,
		Provider:    m.Provider,
		Sport:       string(m.Sport),
		League:      leagueDTO{Name: m.League.Name, Country: m.League.Country, LogoURL: m.League.LogoURL},
		HomeTeam:    teamDTO{Name: m.HomeTeam.Name, LogoURL: m.HomeTeam.LogoURL},
		AwayTeam:    teamDTO{Name: m.AwayTeam.Name, LogoURL: m.AwayTeam.LogoURL},
		Venue:       m.Venue,
		ScheduledAt: m.ScheduledAt.UTC(),
		Status:      string(m.Status),
		Period:      m.Period,
		Minute:      m.Minute,
		HomeScore:   m.HomeScore,
		AwayScore:   m.AwayScore,
		Statistics:  m.Statistics,
	}
	if m.Odds != nil {
		out.Odds = &oddsDTO{Home: m.Odds.Home, Draw: m.Odds.Draw, Away: m.Odds.Away, Bookmaker: m.Odds.Bookmaker}
	}
	if len(m.Events) > 0 {
		out.Events = make([]eventDTO, 0, len(m.Events))
		for _, event := range m.Events {
			out.Events = append(out.Events, eventDTO{
				Minute:      event.Minute,
				Type:        string(event.Type),
				Team:        event.Team,
				Player:      event.Player,
				Description: event.Description,
			})
		}
	}
	if !m.UpdatedAt.IsZero() {
		updated := m.UpdatedAt.UTC()
		out.UpdatedAt = &updated
	}
	return out
}

type providerHealthDTO struct {
	Provider            string     `json:"provider"`
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	LastAttemptAt       *time.Time `json:"last_attempt_at,omitempty"`
	LastLatencyMs       int64      `json:"last_latency_ms"`
	LastError           string     `json:"last_error,omitempty"`
	TotalCalls          int64      `json:"total_calls"`
	TotalFailures       int64      `json:"total_failures"`
}

func providerHealthToDTO(record provider.HealthRecord) providerHealthDTO {
	return providerHealthDTO{
		Provider:            record.Provider,
		Status:              string(record.Status),
		ConsecutiveFailures: record.ConsecutiveFailures,
		LastSuccessAt:       record.LastSuccessAt,
		LastFailureAt:       record.LastFailureAt,
		LastAttemptAt:       record.LastAttemptAt,
		LastLatencyMs:       record.LastLatency.Milliseconds(),
		LastError:           record.LastError,
		TotalCalls:          record.TotalCalls,
		TotalFailures:       record.TotalFailures,
	}
}

func providerHealthListToDTO(records []provider.HealthRecord) []providerHealthDTO {
	out := make([]providerHealthDTO, 0, len(records))
	for _, record := range records {
		out = append(out, providerHealthToDTO(record))
	}
	return out
}

type schedulerStatusDTO struct {
	Running    bool                      `json:"running"`
	InFlight   bool                      `json:"in_flight"`
	Interval   string                    `json:"interval"`
	LastRunAt  *time.Time                `json:"last_run_at,omitempty"`
	LastReport *usecase.LiveUpdateReport `json:"last_report,omitempty"`
}

func schedulerStatusToDTO(status usecase.SchedulerStatus) schedulerStatusDTO {
	return schedulerStatusDTO{
		Running:    status.Running,
		InFlight:   status.InFlight,
		Interval:   status.Interval.String(),
		LastRunAt:  status.LastRunAt,
		LastReport: status.LastReport,
	}
}

type opsStatusDTO struct {
	Providers []providerHealthDTO `json:"providers"`
	Scheduler schedulerStatusDTO  `json:"scheduler"`
}
