package espn

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/match-aggregator/external/providerhttp"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

const (
	Name           = "espn"
	DefaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports"

	// openRangeDays is how far a range with one missing bound reaches.
	openRangeDays = 7
)

var minuteRegex = regexp.MustCompile(`\d+`)

// DefaultLeagues maps each sport onto the scoreboard paths polled for it.
func DefaultLeagues() map[match.Sport][]string {
	return map[match.Sport][]string{
		match.SportFootball:         {"soccer/eng.1", "soccer/esp.1", "soccer/ita.1", "soccer/ger.1", "soccer/uefa.champions"},
		match.SportBasketball:       {"basketball/nba"},
		match.SportAmericanFootball: {"football/nfl"},
		match.SportBaseball:         {"baseball/mlb"},
		match.SportHockey:           {"hockey/nhl"},
	}
}

type Config struct {
	Client  *providerhttp.Client
	Leagues map[match.Sport][]string
	Logger  *logging.Logger
}

// Adapter reads ESPN's public site scoreboards. It needs no credentials.
type Adapter struct {
	client  *providerhttp.Client
	leagues map[match.Sport][]string
	sports  []match.Sport
	logger  *logging.Logger
}

func NewAdapter(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	leagues := cfg.Leagues
	if len(leagues) == 0 {
		leagues = DefaultLeagues()
	}
	sports := make([]match.Sport, 0, len(leagues))
	for _, sport := range match.AllSports() {
		if len(leagues[sport]) > 0 {
			sports = append(sports, sport)
		}
	}
	return &Adapter{client: cfg.Client, leagues: leagues, sports: sports, logger: logger}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Sports() []match.Sport {
	return append([]match.Sport(nil), a.sports...)
}

func (a *Adapter) Search(ctx context.Context, query match.Query) ([]match.CanonicalMatch, error) {
	sports := a.sports
	if query.Sport != "" {
		sports = []match.Sport{query.Sport}
	}

	out := make([]match.CanonicalMatch, 0)
	var firstErr error
	succeeded := 0
	for _, sport := range sports {
		items, err := a.FetchBySport(ctx, sport, query.DateRange(), query.Status)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		succeeded++
		for _, item := range items {
			if query.Matches(item) {
				out = append(out, item)
			}
		}
	}
	if succeeded == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// FetchBySport polls every configured league of the sport. A league failure
// only fails the call when no league answered.
func (a *Adapter) FetchBySport(ctx context.Context, sport match.Sport, dates match.DateRange, status match.Status) ([]match.CanonicalMatch, error) {
	paths := a.leagues[sport]
	if len(paths) == 0 {
		return []match.CanonicalMatch{}, nil
	}

	query := url.Values{}
	if param := datesParam(dates); param != "" {
		query.Set("dates", param)
	}

	out := make([]match.CanonicalMatch, 0)
	var firstErr error
	succeeded := 0
	for _, path := range paths {
		var payload scoreboardEnvelope
		if err := a.client.GetJSON(ctx, "/"+path+"/scoreboard", query, &payload); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			a.logger.WarnContext(ctx, "espn league fetch failed", "league", path, "error", err)
			continue
		}
		succeeded++

		items, skipped := mapScoreboard(sport, payload)
		if skipped > 0 {
			a.logger.InfoContext(ctx, "espn skipped malformed events", "league", path, "skipped", skipped)
		}
		for _, item := range items {
			if status == "" || item.Status == status {
				out = append(out, item)
			}
		}
	}
	if succeeded == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func mapScoreboard(sport match.Sport, payload scoreboardEnvelope) ([]match.CanonicalMatch, int) {
	league := match.League{}
	if len(payload.Leagues) > 0 {
		league.Name = strings.TrimSpace(payload.Leagues[0].Name)
		if league.Name == "" {
			league.Name = payload.Leagues[0].Abbreviation
		}
		if len(payload.Leagues[0].Logos) > 0 {
			league.LogoURL = payload.Leagues[0].Logos[0].Href
		}
	}

	out := make([]match.CanonicalMatch, 0, len(payload.Events))
	skipped := 0
	for _, event := range payload.Events {
		item, err := mapEvent(sport, league, event)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, item)
	}
	return out, skipped
}

func mapEvent(sport match.Sport, league match.League, event eventItem) (match.CanonicalMatch, error) {
	if strings.TrimSpace(event.ID) == "" {
		return match.CanonicalMatch{}, fmt.Errorf("event without id")
	}
	if len(event.Competitions) == 0 {
		return match.CanonicalMatch{}, fmt.Errorf("event %s without competition", event.ID)
	}
	scheduledAt, ok := parseEventDate(event.Date)
	if !ok {
		return match.CanonicalMatch{}, fmt.Errorf("event %s has unparsable date %q", event.ID, event.Date)
	}

	competition := event.Competitions[0]
	var home, away *competitorItem
	for i := range competition.Competitors {
		switch strings.ToLower(competition.Competitors[i].HomeAway) {
		case "home":
			home = &competition.Competitors[i]
		case "away":
			away = &competition.Competitors[i]
		}
	}
	if home == nil || away == nil {
		return match.CanonicalMatch{}, fmt.Errorf("event %s missing competitors", event.ID)
	}

	statusRef := competition.Status
	if statusRef.Type.State == "" && statusRef.Type.Name == "" {
		statusRef = event.Status
	}
	status := mapStatus(statusRef.Type)

	item := match.CanonicalMatch{
		ExternalID:  provider.QualifiedID(Name, event.ID),
		Provider:    Name,
		Sport:       sport,
		League:      league,
		HomeTeam:    match.Team{Name: home.Team.DisplayName, LogoURL: home.Team.Logo},
		AwayTeam:    match.Team{Name: away.Team.DisplayName, LogoURL: away.Team.Logo},
		Venue:       competition.Venue.FullName,
		ScheduledAt: scheduledAt,
		Status:      status,
		HomeScore:   parseScore(string(home.Score)),
		AwayScore:   parseScore(string(away.Score)),
		Odds:        mapOdds(competition.Odds),
		Events:      mapDetails(competition.Details, home.Team, away.Team),
	}
	if statusRef.Period > 0 {
		item.Period = strconv.Itoa(statusRef.Period)
	}
	if status == match.StatusLive {
		item.Minute = parseMinute(sport, statusRef.DisplayClock)
	}
	return match.Sanitize(item), nil
}

func mapStatus(t statusType) match.Status {
	if t.Completed {
		return match.StatusFinished
	}
	switch t.Name {
	case "STATUS_POSTPONED", "STATUS_DELAYED", "STATUS_CANCELED", "STATUS_ABANDONED":
		return match.NormalizeStatus(t.Name)
	}
	return match.NormalizeStatus(t.State)
}

func parseEventDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00", "2006-01-02T15:04Z"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseScore(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return nil
	}
	return match.IntPtr(int(value))
}

// parseMinute only applies to football, where the clock counts elapsed minutes.
func parseMinute(sport match.Sport, clock string) *int {
	if sport != match.SportFootball {
		return nil
	}
	digits := minuteRegex.FindString(clock)
	if digits == "" {
		return nil
	}
	value, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return match.IntPtr(value)
}

func mapOdds(items []oddsItem) *match.Odds {
	if len(items) == 0 {
		return nil
	}
	first := items[0]
	if first.HomeTeamOdds.MoneyLine == nil && first.AwayTeamOdds.MoneyLine == nil {
		return nil
	}
	return &match.Odds{
		Home:      first.HomeTeamOdds.MoneyLine,
		Draw:      first.DrawOdds.MoneyLine,
		Away:      first.AwayTeamOdds.MoneyLine,
		Bookmaker: first.Provider.Name,
	}
}

func mapDetails(details []detailItem, home, away teamRef) []match.Event {
	if len(details) == 0 {
		return nil
	}
	out := make([]match.Event, 0, len(details))
	for _, detail := range details {
		event := match.Event{
			Type:        match.EventOther,
			Description: detail.Type.Text,
		}
		switch {
		case detail.ScoringPlay:
			event.Type = match.EventGoal
		case detail.YellowCard, detail.RedCard:
			event.Type = match.EventCard
		case strings.Contains(strings.ToLower(detail.Type.Text), "substitution"):
			event.Type = match.EventSubstitution
		}
		if digits := minuteRegex.FindString(detail.Clock.DisplayValue); digits != "" {
			event.Minute, _ = strconv.Atoi(digits)
		}
		switch detail.Team.ID {
		case home.ID:
			event.Team = home.DisplayName
		case away.ID:
			event.Team = away.DisplayName
		}
		if len(detail.AthletesInvolved) > 0 {
			event.Player = detail.AthletesInvolved[0].DisplayName
		}
		out = append(out, event)
	}
	return out
}

// datesParam renders ESPN's dates filter: a single day or an inclusive range.
// ESPN has no open-ended ranges, so a missing bound sits openRangeDays away.
func datesParam(dates match.DateRange) string {
	const layout = "20060102"
	var from, to time.Time
	switch {
	case dates.From != nil && dates.To != nil:
		from, to = dates.From.UTC(), dates.To.UTC()
	case dates.From != nil:
		from = dates.From.UTC()
		to = from.AddDate(0, 0, openRangeDays)
	case dates.To != nil:
		to = dates.To.UTC()
		from = to.AddDate(0, 0, -openRangeDays)
	default:
		return ""
	}
	first, last := from.Format(layout), to.Format(layout)
	if first == last {
		return first
	}
	return first + "-" + last
}
