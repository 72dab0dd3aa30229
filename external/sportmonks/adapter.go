package sportmonks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/match-aggregator/external/providerhttp"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

const (
	Name           = "sportmonks"
	DefaultBaseURL = "https://api.sportmonks.com/v3/football"

	fixtureInclude  = "participants;scores;venue;state;periods;league.country;events.type;statistics.type;odds"
	defaultMaxPages = 5
	dateLayout      = "2006-01-02"
)

type Config struct {
	Client    *providerhttp.Client
	Token     string
	LeagueIDs []int64
	MaxPages  int
	// LookBack and LookAhead bound the fixture window when a request carries no dates.
	LookBack  time.Duration
	LookAhead time.Duration
	Logger    *logging.Logger
	Now       func() time.Time
}

// Adapter serves football fixtures from the SportMonks v3 API.
type Adapter struct {
	client    *providerhttp.Client
	token     string
	filters   string
	maxPages  int
	lookBack  time.Duration
	lookAhead time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

func NewAdapter(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	lookBack := cfg.LookBack
	if lookBack <= 0 {
		lookBack = 24 * time.Hour
	}
	lookAhead := cfg.LookAhead
	if lookAhead <= 0 {
		lookAhead = 7 * 24 * time.Hour
	}

	filters := ""
	if len(cfg.LeagueIDs) > 0 {
		ids := make([]string, 0, len(cfg.LeagueIDs))
		for _, id := range cfg.LeagueIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		filters = "fixtureLeagues:" + strings.Join(ids, ",")
	}

	return &Adapter{
		client:    cfg.Client,
		token:     strings.TrimSpace(cfg.Token),
		filters:   filters,
		maxPages:  maxPages,
		lookBack:  lookBack,
		lookAhead: lookAhead,
		logger:    logger,
		now:       now,
	}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Sports() []match.Sport {
	return []match.Sport{match.SportFootball}
}

func (a *Adapter) Search(ctx context.Context, query match.Query) ([]match.CanonicalMatch, error) {
	if query.Sport != "" && query.Sport != match.SportFootball {
		return []match.CanonicalMatch{}, nil
	}
	items, err := a.FetchBySport(ctx, match.SportFootball, query.DateRange(), query.Status)
	if err != nil {
		return nil, err
	}
	out := make([]match.CanonicalMatch, 0, len(items))
	for _, item := range items {
		if query.Matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// FetchBySport reads in-play fixtures for LIVE and the fixture window otherwise.
func (a *Adapter) FetchBySport(ctx context.Context, sport match.Sport, dates match.DateRange, status match.Status) ([]match.CanonicalMatch, error) {
	if sport != match.SportFootball {
		return []match.CanonicalMatch{}, nil
	}

	path := "/livescores/inplay"
	if status != match.StatusLive {
		from, to := a.window(dates)
		path = fmt.Sprintf("/fixtures/between/%s/%s", from.Format(dateLayout), to.Format(dateLayout))
	}

	fixtures, err := a.fetchPages(ctx, path)
	if err != nil {
		return nil, err
	}

	out := make([]match.CanonicalMatch, 0, len(fixtures))
	skipped := 0
	for _, fixture := range fixtures {
		item, err := mapFixture(fixture)
		if err != nil {
			skipped++
			a.logger.DebugContext(ctx, "sportmonks fixture skipped", "fixture_id", fixture.ID, "error", err)
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		if !dates.Contains(item.ScheduledAt) {
			continue
		}
		out = append(out, item)
	}
	if skipped > 0 {
		a.logger.InfoContext(ctx, "sportmonks skipped malformed fixtures", "path", path, "skipped", skipped)
	}
	return out, nil
}

func (a *Adapter) fetchPages(ctx context.Context, path string) ([]fixtureItem, error) {
	out := make([]fixtureItem, 0, 64)
	for page := 1; page <= a.maxPages; page++ {
		query := url.Values{}
		query.Set("api_token", a.token)
		query.Set("include", fixtureInclude)
		if a.filters != "" {
			query.Set("filters", a.filters)
		}
		if page > 1 {
			query.Set("page", strconv.Itoa(page))
		}

		var payload fixturesEnvelope
		if err := a.client.GetJSON(ctx, path, query, &payload); err != nil {
			if page == 1 {
				return nil, err
			}
			a.logger.WarnContext(ctx, "sportmonks page fetch failed, keeping earlier pages", "path", path, "page", page, "error", err)
			break
		}
		out = append(out, payload.Data...)
		if !payload.Pagination.HasMore {
			break
		}
	}
	return out, nil
}

func (a *Adapter) window(dates match.DateRange) (time.Time, time.Time) {
	now := a.now().UTC()
	from := now.Add(-a.lookBack)
	to := now.Add(a.lookAhead)
	if dates.From != nil {
		from = dates.From.UTC()
	}
	if dates.To != nil {
		to = dates.To.UTC()
	}
	if to.Before(from) {
		to = from
	}
	return from, to
}

func mapFixture(fixture fixtureItem) (match.CanonicalMatch, error) {
	if fixture.ID <= 0 {
		return match.CanonicalMatch{}, fmt.Errorf("fixture without id")
	}
	scheduledAt := parseProviderDateTime(fixture.StartingAt)
	if scheduledAt == nil {
		return match.CanonicalMatch{}, fmt.Errorf("unparsable starting_at %q", fixture.StartingAt)
	}

	var home, away *participantItem
	for i := range fixture.Participants {
		switch strings.ToLower(strings.TrimSpace(fixture.Participants[i].Meta.Location)) {
		case "home":
			home = &fixture.Participants[i]
		case "away":
			away = &fixture.Participants[i]
		}
	}
	if home == nil || away == nil {
		return match.CanonicalMatch{}, fmt.Errorf("missing home or away participant")
	}

	status := mapFixtureStatus(fixture.StateID, fixture.ResultInfo)
	homeScore, awayScore := resolveScores(fixture.Scores, home.ID, away.ID)

	item := match.CanonicalMatch{
		ExternalID:  provider.QualifiedID(Name, strconv.FormatInt(fixture.ID, 10)),
		Provider:    Name,
		Sport:       match.SportFootball,
		HomeTeam:    match.Team{Name: home.Name, LogoURL: home.ImagePath},
		AwayTeam:    match.Team{Name: away.Name, LogoURL: away.ImagePath},
		ScheduledAt: *scheduledAt,
		Status:      status,
		HomeScore:   homeScore,
		AwayScore:   awayScore,
		Odds:        mapOdds(fixture.Odds),
		Statistics:  mapStatistics(fixture.Statistics, home.ID, away.ID),
		Events:      mapEvents(fixture.Events, home, away),
	}
	if fixture.League.Set {
		item.League = match.League{
			Name:    fixture.League.Data.Name,
			LogoURL: fixture.League.Data.ImagePath,
		}
		if fixture.League.Data.Country.Set {
			item.League.Country = fixture.League.Data.Country.Data.Name
		}
	}
	if fixture.Venue.Set {
		item.Venue = fixture.Venue.Data.Name
	}
	for _, period := range fixture.Periods {
		if !period.Ticking {
			continue
		}
		item.Period = period.Description
		if period.Minutes != nil {
			item.Minute = match.IntPtr(*period.Minutes)
		}
	}
	return match.Sanitize(item), nil
}

// mapFixtureStatus prefers the numeric state id and falls back to the result text.
func mapFixtureStatus(stateID int64, resultInfo string) match.Status {
	switch stateID {
	case 2, 3, 4, 6, 7, 8, 9, 22, 25:
		return match.StatusLive
	case 5, 13, 14:
		return match.StatusFinished
	case 10, 15, 16, 17:
		return match.StatusPostponed
	case 11, 12, 18:
		return match.StatusCancelled
	case 1:
		return match.StatusScheduled
	}

	info := strings.ToLower(strings.TrimSpace(resultInfo))
	switch {
	case strings.Contains(info, "postpon"):
		return match.StatusPostponed
	case strings.Contains(info, "cancel"), strings.Contains(info, "abandon"):
		return match.StatusCancelled
	case strings.Contains(info, "won"), strings.Contains(info, "draw"), strings.Contains(info, "finish"):
		return match.StatusFinished
	default:
		return match.StatusScheduled
	}
}

// resolveScores keeps the highest-priority score description available for both sides.
func resolveScores(scores []scoreItem, homeID, awayID int64) (*int, *int) {
	bestWeight := 0
	var home, away *int
	for _, score := range scores {
		goals, ok := score.goals()
		if !ok {
			continue
		}
		weight := scoreWeight(score.Description)
		if weight < bestWeight {
			continue
		}
		if weight > bestWeight {
			bestWeight = weight
			home, away = nil, nil
		}
		switch score.ParticipantID {
		case homeID:
			home = match.IntPtr(goals)
		case awayID:
			away = match.IntPtr(goals)
		}
	}
	return home, away
}

func scoreWeight(description string) int {
	value := strings.ToLower(strings.TrimSpace(description))
	switch {
	case value == "current":
		return 6
	case strings.Contains(value, "2nd_half"), strings.Contains(value, "normal_time"):
		return 5
	case strings.Contains(value, "extra_time"):
		return 4
	case strings.Contains(value, "penalt"):
		return 3
	case strings.Contains(value, "1st_half"):
		return 2
	default:
		return 1
	}
}

func mapOdds(items []oddItem) *match.Odds {
	var odds match.Odds
	found := false
	for _, item := range items {
		if item.MarketID != 1 {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(item.Value), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(item.Label)) {
		case "home", "1":
			odds.Home = match.FloatPtr(value)
		case "draw", "x":
			odds.Draw = match.FloatPtr(value)
		case "away", "2":
			odds.Away = match.FloatPtr(value)
		default:
			continue
		}
		if !found {
			odds.Bookmaker = Name + "-" + strconv.FormatInt(item.BookmakerID, 10)
			found = true
		}
	}
	if !found {
		return nil
	}
	return &odds
}

func mapStatistics(items []statisticItem, homeID, awayID int64) map[string]string {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		name := ""
		if item.Type.Set {
			name = normalizeStatName(item.Type.Data.DeveloperName)
			if name == "" {
				name = normalizeStatName(item.Type.Data.Name)
			}
		}
		if name == "" {
			name = fmt.Sprintf("type_%d", item.TypeID)
		}
		side := ""
		switch item.ParticipantID {
		case homeID:
			side = "home"
		case awayID:
			side = "away"
		default:
			continue
		}
		value, ok := item.Data["value"]
		if !ok {
			continue
		}
		out[name+"_"+side] = strconv.FormatFloat(asFloat64(value), 'f', -1, 64)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapEvents(items []eventItem, home, away *participantItem) []match.Event {
	if len(items) == 0 {
		return nil
	}
	out := make([]match.Event, 0, len(items))
	for _, item := range items {
		event := match.Event{
			Type:        eventType(item.typeName()),
			Player:      strings.TrimSpace(item.PlayerName),
			Description: strings.TrimSpace(strings.Join(nonEmpty(item.typeName(), item.Info, item.Addition), " | ")),
		}
		if item.Minute != nil {
			event.Minute = *item.Minute
			if item.ExtraMinute != nil {
				event.Minute += *item.ExtraMinute
			}
		}
		switch item.ParticipantID {
		case home.ID:
			event.Team = home.Name
		case away.ID:
			event.Team = away.Name
		}
		out = append(out, event)
	}
	return out
}

func eventType(name string) match.EventType {
	name = strings.ToUpper(name)
	switch {
	case strings.Contains(name, "GOAL"), name == "PENALTY":
		return match.EventGoal
	case strings.Contains(name, "CARD"):
		return match.EventCard
	case strings.Contains(name, "SUBSTITUTION"):
		return match.EventSubstitution
	default:
		return match.EventOther
	}
}

func normalizeStatName(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.NewReplacer("-", " ", "_", " ").Replace(raw)
	return strings.Join(strings.Fields(raw), "_")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func parseProviderDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}
