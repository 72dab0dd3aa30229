package balldontlie

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
	Name           = "balldontlie"
	DefaultBaseURL = "https://api.balldontlie.io/v1"

	defaultMaxPages = 3
	pageSize        = 100
	dateLayout      = "2006-01-02"
)

type gamesEnvelope struct {
	Data []gameItem `json:"data"`
	Meta struct {
		NextCursor *int64 `json:"next_cursor"`
	} `json:"meta"`
}

type gameItem struct {
	ID               int64   `json:"id"`
	Date             string  `json:"date"`
	DateTime         string  `json:"datetime"`
	Status           string  `json:"status"`
	Period           int     `json:"period"`
	Time             string  `json:"time"`
	Postseason       bool    `json:"postseason"`
	HomeTeamScore    int     `json:"home_team_score"`
	VisitorTeamScore int     `json:"visitor_team_score"`
	HomeTeam         teamRef `json:"home_team"`
	VisitorTeam      teamRef `json:"visitor_team"`
}

type teamRef struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Abbreviation string `json:"abbreviation"`
	City         string `json:"city"`
}

type Config struct {
	Client   *providerhttp.Client
	MaxPages int
	Logger   *logging.Logger
	Now      func() time.Time
}

// Adapter serves NBA games. The API key travels in the client's Authorization header.
type Adapter struct {
	client   *providerhttp.Client
	maxPages int
	logger   *logging.Logger
	now      func() time.Time
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
	return &Adapter{client: cfg.Client, maxPages: maxPages, logger: logger, now: now}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Sports() []match.Sport {
	return []match.Sport{match.SportBasketball}
}

func (a *Adapter) Search(ctx context.Context, query match.Query) ([]match.CanonicalMatch, error) {
	if query.Sport != "" && query.Sport != match.SportBasketball {
		return []match.CanonicalMatch{}, nil
	}
	items, err := a.FetchBySport(ctx, match.SportBasketball, query.DateRange(), query.Status)
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

// FetchBySport reads games between the requested dates, defaulting to today.
func (a *Adapter) FetchBySport(ctx context.Context, sport match.Sport, dates match.DateRange, status match.Status) ([]match.CanonicalMatch, error) {
	if sport != match.SportBasketball {
		return []match.CanonicalMatch{}, nil
	}

	today := a.now().UTC()
	from, to := today, today
	if dates.From != nil {
		from = dates.From.UTC()
	}
	if dates.To != nil {
		to = dates.To.UTC()
	}

	query := url.Values{}
	query.Set("start_date", from.Format(dateLayout))
	query.Set("end_date", to.Format(dateLayout))
	query.Set("per_page", strconv.Itoa(pageSize))

	out := make([]match.CanonicalMatch, 0, pageSize)
	for page := 0; page < a.maxPages; page++ {
		var payload gamesEnvelope
		if err := a.client.GetJSON(ctx, "/games", query, &payload); err != nil {
			if page == 0 {
				return nil, err
			}
			a.logger.WarnContext(ctx, "balldontlie page fetch failed, keeping earlier pages", "page", page+1, "error", err)
			break
		}
		for _, game := range payload.Data {
			item, err := mapGame(game)
			if err != nil {
				a.logger.DebugContext(ctx, "balldontlie game skipped", "game_id", game.ID, "error", err)
				continue
			}
			if status != "" && item.Status != status {
				continue
			}
			out = append(out, item)
		}
		if payload.Meta.NextCursor == nil {
			break
		}
		query.Set("cursor", strconv.FormatInt(*payload.Meta.NextCursor, 10))
	}
	return out, nil
}

func mapGame(game gameItem) (match.CanonicalMatch, error) {
	if game.ID <= 0 {
		return match.CanonicalMatch{}, fmt.Errorf("game without id")
	}
	if strings.TrimSpace(game.HomeTeam.FullName) == "" || strings.TrimSpace(game.VisitorTeam.FullName) == "" {
		return match.CanonicalMatch{}, fmt.Errorf("game %d missing teams", game.ID)
	}
	scheduledAt, ok := parseTipOff(game)
	if !ok {
		return match.CanonicalMatch{}, fmt.Errorf("game %d has no usable date", game.ID)
	}

	status := mapGameStatus(game)
	item := match.CanonicalMatch{
		ExternalID:  provider.QualifiedID(Name, strconv.FormatInt(game.ID, 10)),
		Provider:    Name,
		Sport:       match.SportBasketball,
		League:      match.League{Name: "NBA", Country: "USA"},
		HomeTeam:    match.Team{Name: game.HomeTeam.FullName},
		AwayTeam:    match.Team{Name: game.VisitorTeam.FullName},
		ScheduledAt: scheduledAt,
		Status:      status,
		HomeScore:   match.IntPtr(game.HomeTeamScore),
		AwayScore:   match.IntPtr(game.VisitorTeamScore),
	}
	if game.Postseason {
		item.League.Name = "NBA Playoffs"
	}
	if game.Period > 0 {
		item.Period = "Q" + strconv.Itoa(game.Period)
		if game.Period > 4 {
			item.Period = "OT" + strconv.Itoa(game.Period-4)
		}
	}
	return match.Sanitize(item), nil
}

// mapGameStatus reads the status text. Before tip-off it carries the start time
// instead of a state.
func mapGameStatus(game gameItem) match.Status {
	text := strings.TrimSpace(game.Status)
	lower := strings.ToLower(text)
	switch {
	case strings.HasPrefix(lower, "final"):
		return match.StatusFinished
	case strings.Contains(lower, "postponed"):
		return match.StatusPostponed
	case strings.Contains(lower, "cancel"):
		return match.StatusCancelled
	case strings.Contains(lower, "qtr"), strings.Contains(lower, "half"), strings.HasPrefix(lower, "ot"):
		return match.StatusLive
	}
	if _, err := time.Parse(time.RFC3339, text); err == nil {
		return match.StatusScheduled
	}
	if game.Period > 0 {
		return match.StatusLive
	}
	return match.StatusScheduled
}

func parseTipOff(game gameItem) (time.Time, bool) {
	for _, raw := range []string{game.DateTime, game.Status} {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
			return parsed.UTC(), true
		}
	}
	if parsed, err := time.Parse(dateLayout, strings.TrimSpace(game.Date)); err == nil {
		return parsed.UTC(), true
	}
	return time.Time{}, false
}
