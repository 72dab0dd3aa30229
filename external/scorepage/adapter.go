package scorepage

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/riskibarqy/match-aggregator/external/providerhttp"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

const DefaultName = "scorepage"

var (
	minuteRegex   = regexp.MustCompile(`\d+`)
	nonAlnumRegex = regexp.MustCompile(`[^a-z0-9]+`)
)

// Selectors locate match fields inside a scoreboard page. Every field selector
// is evaluated relative to one Row.
type Selectors struct {
	Row       string `yaml:"row"`
	IDAttr    string `yaml:"id_attr"`
	League    string `yaml:"league"`
	Home      string `yaml:"home"`
	Away      string `yaml:"away"`
	HomeScore string `yaml:"home_score"`
	AwayScore string `yaml:"away_score"`
	Status    string `yaml:"status"`
	Clock     string `yaml:"clock"`
	Kickoff   string `yaml:"kickoff"`
	Venue     string `yaml:"venue"`
}

// DefaultSelectors match the data-attribute scoreboard markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Row:       "[data-match]",
		IDAttr:    "data-match-id",
		League:    "[data-league]",
		Home:      "[data-home]",
		Away:      "[data-away]",
		HomeScore: "[data-home-score]",
		AwayScore: "[data-away-score]",
		Status:    "[data-status]",
		Clock:     "[data-clock]",
		Kickoff:   "time[datetime]",
		Venue:     "[data-venue]",
	}
}

type Config struct {
	Name      string
	Client    *providerhttp.Client
	Pages     map[match.Sport]string
	Selectors Selectors
	Logger    *logging.Logger
}

// Adapter scrapes HTML scoreboard pages, one page per sport.
type Adapter struct {
	name      string
	client    *providerhttp.Client
	pages     map[match.Sport]string
	sports    []match.Sport
	selectors Selectors
	logger    *logging.Logger
}

func NewAdapter(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = DefaultName
	}
	selectors := mergeSelectors(DefaultSelectors(), cfg.Selectors)

	sports := make([]match.Sport, 0, len(cfg.Pages))
	for _, sport := range match.AllSports() {
		if strings.TrimSpace(cfg.Pages[sport]) != "" {
			sports = append(sports, sport)
		}
	}
	return &Adapter{
		name:      name,
		client:    cfg.Client,
		pages:     cfg.Pages,
		sports:    sports,
		selectors: selectors,
		logger:    logger,
	}
}

func (a *Adapter) Name() string {
	return a.name
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

func (a *Adapter) FetchBySport(ctx context.Context, sport match.Sport, dates match.DateRange, status match.Status) ([]match.CanonicalMatch, error) {
	path := strings.TrimSpace(a.pages[sport])
	if path == "" {
		return []match.CanonicalMatch{}, nil
	}

	raw, err := a.client.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, provider.Malformed(a.name, err)
	}

	out := make([]match.CanonicalMatch, 0)
	skipped := 0
	doc.Find(a.selectors.Row).Each(func(_ int, row *goquery.Selection) {
		item, err := a.parseRow(sport, row)
		if err != nil {
			skipped++
			return
		}
		if status != "" && item.Status != status {
			return
		}
		if !dates.Contains(item.ScheduledAt) {
			return
		}
		out = append(out, item)
	})
	if skipped > 0 {
		a.logger.InfoContext(ctx, "scorepage skipped unreadable rows", "provider", a.name, "sport", sport, "skipped", skipped)
	}
	return out, nil
}

func (a *Adapter) parseRow(sport match.Sport, row *goquery.Selection) (match.CanonicalMatch, error) {
	sel := a.selectors
	home := text(row, sel.Home)
	away := text(row, sel.Away)
	if home == "" || away == "" {
		return match.CanonicalMatch{}, fmt.Errorf("row without teams")
	}

	kickoffNode := row.Find(sel.Kickoff).First()
	rawKickoff, _ := kickoffNode.Attr("datetime")
	if rawKickoff == "" {
		rawKickoff = strings.TrimSpace(kickoffNode.Text())
	}
	scheduledAt, err := time.Parse(time.RFC3339, rawKickoff)
	if err != nil {
		return match.CanonicalMatch{}, fmt.Errorf("row %s vs %s: kickoff %q: %w", home, away, rawKickoff, err)
	}

	id, _ := row.Attr(sel.IDAttr)
	id = strings.TrimSpace(id)
	if id == "" {
		id = derivedID(home, away, scheduledAt)
	}

	status := match.NormalizeStatus(text(row, sel.Status))
	item := match.CanonicalMatch{
		ExternalID:  provider.QualifiedID(a.name, id),
		Provider:    a.name,
		Sport:       sport,
		League:      match.League{Name: text(row, sel.League)},
		HomeTeam:    match.Team{Name: home},
		AwayTeam:    match.Team{Name: away},
		Venue:       text(row, sel.Venue),
		ScheduledAt: scheduledAt.UTC(),
		Status:      status,
		HomeScore:   score(text(row, sel.HomeScore)),
		AwayScore:   score(text(row, sel.AwayScore)),
	}
	if status == match.StatusLive {
		clock := text(row, sel.Clock)
		if sport == match.SportFootball {
			if digits := minuteRegex.FindString(clock); digits != "" {
				minute, _ := strconv.Atoi(digits)
				item.Minute = match.IntPtr(minute)
			}
		} else {
			item.Period = clock
		}
	}
	return match.Sanitize(item), nil
}

func text(row *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(row.Find(selector).First().Text()), " ")
}

func score(raw string) *int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return nil
	}
	return match.IntPtr(value)
}

// derivedID keys rows without an id attribute on teams and kickoff day.
func derivedID(home, away string, kickoff time.Time) string {
	slug := func(v string) string {
		return nonAlnumRegex.ReplaceAllString(strings.ToLower(v), "")
	}
	return slug(home) + "-" + slug(away) + "-" + kickoff.UTC().Format("20060102")
}

func mergeSelectors(base, override Selectors) Selectors {
	pick := func(current, candidate string) string {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
		return current
	}
	base.Row = pick(base.Row, override.Row)
	base.IDAttr = pick(base.IDAttr, override.IDAttr)
	base.League = pick(base.League, override.League)
	base.Home = pick(base.Home, override.Home)
	base.Away = pick(base.Away, override.Away)
	base.HomeScore = pick(base.HomeScore, override.HomeScore)
	base.AwayScore = pick(base.AwayScore, override.AwayScore)
	base.Status = pick(base.Status, override.Status)
	base.Clock = pick(base.Clock, override.Clock)
	base.Kickoff = pick(base.Kickoff, override.Kickoff)
	base.Venue = pick(base.Venue, override.Venue)
	return base
}
