package espn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/match-aggregator/external/providerhttp"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

const eplScoreboard = `{
  "leagues": [{"name": "English Premier League", "abbreviation": "EPL", "logos": [{"href": "https://a.espncdn.com/epl.png"}]}],
  "events": [
    {
      "id": "401",
      "date": "2026-10-15T19:00Z",
      "competitions": [{
        "venue": {"fullName": "Emirates Stadium"},
        "status": {"displayClock": "67'", "period": 2, "type": {"name": "STATUS_IN_PROGRESS", "state": "in", "completed": false}},
        "competitors": [
          {"homeAway": "away", "score": "1", "team": {"id": "2", "displayName": "Chelsea"}},
          {"homeAway": "home", "score": 2, "team": {"id": "1", "displayName": "Arsenal"}}
        ],
        "odds": [{"provider": {"name": "DraftKings"}, "homeTeamOdds": {"moneyLine": -120}, "awayTeamOdds": {"moneyLine": 250}, "drawOdds": {"moneyLine": 260}}],
        "details": [
          {"type": {"text": "Goal"}, "clock": {"displayValue": "55'"}, "team": {"id": "2"}, "scoringPlay": true, "athletesInvolved": [{"displayName": "Cole Palmer"}]},
          {"type": {"text": "Goal"}, "clock": {"displayValue": "12'"}, "team": {"id": "1"}, "scoringPlay": true, "athletesInvolved": [{"displayName": "Bukayo Saka"}]}
        ]
      }]
    },
    {
      "id": "402",
      "date": "2026-10-16T14:00Z",
      "competitions": [{
        "status": {"type": {"name": "STATUS_SCHEDULED", "state": "pre"}},
        "competitors": [
          {"homeAway": "home", "score": "0", "team": {"id": "3", "displayName": "Liverpool"}},
          {"homeAway": "away", "score": "0", "team": {"id": "4", "displayName": "Everton"}}
        ]
      }]
    },
    {"id": "403", "date": "not-a-date", "competitions": [{}]},
    {"id": "404", "date": "2026-10-15T12:00Z", "competitions": [{"competitors": [{"homeAway": "home", "team": {"displayName": "Solo"}}]}]}
  ]
}`

func newTestAdapter(t *testing.T, handler http.Handler, leagues map[match.Sport][]string) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := providerhttp.NewClient(providerhttp.ClientConfig{
		Provider: Name,
		BaseURL:  server.URL,
		Backoff:  time.Millisecond,
		Logger:   logging.NewNop(),
	})
	return NewAdapter(Config{Client: client, Leagues: leagues, Logger: logging.NewNop()})
}

func TestAdapter_FetchBySportMapsScoreboard(t *testing.T) {
	t.Parallel()

	var gotPath, gotDates string
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDates = r.URL.Query().Get("dates")
		_, _ = w.Write([]byte(eplScoreboard))
	}), map[match.Sport][]string{match.SportFootball: {"soccer/eng.1"}})

	from := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)
	items, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{From: &from, To: &to}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/soccer/eng.1/scoreboard" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotDates != "20261015-20261016" {
		t.Fatalf("unexpected dates param %q", gotDates)
	}
	if len(items) != 2 {
		t.Fatalf("expected malformed events to be skipped, got %d items", len(items))
	}

	live := items[0]
	if live.ExternalID != "espn-401" || live.Provider != Name {
		t.Fatalf("unexpected identity: %+v", live)
	}
	if live.Status != match.StatusLive || live.Minute == nil || *live.Minute != 67 {
		t.Fatalf("unexpected live state: status=%s minute=%v", live.Status, live.Minute)
	}
	if live.HomeTeam.Name != "Arsenal" || live.AwayTeam.Name != "Chelsea" {
		t.Fatalf("unexpected teams: %s", live.Name())
	}
	if live.HomeScore == nil || *live.HomeScore != 2 || live.AwayScore == nil || *live.AwayScore != 1 {
		t.Fatalf("unexpected score: %v-%v", live.HomeScore, live.AwayScore)
	}
	if live.League.Name != "English Premier League" || live.Venue != "Emirates Stadium" || live.Period != "2" {
		t.Fatalf("unexpected metadata: %+v", live)
	}
	if live.Odds == nil || live.Odds.Bookmaker != "DraftKings" || live.Odds.Draw == nil || *live.Odds.Draw != 260 {
		t.Fatalf("unexpected odds: %+v", live.Odds)
	}
	if len(live.Events) != 2 || live.Events[0].Player != "Bukayo Saka" || live.Events[0].Team != "Arsenal" || live.Events[0].Type != match.EventGoal {
		t.Fatalf("expected events ordered by minute, got %+v", live.Events)
	}

	scheduled := items[1]
	if scheduled.Status != match.StatusScheduled || scheduled.HomeScore != nil || scheduled.Minute != nil {
		t.Fatalf("scheduled match must carry no score or minute: %+v", scheduled)
	}
	if !scheduled.ScheduledAt.Equal(time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected kickoff %s", scheduled.ScheduledAt)
	}
}

func TestAdapter_FetchBySportFiltersStatus(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(eplScoreboard))
	}), map[match.Sport][]string{match.SportFootball: {"soccer/eng.1"}})

	items, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{}, match.StatusLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ExternalID != "espn-401" {
		t.Fatalf("expected only the live match, got %+v", items)
	}
}

func TestAdapter_PartialLeagueFailureKeepsResults(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "esp.1") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(eplScoreboard))
	}), map[match.Sport][]string{match.SportFootball: {"soccer/eng.1", "soccer/esp.1"}})

	items, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected results from the healthy league, got %d", len(items))
	}
}

func TestAdapter_AllLeaguesFailingReturnsError(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), map[match.Sport][]string{match.SportFootball: {"soccer/eng.1"}})

	if _, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{}, ""); err == nil {
		t.Fatalf("expected error when every league fails")
	}
}

func TestAdapter_SearchAppliesQueryAndSkipsUnsupportedSports(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(eplScoreboard))
	}), map[match.Sport][]string{match.SportFootball: {"soccer/eng.1"}})

	items, err := adapter.Search(context.Background(), match.Query{Search: "liverpool"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].HomeTeam.Name != "Liverpool" {
		t.Fatalf("unexpected search result: %+v", items)
	}

	items, err = adapter.Search(context.Background(), match.Query{Sport: match.SportHockey})
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty result for unconfigured sport, got %v %v", items, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", hits.Load())
	}
}

func TestAdapter_SportsFollowsConfiguredLeagues(t *testing.T) {
	t.Parallel()

	adapter := NewAdapter(Config{Leagues: map[match.Sport][]string{
		match.SportHockey:     {"hockey/nhl"},
		match.SportBasketball: {"basketball/nba"},
	}})
	sports := adapter.Sports()
	if len(sports) != 2 || sports[0] != match.SportBasketball || sports[1] != match.SportHockey {
		t.Fatalf("unexpected sports %v", sports)
	}
}

func TestDatesParam(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	sameDay := day.Add(10 * time.Hour)
	later := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		dates match.DateRange
		want  string
	}{
		{name: "open", dates: match.DateRange{}, want: ""},
		{name: "same day", dates: match.DateRange{From: &day, To: &sameDay}, want: "20261015"},
		{name: "range", dates: match.DateRange{From: &day, To: &later}, want: "20261015-20261102"},
		{name: "from only", dates: match.DateRange{From: &day}, want: "20261015-20261022"},
		{name: "to only", dates: match.DateRange{To: &day}, want: "20261008-20261015"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := datesParam(tc.dates); got != tc.want {
				t.Fatalf("datesParam() = %q, want %q", got, tc.want)
			}
		})
	}
}
