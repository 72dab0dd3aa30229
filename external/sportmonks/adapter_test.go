package sportmonks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/match-aggregator/external/providerhttp"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

const inplayPayload = `{
  "data": [
    {
      "id": 19134,
      "starting_at": "2026-10-15 19:00:00",
      "state_id": 3,
      "participants": [
        {"id": 10, "name": "Persija", "meta": {"location": "home"}},
        {"id": 20, "name": "Persib", "meta": {"location": "away"}}
      ],
      "league": {"name": "Liga 1", "country": {"data": {"name": "Indonesia"}}},
      "venue": {"data": {"name": "Gelora Bung Karno"}},
      "periods": [
        {"ticking": false, "minutes": 45, "description": "1st-half"},
        {"ticking": true, "minutes": 63, "description": "2nd-half"}
      ],
      "scores": [
        {"participant_id": 10, "description": "1ST_HALF", "score": {"goals": 0}},
        {"participant_id": 20, "description": "1ST_HALF", "score": {"goals": 0}},
        {"participant_id": 10, "description": "CURRENT", "score": {"goals": 2}},
        {"participant_id": 20, "description": "CURRENT", "score": {"goals": 1}}
      ],
      "events": [
        {"participant_id": 20, "player_name": "Ciro Alves", "minute": 58, "type": {"developer_name": "GOAL"}},
        {"participant_id": 10, "player_name": "Rizky Ridho", "minute": 45, "extra_minute": 2, "type": {"developer_name": "YELLOWCARD"}}
      ],
      "statistics": [
        {"participant_id": 10, "type": {"developer_name": "BALL_POSSESSION"}, "data": {"value": 55}},
        {"participant_id": 20, "type": {"developer_name": "BALL_POSSESSION"}, "data": {"value": 45}}
      ],
      "odds": [
        {"market_id": 1, "bookmaker_id": 2, "label": "Home", "value": "1.80"},
        {"market_id": 1, "bookmaker_id": 2, "label": "Draw", "value": "3.40"},
        {"market_id": 1, "bookmaker_id": 2, "label": "Away", "value": "4.20"},
        {"market_id": 12, "bookmaker_id": 2, "label": "Over", "value": "1.95"}
      ]
    },
    {"id": 19135, "starting_at": "garbage", "participants": []}
  ],
  "pagination": {"has_more": false}
}`

func newTestAdapter(t *testing.T, handler http.Handler, now time.Time) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := providerhttp.NewClient(providerhttp.ClientConfig{
		Provider: Name,
		BaseURL:  server.URL,
		Backoff:  time.Millisecond,
		Secrets:  []string{"sm-token"},
		Logger:   logging.NewNop(),
	})
	return NewAdapter(Config{
		Client:    client,
		Token:     "sm-token",
		LeagueIDs: []int64{8, 501},
		Logger:    logging.NewNop(),
		Now:       func() time.Time { return now },
	})
}

func TestAdapter_FetchLiveMapsFixture(t *testing.T) {
	t.Parallel()

	var gotPath, gotToken, gotFilters string
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("api_token")
		gotFilters = r.URL.Query().Get("filters")
		_, _ = w.Write([]byte(inplayPayload))
	}), time.Now())

	items, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{}, match.StatusLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/livescores/inplay" || gotToken != "sm-token" || gotFilters != "fixtureLeagues:8,501" {
		t.Fatalf("unexpected request path=%q token=%q filters=%q", gotPath, gotToken, gotFilters)
	}
	if len(items) != 1 {
		t.Fatalf("expected malformed fixture skipped, got %d", len(items))
	}

	item := items[0]
	if item.ExternalID != "sportmonks-19134" || item.Status != match.StatusLive {
		t.Fatalf("unexpected identity/status: %s %s", item.ExternalID, item.Status)
	}
	if item.HomeScore == nil || *item.HomeScore != 2 || item.AwayScore == nil || *item.AwayScore != 1 {
		t.Fatalf("expected current score 2-1, got %v-%v", item.HomeScore, item.AwayScore)
	}
	if item.Minute == nil || *item.Minute != 63 || item.Period != "2nd-half" {
		t.Fatalf("unexpected clock: minute=%v period=%q", item.Minute, item.Period)
	}
	if item.League.Name != "Liga 1" || item.League.Country != "Indonesia" || item.Venue != "Gelora Bung Karno" {
		t.Fatalf("unexpected metadata: %+v", item)
	}
	if item.Statistics["ball_possession_home"] != "55" || item.Statistics["ball_possession_away"] != "45" {
		t.Fatalf("unexpected statistics: %v", item.Statistics)
	}
	if item.Odds == nil || item.Odds.Home == nil || *item.Odds.Home != 1.8 || item.Odds.Away == nil || *item.Odds.Away != 4.2 {
		t.Fatalf("unexpected odds: %+v", item.Odds)
	}
	if len(item.Events) != 2 || item.Events[0].Type != match.EventCard || item.Events[0].Minute != 47 || item.Events[0].Team != "Persija" {
		t.Fatalf("unexpected events: %+v", item.Events)
	}
	if item.Events[1].Type != match.EventGoal || item.Events[1].Player != "Ciro Alves" {
		t.Fatalf("unexpected goal event: %+v", item.Events[1])
	}
}

func TestAdapter_FetchScheduledUsesDateWindowAndPages(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	var gotPath string
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotPath = r.URL.Path
		if r.URL.Query().Get("page") == "" {
			_, _ = w.Write([]byte(`{"data": [{"id": 1, "starting_at": "2026-10-16 12:00:00", "state_id": 1,
				"participants": [{"id": 1, "name": "A", "meta": {"location": "home"}}, {"id": 2, "name": "B", "meta": {"location": "away"}}],
				"scores": [{"participant_id": 1, "description": "CURRENT", "score": {"goals": 0}}]}],
				"pagination": {"has_more": true}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": [{"id": 2, "starting_at": "2026-10-17 12:00:00", "state_id": 5,
			"participants": [{"id": 3, "name": "C", "meta": {"location": "home"}}, {"id": 4, "name": "D", "meta": {"location": "away"}}],
			"scores": [{"participant_id": 3, "description": "CURRENT", "score": {"goals": 3}}, {"participant_id": 4, "description": "CURRENT", "score": {"goals": 3}}]}],
			"pagination": {"has_more": false}}`))
	}), time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))

	items, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/fixtures/between/2026-10-14/2026-10-22" {
		t.Fatalf("unexpected window path %q", gotPath)
	}
	if hits.Load() != 2 || len(items) != 2 {
		t.Fatalf("expected two pages, hits=%d items=%d", hits.Load(), len(items))
	}
	if items[0].Status != match.StatusScheduled || items[0].HomeScore != nil {
		t.Fatalf("scheduled fixture must not carry a score: %+v", items[0])
	}
	if items[1].Status != match.StatusFinished || items[1].HomeScore == nil || *items[1].HomeScore != 3 {
		t.Fatalf("unexpected finished fixture: %+v", items[1])
	}
}

func TestAdapter_OtherSportsAreEmpty(t *testing.T) {
	t.Parallel()

	adapter := NewAdapter(Config{Logger: logging.NewNop()})
	items, err := adapter.FetchBySport(context.Background(), match.SportBasketball, match.DateRange{}, "")
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty result, got %v %v", items, err)
	}
	items, err = adapter.Search(context.Background(), match.Query{Sport: match.SportHockey})
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty search result, got %v %v", items, err)
	}
}

func TestAdapter_UpstreamFailureIsReturned(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), time.Now())

	if _, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{}, match.StatusLive); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMapFixtureStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		stateID int64
		info    string
		want    match.Status
	}{
		{stateID: 1, want: match.StatusScheduled},
		{stateID: 3, want: match.StatusLive},
		{stateID: 5, want: match.StatusFinished},
		{stateID: 10, want: match.StatusPostponed},
		{stateID: 12, want: match.StatusCancelled},
		{stateID: 0, info: "Game postponed", want: match.StatusPostponed},
		{stateID: 0, info: "Arsenal won after full-time.", want: match.StatusFinished},
		{stateID: 0, info: "", want: match.StatusScheduled},
	}
	for _, tc := range cases {
		if got := mapFixtureStatus(tc.stateID, tc.info); got != tc.want {
			t.Fatalf("mapFixtureStatus(%d, %q) = %s, want %s", tc.stateID, tc.info, got, tc.want)
		}
	}
}
