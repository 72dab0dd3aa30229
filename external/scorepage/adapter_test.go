package scorepage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/match-aggregator/external/providerhttp"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

const footballPage = `<html><body>
<ul>
  <li data-match data-match-id="m-1">
    <span data-league>Serie A</span>
    <span data-home>Inter  Milan</span> <span data-home-score>1</span>
    <span data-away-score>1</span> <span data-away>AC Milan</span>
    <span data-status>LIVE</span> <span data-clock>78'</span>
    <time datetime="2026-10-15T18:45:00Z">20:45</time>
    <span data-venue>San Siro</span>
  </li>
  <li data-match>
    <span data-league>Serie A</span>
    <span data-home>Roma</span> <span data-away>Lazio</span>
    <span data-status>NS</span>
    <time datetime="2026-10-16T18:45:00+02:00">18:45</time>
  </li>
  <li data-match data-match-id="m-3">
    <span data-home>Napoli</span>
    <time datetime="2026-10-16T18:45:00Z"></time>
  </li>
  <li data-match data-match-id="m-4">
    <span data-home>Juventus</span> <span data-away>Torino</span>
    <time datetime="tomorrow"></time>
  </li>
</ul>
</body></html>`

func newTestAdapter(t *testing.T, body string, selectors Selectors) *Adapter {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/football" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client := providerhttp.NewClient(providerhttp.ClientConfig{
		Provider: "livescore-page",
		BaseURL:  server.URL,
		Backoff:  time.Millisecond,
		Logger:   logging.NewNop(),
	})
	return NewAdapter(Config{
		Name:      "livescore-page",
		Client:    client,
		Pages:     map[match.Sport]string{match.SportFootball: "/football", match.SportHockey: "/hockey"},
		Selectors: selectors,
		Logger:    logging.NewNop(),
	})
}

func TestAdapter_FetchBySportParsesRows(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, footballPage, Selectors{})
	items, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected rows without teams or kickoff to be skipped, got %d", len(items))
	}

	live := items[0]
	if live.ExternalID != "livescore-page-m-1" || live.Provider != "livescore-page" {
		t.Fatalf("unexpected identity: %+v", live)
	}
	if live.HomeTeam.Name != "Inter Milan" || live.AwayTeam.Name != "AC Milan" || live.League.Name != "Serie A" || live.Venue != "San Siro" {
		t.Fatalf("unexpected fields: %+v", live)
	}
	if live.Status != match.StatusLive || live.Minute == nil || *live.Minute != 78 {
		t.Fatalf("unexpected live state: %+v", live)
	}
	if live.HomeScore == nil || *live.HomeScore != 1 || live.AwayScore == nil || *live.AwayScore != 1 {
		t.Fatalf("unexpected score: %v-%v", live.HomeScore, live.AwayScore)
	}

	scheduled := items[1]
	if scheduled.ExternalID != "livescore-page-roma-lazio-20261016" {
		t.Fatalf("unexpected derived id %q", scheduled.ExternalID)
	}
	if scheduled.Status != match.StatusScheduled || !scheduled.ScheduledAt.Equal(time.Date(2026, 10, 16, 16, 45, 0, 0, time.UTC)) {
		t.Fatalf("unexpected scheduled row: %+v", scheduled)
	}
}

func TestAdapter_CustomSelectors(t *testing.T) {
	t.Parallel()

	page := `<table><tr class="game" id="g7"><td class="h">Oilers</td><td class="a">Flames</td>
		<td class="st">Final</td><td class="hs">4</td><td class="as">2</td><td class="ko">2026-10-14T02:00:00Z</td></tr></table>`
	adapter := newTestAdapter(t, page, Selectors{
		Row: "tr.game", IDAttr: "id", Home: "td.h", Away: "td.a", Status: "td.st",
		HomeScore: "td.hs", AwayScore: "td.as", Kickoff: "td.ko",
	})

	items, err := adapter.FetchBySport(context.Background(), match.SportFootball, match.DateRange{}, match.StatusFinished)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ExternalID != "livescore-page-g7" || *items[0].HomeScore != 4 {
		t.Fatalf("unexpected rows: %+v", items)
	}
}

func TestAdapter_SearchAndUnavailablePage(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, footballPage, Selectors{})
	if got := adapter.Sports(); len(got) != 2 || got[0] != match.SportFootball || got[1] != match.SportHockey {
		t.Fatalf("unexpected sports %v", got)
	}

	items, err := adapter.Search(context.Background(), match.Query{Search: "lazio"})
	if err != nil {
		t.Fatalf("search should tolerate one failing page: %v", err)
	}
	if len(items) != 1 || items[0].AwayTeam.Name != "Lazio" {
		t.Fatalf("unexpected search result: %+v", items)
	}

	_, err = adapter.FetchBySport(context.Background(), match.SportHockey, match.DateRange{}, "")
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
