package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/riskibarqy/match-aggregator/external/balldontlie"
	"github.com/riskibarqy/match-aggregator/external/espn"
	"github.com/riskibarqy/match-aggregator/external/providerhttp"
	"github.com/riskibarqy/match-aggregator/external/scorepage"
	"github.com/riskibarqy/match-aggregator/external/sportmonks"
	"github.com/riskibarqy/match-aggregator/internal/config"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/riskibarqy/match-aggregator/internal/platform/resilience"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultProviderRetries = 1
	providerRetryBackoff   = 300 * time.Millisecond
)

// buildRegistry registers every enabled adapter. Keyless adapters are on by
// default; keyed ones turn on once their credential is configured.
func buildRegistry(cfg config.Config, logger *logging.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry()

	espnSettings, _ := cfg.Providers.Provider(espn.Name)
	if espnSettings.IsEnabled(true) {
		leagues, err := espnLeagues(espnSettings)
		if err != nil {
			return nil, err
		}
		adapter := espn.NewAdapter(espn.Config{
			Client:  newProviderClient(cfg, espn.Name, espnSettings, cfg.ESPNBaseURL, nil, nil, nil, logger),
			Leagues: leagues,
			Logger:  logger,
		})
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	sportmonksSettings, _ := cfg.Providers.Provider(sportmonks.Name)
	if sportmonksSettings.IsEnabled(cfg.SportMonksToken != "") {
		if cfg.SportMonksToken == "" {
			return nil, fmt.Errorf("SPORTMONKS_TOKEN is required when sportmonks is enabled")
		}
		adapter := sportmonks.NewAdapter(sportmonks.Config{
			Client:    newProviderClient(cfg, sportmonks.Name, sportmonksSettings, cfg.SportMonksBaseURL, nil, nil, []string{cfg.SportMonksToken}, logger),
			Token:     cfg.SportMonksToken,
			LeagueIDs: sportmonksSettings.LeagueIDs,
			MaxPages:  sportmonksSettings.MaxPages,
			Logger:    logger,
		})
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	bdlSettings, _ := cfg.Providers.Provider(balldontlie.Name)
	if bdlSettings.IsEnabled(cfg.BallDontLieAPIKey != "") {
		if cfg.BallDontLieAPIKey == "" {
			return nil, fmt.Errorf("BALLDONTLIE_API_KEY is required when balldontlie is enabled")
		}
		header := http.Header{}
		header.Set("Authorization", cfg.BallDontLieAPIKey)
		fetcher := providerhttp.NewFastHTTPFetcher(nil, providerTimeout(cfg, bdlSettings), 0)
		adapter := balldontlie.NewAdapter(balldontlie.Config{
			Client:   newProviderClient(cfg, balldontlie.Name, bdlSettings, cfg.BallDontLieBaseURL, fetcher, header, []string{cfg.BallDontLieAPIKey}, logger),
			MaxPages: bdlSettings.MaxPages,
			Logger:   logger,
		})
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	scoreSettings, _ := cfg.Providers.Provider(scorepage.DefaultName)
	scoreBaseURL := firstNonEmpty(scoreSettings.BaseURL, cfg.ScorePageBaseURL)
	if scoreSettings.IsEnabled(scoreBaseURL != "") {
		if scoreBaseURL == "" {
			return nil, fmt.Errorf("SCOREPAGE_BASE_URL is required when scorepage is enabled")
		}
		pages, err := scorePages(scoreSettings)
		if err != nil {
			return nil, err
		}
		adapter := scorepage.NewAdapter(scorepage.Config{
			Name:      scorepage.DefaultName,
			Client:    newProviderClient(cfg, scorepage.DefaultName, scoreSettings, scoreBaseURL, nil, nil, nil, logger),
			Pages:     pages,
			Selectors: selectorsFromMap(scoreSettings.Selectors),
			Logger:    logger,
		})
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	if len(registry.Names()) == 0 {
		logger.Warn("no provider adapters enabled; every api request will return an empty result")
	}
	return registry, nil
}

func newProviderClient(
	cfg config.Config,
	name string,
	settings config.ProviderSettings,
	defaultBaseURL string,
	fetcher providerhttp.Fetcher,
	header http.Header,
	secrets []string,
	logger *logging.Logger,
) *providerhttp.Client {
	timeout := providerTimeout(cfg, settings)
	retries := settings.RetriesOr(defaultProviderRetries)
	if fetcher == nil {
		fetcher = providerhttp.NewNetHTTPFetcher(&http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}, 0)
	}
	return providerhttp.NewClient(providerhttp.ClientConfig{
		Provider:       name,
		BaseURL:        firstNonEmpty(settings.BaseURL, defaultBaseURL),
		Fetcher:        fetcher,
		Header:         header,
		MaxRetries:     retries,
		Backoff:        providerRetryBackoff,
		Secrets:        secrets,
		Logger:         logger.Named(name),
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
		// Covers every attempt and its backoff.
		RequestTimeout: time.Duration(retries+1) * (timeout + providerRetryBackoff),
	})
}

func providerTimeout(cfg config.Config, settings config.ProviderSettings) time.Duration {
	if settings.Timeout > 0 {
		return settings.Timeout
	}
	return cfg.AdapterTimeout
}

// espnLeagues applies the catalog league lists, then narrows them to the
// catalog sports when those are given.
func espnLeagues(settings config.ProviderSettings) (map[match.Sport][]string, error) {
	leagues := espn.DefaultLeagues()
	if len(settings.Leagues) > 0 {
		leagues = make(map[match.Sport][]string, len(settings.Leagues))
		for rawSport, paths := range settings.Leagues {
			sport, ok := match.ParseSport(rawSport)
			if !ok {
				return nil, fmt.Errorf("provider catalog: espn: unknown sport %q", rawSport)
			}
			leagues[sport] = append(leagues[sport], paths...)
		}
	}
	if len(settings.Sports) == 0 {
		return leagues, nil
	}

	sports, err := parseSports(settings.Sports)
	if err != nil {
		return nil, fmt.Errorf("provider catalog: espn: %w", err)
	}
	narrowed := make(map[match.Sport][]string, len(sports))
	for _, sport := range sports {
		if paths := leagues[sport]; len(paths) > 0 {
			narrowed[sport] = paths
		}
	}
	return narrowed, nil
}

func scorePages(settings config.ProviderSettings) (map[match.Sport]string, error) {
	raw := settings.Pages
	if len(raw) == 0 {
		raw = map[string]string{string(match.SportFootball): "/football"}
	}
	pages := make(map[match.Sport]string, len(raw))
	for rawSport, path := range raw {
		sport, ok := match.ParseSport(rawSport)
		if !ok {
			return nil, fmt.Errorf("provider catalog: scorepage: unknown sport %q", rawSport)
		}
		pages[sport] = path
	}
	if len(settings.Sports) == 0 {
		return pages, nil
	}

	sports, err := parseSports(settings.Sports)
	if err != nil {
		return nil, fmt.Errorf("provider catalog: scorepage: %w", err)
	}
	narrowed := make(map[match.Sport]string, len(sports))
	for _, sport := range sports {
		if path := pages[sport]; path != "" {
			narrowed[sport] = path
		}
	}
	return narrowed, nil
}

// selectorsFromMap maps catalog keys onto selector fields. Blank fields keep
// the adapter defaults.
func selectorsFromMap(values map[string]string) scorepage.Selectors {
	get := func(key string) string { return strings.TrimSpace(values[key]) }
	return scorepage.Selectors{
		Row:       get("row"),
		IDAttr:    get("id_attr"),
		League:    get("league"),
		Home:      get("home"),
		Away:      get("away"),
		HomeScore: get("home_score"),
		AwayScore: get("away_score"),
		Status:    get("status"),
		Clock:     get("clock"),
		Kickoff:   get("kickoff"),
		Venue:     get("venue"),
	}
}

func parseSports(values []string) ([]match.Sport, error) {
	out := make([]match.Sport, 0, len(values))
	for _, value := range values {
		sport, ok := match.ParseSport(value)
		if !ok {
			return nil, fmt.Errorf("unknown sport %q", value)
		}
		out = append(out, sport)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
