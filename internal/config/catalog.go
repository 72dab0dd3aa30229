package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderCatalog overrides per-adapter settings. Adapters missing from the
// file keep their env defaults.
type ProviderCatalog struct {
	Providers map[string]ProviderSettings `yaml:"providers"`
}

type ProviderSettings struct {
	Enabled   *bool               `yaml:"enabled"`
	BaseURL   string              `yaml:"base_url"`
	Timeout   time.Duration       `yaml:"timeout"`
	Retries   *int                `yaml:"retries"`
	Sports    []string            `yaml:"sports"`
	Leagues   map[string][]string `yaml:"leagues"`
	LeagueIDs []int64             `yaml:"league_ids"`
	MaxPages  int                 `yaml:"max_pages"`
	Pages     map[string]string   `yaml:"pages"`
	Selectors map[string]string   `yaml:"selectors"`
}

// Provider returns the settings for name. Lookup ignores case.
func (c ProviderCatalog) Provider(name string) (ProviderSettings, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for providerName, settings := range c.Providers {
		if strings.ToLower(strings.TrimSpace(providerName)) == key {
			return settings, true
		}
	}
	return ProviderSettings{}, false
}

// IsEnabled reports whether the adapter should be registered, falling back
// to def when the catalog is silent.
func (s ProviderSettings) IsEnabled(def bool) bool {
	if s.Enabled == nil {
		return def
	}
	return *s.Enabled
}

// RetriesOr returns the configured retry count or def.
func (s ProviderSettings) RetriesOr(def int) int {
	if s.Retries == nil {
		return def
	}
	return *s.Retries
}

func LoadProviderCatalog(path string) (ProviderCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ProviderCatalog{}, fmt.Errorf("read PROVIDER_CATALOG_PATH: %w", err)
	}
	return ParseProviderCatalog(raw)
}

func ParseProviderCatalog(raw []byte) (ProviderCatalog, error) {
	var catalog ProviderCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return ProviderCatalog{}, fmt.Errorf("parse provider catalog: %w", err)
	}

	for name, settings := range catalog.Providers {
		if strings.TrimSpace(name) == "" {
			return ProviderCatalog{}, fmt.Errorf("provider catalog: empty provider name")
		}
		if settings.Timeout < 0 {
			return ProviderCatalog{}, fmt.Errorf("provider catalog: %s timeout must be > 0", name)
		}
		if settings.Retries != nil && *settings.Retries < 0 {
			return ProviderCatalog{}, fmt.Errorf("provider catalog: %s retries must be >= 0", name)
		}
		if settings.MaxPages < 0 {
			return ProviderCatalog{}, fmt.Errorf("provider catalog: %s max_pages must be >= 0", name)
		}
	}
	return catalog, nil
}
