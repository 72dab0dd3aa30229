package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
)

// Registry keeps adapters by lowercase name in registration order.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("register adapter: nil adapter")
	}
	name := strings.ToLower(strings.TrimSpace(adapter.Name()))
	if name == "" {
		return fmt.Errorf("register adapter: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("register adapter: duplicate registration for %q", name)
	}
	r.adapters[name] = adapter
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Lookup(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return adapter, ok
}

// All returns adapters in registration order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// Supporting returns adapters that declare the sport, in registration order.
func (r *Registry) Supporting(sport match.Sport) []Adapter {
	all := r.All()
	out := make([]Adapter, 0, len(all))
	for _, adapter := range all {
		if Supports(adapter, sport) {
			out = append(out, adapter)
		}
	}
	return out
}

// Sports returns every sport declared by at least one adapter, sorted.
func (r *Registry) Sports() []match.Sport {
	seen := make(map[match.Sport]struct{})
	for _, adapter := range r.All() {
		for _, sport := range adapter.Sports() {
			seen[sport] = struct{}{}
		}
	}
	out := make([]match.Sport, 0, len(seen))
	for sport := range seen {
		out = append(out, sport)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}
