package parsers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/linecompare/internal/pkg/config"
)

// Factory builds a producer named name from its source config.
type Factory func(name string, cfg config.SourceConfig) (Producer, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(kind string, f Factory) {
	n := strings.ToLower(strings.TrimSpace(kind))
	if n == "" {
		panic("parsers: empty kind in Register")
	}
	if f == nil {
		panic("parsers: nil factory in Register for " + n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[n]; exists {
		panic("parsers: duplicate registration for " + n)
	}
	registry[n] = f
}

func FactoryByName(kind string) (Factory, bool) {
	n := strings.ToLower(strings.TrimSpace(kind))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[n]
	return f, ok
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build creates one producer per enabled source, in configured order.
// Producers built before a failure are closed.
func Build(cfg *config.Config) ([]Producer, error) {
	out := make([]Producer, 0, len(cfg.Poller.EnabledSources))
	for _, name := range cfg.Poller.EnabledSources {
		sc := cfg.Source(name)
		f, ok := FactoryByName(sc.Kind)
		if !ok {
			CloseAll(out)
			return nil, fmt.Errorf("source %s: %w %q (available: %v)", name, ErrUnknownProducer, sc.Kind, AvailableNames())
		}
		p, err := f(name, sc)
		if err != nil {
			CloseAll(out)
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// CloseAll releases producer resources; errors are ignored.
func CloseAll(ps []Producer) {
	for _, p := range ps {
		if c, ok := p.(Closer); ok {
			_ = c.Close()
		}
	}
}
