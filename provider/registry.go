package provider

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory creates a new Client from the given configuration.
// Each backend package registers its own factory in init().
type Factory func(cfg Config) (Client, error)

// entry is a registered name. Aliases point at another entry's factory and
// preset some Options.
type entry struct {
	factory Factory
	target  string
	preset  map[string]any
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]entry)
)

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a provider factory to the registry. Names are
// case-insensitive. Panics if the name is already taken.
//
//	func init() {
//	    provider.Register("local", newFromProviderConfig)
//	}
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := normalizeName(name)
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("provider %q already registered", name))
	}
	registry[key] = entry{factory: factory, target: key}
}

// RegisterAlias makes alias create clients with target's factory, filling
// in preset for any option the config leaves unset. Panics if alias is
// taken or target is not registered.
//
//	provider.RegisterAlias("ollama", "local", map[string]any{"backend": "ollama"})
func RegisterAlias(alias, target string, preset map[string]any) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := normalizeName(alias)
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("provider %q already registered", alias))
	}
	t, ok := registry[normalizeName(target)]
	if !ok {
		panic(fmt.Sprintf("provider alias %q: target %q not registered", alias, target))
	}
	registry[key] = entry{factory: t.factory, target: t.target, preset: maps.Clone(preset)}
}

// New creates a new Client using the named provider.
// Returns ErrUnknownProvider if the provider is not registered.
func New(name string, cfg Config) (Client, error) {
	registryMu.RLock()
	e, ok := registry[normalizeName(name)]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownProvider, name, Available())
	}
	for k, v := range e.preset {
		if _, set := cfg.Options[k]; !set {
			cfg = cfg.WithOption(k, v)
		}
	}
	return e.factory(cfg)
}

// FromConfig creates a Client using cfg.Provider.
func FromConfig(cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(cfg.Provider, cfg)
}

// MustNew creates a new Client, panicking on error.
func MustNew(name string, cfg Config) Client {
	client, err := New(name, cfg)
	if err != nil {
		panic(fmt.Sprintf("provider.MustNew(%q): %v", name, err))
	}
	return client
}

// Available returns every registered name, aliases included, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	return slices.Sorted(maps.Keys(registry))
}

// Resolve returns the provider an alias points at, or name itself.
func Resolve(name string) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	e, ok := registry[normalizeName(name)]
	return e.target, ok
}

// IsRegistered checks if a provider is registered.
func IsRegistered(name string) bool {
	_, ok := Resolve(name)
	return ok
}

// Unregister removes a provider or alias from the registry. Aliases of a
// removed provider are left dangling; tests remove them together.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(registry, normalizeName(name))
}
