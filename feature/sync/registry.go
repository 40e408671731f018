package sync

import (
	"fmt"
	"sort"
	"strings"

	"health-sync/feature/provider"
	"health-sync/feature/provider/garmin"
	"health-sync/feature/provider/oura"
	"health-sync/feature/provider/polar"
	"health-sync/feature/provider/rolla"
	"health-sync/feature/provider/withings"
)

type builder func(provider.Settings, provider.TokenStore) (provider.Strategy, error)

var registry = map[string]builder{
	"oura": func(s provider.Settings, _ provider.TokenStore) (provider.Strategy, error) {
		return oura.New(s)
	},
	"polar": func(s provider.Settings, _ provider.TokenStore) (provider.Strategy, error) {
		return polar.New(s)
	},
	"garmin": func(s provider.Settings, t provider.TokenStore) (provider.Strategy, error) {
		return garmin.New(s, t)
	},
	"withings": func(s provider.Settings, _ provider.TokenStore) (provider.Strategy, error) {
		return withings.New(s)
	},
	"rolla": func(s provider.Settings, t provider.TokenStore) (provider.Strategy, error) {
		return rolla.New(s, t)
	},
}

// Sources returns every provider name the registry knows, sorted.
func Sources() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newStrategy builds one provider by name. An unknown name is a
// configuration mistake and names the valid set.
func newStrategy(name string, cfg provider.Config, tokens provider.TokenStore) (provider.Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	build, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (valid: %s)", name, strings.Join(Sources(), ", "))
	}
	settings, _ := cfg.For(key)
	return build(settings, tokens)
}
