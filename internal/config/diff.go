package config

import (
	"maps"
	"slices"
	"time"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are acted upon; everything else
// is reported in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	AliasesChanged bool
	AliasKinds     []string // kinds whose alias tables differ, sorted

	RefreshChanged bool
	NewRefresh     time.Duration

	// RestartRequired names the top-level settings that changed but only
	// take effect after a restart.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	kinds := make(map[string]struct{})
	for k := range old.Aliases {
		kinds[k] = struct{}{}
	}
	for k := range new.Aliases {
		kinds[k] = struct{}{}
	}
	for _, k := range slices.Sorted(maps.Keys(kinds)) {
		if !maps.Equal(old.Aliases[k], new.Aliases[k]) {
			d.AliasKinds = append(d.AliasKinds, k)
		}
	}
	d.AliasesChanged = len(d.AliasKinds) > 0

	if old.Data.RefreshInterval != new.Data.RefreshInterval {
		d.RefreshChanged = true
		d.NewRefresh = new.Data.RefreshInterval
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Discord != new.Discord {
		d.RestartRequired = append(d.RestartRequired, "discord")
	}
	if !sourcesEqual(old.Data.Sources, new.Data.Sources) ||
		old.Data.CachePath != new.Data.CachePath ||
		old.Data.Watch != new.Data.Watch {
		d.RestartRequired = append(d.RestartRequired, "data")
	}

	return d
}

func sourcesEqual(a, b []SourceConfig) bool {
	return slices.EqualFunc(a, b, func(x, y SourceConfig) bool {
		return x.Name == y.Name && x.Kind == y.Kind && x.DSN == y.DSN &&
			slices.Equal(x.Paths, y.Paths)
	})
}
