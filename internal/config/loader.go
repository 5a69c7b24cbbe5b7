package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/halidom/internal/entity"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills defaults and validates
// the result. Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Discord.MaxQueriesPerMessage == 0 {
		cfg.Discord.MaxQueriesPerMessage = DefaultMaxQueriesPerMessage
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Discord.MaxQueriesPerMessage < 0 {
		errs = append(errs, fmt.Errorf("discord.max_queries_per_message %d must not be negative", cfg.Discord.MaxQueriesPerMessage))
	}
	if cfg.Discord.Token == "" && cfg.Discord.MessageQueries {
		slog.Warn("discord.message_queries is enabled but discord.token is empty; the bot will not connect")
	}

	if len(cfg.Data.Sources) == 0 && cfg.Data.CachePath == "" {
		errs = append(errs, errors.New("data.sources: at least one source or data.cache_path is required"))
	}
	if cfg.Data.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("data.refresh_interval %s must not be negative", cfg.Data.RefreshInterval))
	}

	seen := make(map[string]int, len(cfg.Data.Sources))
	var yamlSources int
	for i, src := range cfg.Data.Sources {
		prefix := fmt.Sprintf("data.sources[%d]", i)
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := seen[src.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of data.sources[%d]", prefix, src.Name, prev))
			}
			seen[src.Name] = i
		}
		if src.Name == CacheSourceName {
			errs = append(errs, fmt.Errorf("%s.name %q is reserved for data.cache_path", prefix, src.Name))
		}
		switch src.Kind {
		case SourceYAML:
			yamlSources++
			if len(src.Paths) == 0 {
				errs = append(errs, fmt.Errorf("%s.paths is required when kind is yaml", prefix))
			}
		case SourcePostgres:
			if src.DSN == "" {
				errs = append(errs, fmt.Errorf("%s.dsn is required when kind is postgres", prefix))
			}
		default:
			errs = append(errs, fmt.Errorf("%s.kind %q is invalid; valid values: yaml, postgres", prefix, src.Kind))
		}
	}
	if cfg.Data.Watch && yamlSources == 0 {
		slog.Warn("data.watch is enabled but no yaml source is configured; nothing will be watched")
	}

	if _, err := entity.ParseAliases(cfg.Aliases); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// CacheSourceName is the fallback name under which data.cache_path is served.
const CacheSourceName = "cache"

// WatchPaths returns every file of every yaml source, in config order.
func (c *Config) WatchPaths() []string {
	var out []string
	for _, src := range c.Data.Sources {
		if src.Kind == SourceYAML {
			out = append(out, src.Paths...)
		}
	}
	return out
}
