// Package config provides the configuration schema, loader, source registry
// and hot-reload watcher for the halidom bot.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SourceKind selects the implementation behind a data source.
type SourceKind string

const (
	// SourceYAML reads entity snapshots from YAML files on disk.
	SourceYAML SourceKind = "yaml"

	// SourcePostgres reads entities from a PostgreSQL table.
	SourcePostgres SourceKind = "postgres"
)

// IsValid reports whether k is a recognised source kind.
func (k SourceKind) IsValid() bool {
	return k == SourceYAML || k == SourcePostgres
}

// DefaultMaxQueriesPerMessage caps the bracket queries answered per message
// when the config leaves it unset.
const DefaultMaxQueriesPerMessage = 3

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Discord DiscordConfig `yaml:"discord"`
	Data    DataConfig    `yaml:"data"`

	// Aliases maps an entity kind (adventurer, dragon, wyrmprint, weapon) to
	// literal → canonical name pairs.
	Aliases map[string]map[string]string `yaml:"aliases"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the health and metrics server
	// (e.g., ":8080"). Empty disables it.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig configures the chat edge.
type DiscordConfig struct {
	// Token is the bot token. Empty runs the bot headless (HTTP only).
	Token string `yaml:"token"`

	// GuildID scopes slash commands to one guild. Empty registers them
	// globally.
	GuildID string `yaml:"guild_id"`

	// AdminRoleID is the role allowed to run /reload. Empty allows members
	// with the Administrator permission only.
	AdminRoleID string `yaml:"admin_role_id"`

	// MessageQueries enables scanning guild messages for [[query]] brackets.
	MessageQueries bool `yaml:"message_queries"`

	// MaxQueriesPerMessage caps how many brackets in one message are
	// answered.
	MaxQueriesPerMessage int `yaml:"max_queries_per_message"`
}

// DataConfig lists where entity snapshots come from.
type DataConfig struct {
	// Sources are tried in order; the first healthy one wins.
	Sources []SourceConfig `yaml:"sources"`

	// CachePath is an optional bbolt file holding the last good snapshot.
	CachePath string `yaml:"cache_path"`

	// Watch rebuilds the index whenever a YAML source file changes.
	Watch bool `yaml:"watch"`

	// RefreshInterval re-pulls the sources periodically. Zero disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// SourceConfig is one entry of [DataConfig.Sources].
type SourceConfig struct {
	Name string     `yaml:"name"`
	Kind SourceKind `yaml:"kind"`

	// Paths lists YAML files for kind yaml. Later files extend earlier ones.
	Paths []string `yaml:"paths"`

	// DSN is the connection string for kind postgres.
	DSN string `yaml:"dsn"`
}
