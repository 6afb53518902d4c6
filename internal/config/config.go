// Package config loads engine configuration, layering TYPEGRAPH_-prefixed
// environment variables over an optional project config file over
// built-in defaults, scoped to what the graph engine itself needs:
// backend selection, retry/timeout tuning, default temporal mode, and
// batch sizing (§4.F.6, §5, §6).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/typegraph/tgcore/internal/core"
)

// envPrefix namespaces every environment override as TYPEGRAPH_<KEY>,
// e.g. TYPEGRAPH_BACKEND=dolt.
const envPrefix = "TYPEGRAPH"

// Config is the engine's runtime configuration.
type Config struct {
	// Backend selects the storage dialect: "sqlite" or "dolt".
	Backend string `mapstructure:"backend"`

	SQLitePath        string `mapstructure:"sqlite.path"`
	SQLiteBusyTimeout int    `mapstructure:"sqlite.busyTimeoutMs"`

	DoltEmbeddedPath string `mapstructure:"dolt.embeddedPath"`
	DoltServerDSN    string `mapstructure:"dolt.serverDsn"`
	DoltDatabase     string `mapstructure:"dolt.database"`

	MaxRetries          uint64        `mapstructure:"maxRetries"`
	RetryInitialBackoff time.Duration `mapstructure:"retryInitialBackoff"`

	DefaultTemporalMode core.TemporalMode `mapstructure:"defaultTemporalMode"`
	BatchSize           int               `mapstructure:"batchSize"`

	AutoMigrate     bool `mapstructure:"autoMigrate"`
	ThrowOnBreaking bool `mapstructure:"throwOnBreaking"`

	// SchemaFile names a schema definition file. Load only records it;
	// nothing watches it (config.WatchSchemaFile takes a path and a
	// callback from its caller).
	SchemaFile string `mapstructure:"schemaFile"`
}

func defaults() *viper.Viper {
	v := viper.New()
	v.SetDefault("backend", "sqlite")
	v.SetDefault("sqlite.path", "typegraph.db")
	v.SetDefault("sqlite.busyTimeoutMs", 5000)
	v.SetDefault("dolt.database", "typegraph")
	v.SetDefault("maxRetries", uint64(5))
	v.SetDefault("retryInitialBackoff", "100ms")
	v.SetDefault("defaultTemporalMode", string(core.TemporalCurrent))
	v.SetDefault("batchSize", 500)
	v.SetDefault("autoMigrate", false)
	v.SetDefault("throwOnBreaking", true)
	return v
}

// Load reads configuration from an optional file (YAML or TOML,
// detected by extension) at path, then TYPEGRAPH_-prefixed environment
// variables, layered over built-in defaults (§4.E EnsureOptions,
// §6 backend config, GLOSSARY default temporal mode).
func Load(path string) (*Config, error) {
	v := defaults()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if strings.HasSuffix(path, ".toml") {
			// Decode with the same library viper delegates to internally,
			// but directly, so a malformed TOML file is reported with a
			// line/column before it ever reaches viper's merge step.
			var probe map[string]any
			if _, err := toml.DecodeFile(path, &probe); err != nil {
				return nil, fmt.Errorf("typegraph: parsing toml config file %s: %w", path, err)
			}
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("typegraph: reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("typegraph: decoding config: %w", err)
	}
	// Unmarshal decodes viper's nested settings map, which the dotted
	// mapstructure tags above never match, so read those keys directly.
	cfg.SQLitePath = v.GetString("sqlite.path")
	cfg.SQLiteBusyTimeout = v.GetInt("sqlite.busyTimeoutMs")
	cfg.DoltEmbeddedPath = v.GetString("dolt.embeddedPath")
	cfg.DoltServerDSN = v.GetString("dolt.serverDsn")
	cfg.DoltDatabase = v.GetString("dolt.database")
	return &cfg, nil
}
