package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Log      LogConfig
	Server   ServerConfig
	Profiles ProfilesConfig
	Engine   EngineConfig
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string
}

// ProfilesConfig says where institution profiles come from.
type ProfilesConfig struct {
	// Dir holds extra *.toml profiles loaded on top of the built-in set.
	Dir string
	// Default is used when a request names no profile; empty means auto-detect.
	Default string
}

// EngineConfig holds the reconstruction and reconciliation tolerances.
type EngineConfig struct {
	BalanceTolerance   float64 `mapstructure:"balance_tolerance"`
	ReconcileTolerance float64 `mapstructure:"reconcile_tolerance"`
	PrefixLookahead    int     `mapstructure:"prefix_lookahead"`
	RowTolerance       float64 `mapstructure:"row_tolerance"`
	MaxParallel        int     `mapstructure:"max_parallel"`
}

// Load reads configuration from file and env. path overrides the config file
// location; otherwise LEDGER_CONFIG or ~/.config/statement-ledger/config.toml is
// used. Env var overrides use prefix LEDGER_.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("profiles.dir", "")
	v.SetDefault("profiles.default", "")
	v.SetDefault("engine.balance_tolerance", 1.0)
	v.SetDefault("engine.reconcile_tolerance", 0.01)
	v.SetDefault("engine.prefix_lookahead", 5)
	v.SetDefault("engine.row_tolerance", 2.0)
	v.SetDefault("engine.max_parallel", 4)

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("LEDGER_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "statement-ledger"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// a missing default file is fine; an explicit one must exist
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	e := c.Engine
	switch {
	case e.BalanceTolerance <= 0:
		return fmt.Errorf("engine.balance_tolerance must be positive, got %v", e.BalanceTolerance)
	case e.ReconcileTolerance <= 0:
		return fmt.Errorf("engine.reconcile_tolerance must be positive, got %v", e.ReconcileTolerance)
	case e.PrefixLookahead < 0:
		return fmt.Errorf("engine.prefix_lookahead must not be negative, got %d", e.PrefixLookahead)
	case e.MaxParallel < 1:
		return fmt.Errorf("engine.max_parallel must be at least 1, got %d", e.MaxParallel)
	}
	return nil
}
