package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LEDGER_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "", cfg.Profiles.Default)
	require.InDelta(t, 1.0, cfg.Engine.BalanceTolerance, 1e-9)
	require.InDelta(t, 0.01, cfg.Engine.ReconcileTolerance, 1e-9)
	require.Equal(t, 5, cfg.Engine.PrefixLookahead)
	require.InDelta(t, 2.0, cfg.Engine.RowTolerance, 1e-9)
	require.Equal(t, 4, cfg.Engine.MaxParallel)
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "ledger.toml")
	content := `
[log]
level = "debug"
format = "json"

[profiles]
default = "comafi"

[engine]
prefix_lookahead = 3
balance_tolerance = 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("LEDGER_SERVER_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "comafi", cfg.Profiles.Default)
	require.Equal(t, 3, cfg.Engine.PrefixLookahead)
	require.InDelta(t, 0.5, cfg.Engine.BalanceTolerance, 1e-9)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, 4, cfg.Engine.MaxParallel)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := EngineConfig{BalanceTolerance: 1, ReconcileTolerance: 0.01, PrefixLookahead: 5, MaxParallel: 4}
	tests := []struct {
		name    string
		mutate  func(*EngineConfig)
		wantErr bool
	}{
		{"valid", func(*EngineConfig) {}, false},
		{"zero balance tolerance", func(e *EngineConfig) { e.BalanceTolerance = 0 }, true},
		{"negative reconcile tolerance", func(e *EngineConfig) { e.ReconcileTolerance = -1 }, true},
		{"negative lookahead", func(e *EngineConfig) { e.PrefixLookahead = -1 }, true},
		{"no workers", func(e *EngineConfig) { e.MaxParallel = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)
			err := Config{Engine: e}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
