package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 0.01, cfg.Slippage.MaxSlippage)
	assert.Equal(t, 2*time.Second, cfg.Slippage.SplitInterval)
	assert.Equal(t, 0.3, cfg.Fusion.Materiality)
	assert.Equal(t, 5, cfg.Execution.TWAP.MaxSlices)
	assert.Equal(t, 10000, cfg.Orders.HistorySize)
	assert.Len(t, cfg.Strategies, 3)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("engine.yaml")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Execution.PassiveWait)
	assert.Equal(t, 50*time.Millisecond, cfg.Fusion.LatencyTarget)
	require.Len(t, cfg.Strategies, 3)
	assert.Equal(t, "MACD", cfg.Strategies[1].Name)
	assert.Equal(t, 1.2, cfg.Strategies[1].Weight)
	assert.Equal(t, 26.0, cfg.Strategies[1].Params["slow"])

	_, err = Load("missing.yaml")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {

	type test struct {
		yaml  string
		err   bool
		check func(t *testing.T, cfg Config)
	}

	tests := map[string]test{
		"partial-keeps-defaults": {
			yaml: "execution:\n  passive_wait: 10ms\n",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 10*time.Millisecond, cfg.Execution.PassiveWait)
				assert.Equal(t, 0.001, cfg.Execution.AggressivePremium)
				assert.Equal(t, time.Second, cfg.Execution.TWAP.Interval)
			},
		},
		"strategies-replace-defaults": {
			yaml: "strategies:\n  - name: Momentum\n    weight: 2\n",
			check: func(t *testing.T, cfg Config) {
				require.Len(t, cfg.Strategies, 1)
				assert.Equal(t, "Momentum", cfg.Strategies[0].Name)
			},
		},
		"invalid-slippage": {
			yaml: "slippage:\n  max_slippage_pct: 2\n",
			err:  true,
		},
		"invalid-twap-slices": {
			yaml: "execution:\n  twap:\n    min_slices: 6\n    max_slices: 3\n",
			err:  true,
		},
		"invalid-log-level": {
			yaml: "log:\n  level: loud\n",
			err:  true,
		},
		"invalid-strategy": {
			yaml: "strategies:\n  - weight: 2\n",
			err:  true,
		},
		"invalid-yaml": {
			yaml: "orders: [",
			err:  true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestOverlay(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:    "debug",
		EnvAdminPort:   "9090",
		EnvMaxSlippage: "0.02",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg, err := Overlay(Default(), lookup)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Admin.Port)
	assert.Equal(t, 0.02, cfg.Slippage.MaxSlippage)

	env[EnvAdminPort] = "port"
	_, err = Overlay(Default(), lookup)
	assert.Error(t, err)

	env[EnvAdminPort] = "9090"
	env[EnvMaxSlippage] = "5"
	_, err = Overlay(Default(), lookup)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte(EnvLogLevel+"=warn\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv(EnvLogLevel)
	})

	require.NoError(t, LoadEnv(file))
	v, ok := os.LookupEnv(EnvLogLevel)
	require.True(t, ok)
	assert.Equal(t, "warn", v)

	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestDump(t *testing.T) {
	b, err := Dump(Default())
	require.NoError(t, err)
	assert.Contains(t, string(b), "max_slippage_pct: 0.01")

	cfg, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
