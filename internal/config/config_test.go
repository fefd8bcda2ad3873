package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailkpi/internal/kpi"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "memory", cfg.Pipeline.Engine)
	assert.Equal(t, 10, cfg.KPI.TopN)
	assert.Equal(t, 30, cfg.KPI.WindowDays)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
kpi:
  top_n: 5
  vip_threshold: 1000
pipeline:
  engine: table
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.KPI.TopN)
	assert.Equal(t, float64(1000), cfg.KPI.VIPThreshold)
	assert.Equal(t, "table", cfg.Pipeline.Engine)
	// Untouched fields keep their defaults.
	assert.Equal(t, float64(500), cfg.KPI.HighValueThreshold)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("RETAILKPI_SERVER_PORT", "7070")
	t.Setenv("RETAILKPI_KPI_TOP_N", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3, cfg.KPI.TopN)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad engine", yaml: "pipeline:\n  engine: quantum\n"},
		{name: "bad log level", yaml: "logging:\n  level: verbose\n"},
		{name: "port out of range", yaml: "server:\n  port: 99999\n"},
		{name: "vip below high value", yaml: "kpi:\n  vip_threshold: 100\n  high_value_threshold: 500\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_KPIConfig(t *testing.T) {
	cfg := Default()
	kpiCfg := cfg.KPIConfig()

	assert.Equal(t, 10, kpiCfg.TopN)
	assert.True(t, kpiCfg.VIPThreshold.Equal(decimal.NewFromInt(800)))
	assert.True(t, kpiCfg.HighValueThreshold.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 30, kpiCfg.WindowDays)
	assert.NoError(t, kpiCfg.Validate())
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())

	var _ kpi.Config = Default().KPIConfig()
}
