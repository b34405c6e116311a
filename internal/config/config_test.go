package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 60, cfg.Market.Periods)
	assert.Equal(t, time.Minute, cfg.Market.Interval)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC), cfg.Market.StartTime)
	assert.Equal(t, int64(123), cfg.Market.Seed)
	assert.Equal(t, 3000.0, cfg.Strategy.TotalQuantity)
	assert.Equal(t, 41, cfg.Strategy.WindowLength())
	assert.Equal(t, "vwap", cfg.Backtest.Benchmark)
	assert.Equal(t, 30*time.Second, cfg.Output.RenderTimeout)
	assert.Equal(t, []string{"stdout"}, cfg.Logging.OutputPaths)
}

func TestLoad_FileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
market:
  periods: 20
  seed: 7
strategy:
  total_quantity: 1000
  start_index: 0
  end_index: 9
backtest:
  side: sell
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, map[string]any{"market.seed": int64(99), "output.plots": false})
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Market.Periods)
	assert.Equal(t, int64(99), cfg.Market.Seed)
	assert.Equal(t, 10, cfg.Strategy.WindowLength())
	assert.Equal(t, "sell", cfg.Backtest.Side)
	assert.False(t, cfg.Output.Plots)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未找到配置文件")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TWAP_STRATEGY_TOTAL_QUANTITY", "500")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.Strategy.TotalQuantity)
}

func TestValidate_RejectsInvalidStrategy(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	cfg.Strategy.TotalQuantity = 0
	cfg.Strategy.StartIndex = 20
	cfg.Strategy.EndIndex = 10
	cfg.Backtest.Side = "hold"

	err = cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "strategy.total_quantity 必须为大于0的有限值")
	assert.Contains(t, msg, "窗口长度必须大于0")
	assert.Contains(t, msg, "backtest.side")
}

func TestValidate_WindowBeyondSeries(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	cfg.Strategy.EndIndex = cfg.Market.Periods
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy.end_index 必须小于 market.periods")
}

func TestValidate_DataPathSkipsGeneratorChecks(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	cfg.Market.DataPath = "ticks.csv"
	cfg.Market.Periods = 0
	cfg.Market.VolumeMean = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsNonFinite(t *testing.T) {
	values := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}
	fields := map[string]func(*Config, float64){
		"strategy.total_quantity":  func(c *Config, v float64) { c.Strategy.TotalQuantity = v },
		"market.initial_price":     func(c *Config, v float64) { c.Market.InitialPrice = v },
		"market.price_volatility":  func(c *Config, v float64) { c.Market.PriceVolatility = v },
		"market.volume_mean":       func(c *Config, v float64) { c.Market.VolumeMean = v },
		"backtest.slippage_factor": func(c *Config, v float64) { c.Backtest.SlippageFactor = v },
	}
	for field, set := range fields {
		for _, v := range values {
			cfg, err := Load("", nil)
			require.NoError(t, err)

			set(cfg, v)
			err = cfg.Validate()
			require.Error(t, err, "%s=%v", field, v)
			assert.Contains(t, err.Error(), field)
		}
	}
}

func TestLoad_EnvNonFiniteQuantity(t *testing.T) {
	t.Setenv("TWAP_STRATEGY_TOTAL_QUANTITY", "NaN")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy.total_quantity")
}
