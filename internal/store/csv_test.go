package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twap-backtest/internal/backtest"
	"twap-backtest/internal/config"
	"twap-backtest/internal/market"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(config.OutputConfig{
		Dir:            filepath.Join(t.TempDir(), "result"),
		TicksFile:      "synthetic_data.csv",
		ExecutionsFile: "executed_data.csv",
	})
	require.NoError(t, err)
	return s
}

func TestWriteTicks_ReadBack(t *testing.T) {
	s := newTestStore(t)
	ticks, err := market.Generate(market.GeneratorConfig{
		StartTime:       time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC),
		Periods:         30,
		Interval:        time.Minute,
		InitialPrice:    100,
		PriceVolatility: 1,
		VolumeMean:      500,
		Seed:            7,
	})
	require.NoError(t, err)

	path, err := s.WriteTicks(ticks)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "synthetic_data.csv"), path)

	loaded, err := ReadTicks(path)
	require.NoError(t, err)
	assert.Equal(t, ticks, loaded)
}

func TestWriteExecutions_Layout(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	rows := []backtest.ExecutionRow{
		{
			Tick:             market.Tick{Index: 0, Timestamp: ts, Price: 100, Volume: 5},
			OrderQuantity:    decimal.Zero,
			ExecutedQuantity: decimal.Zero,
			CumulativeCost:   decimal.Zero,
		},
		{
			Tick:             market.Tick{Index: 1, Timestamp: ts.Add(time.Minute), Price: 101.5, Volume: 3},
			HasOrder:         true,
			OrderQuantity:    decimal.NewFromInt(10),
			ExecutedQuantity: decimal.NewFromInt(3),
			ExpectedPrice:    101.5,
			ExecutedPrice:    101.6015,
			CumulativeCost:   decimal.RequireFromString("304.8045"),
		},
	}

	path, err := s.WriteExecutions(rows)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,price,volume,order_quantity,executed_quantity,expected_price,executed_price,cumulative_cost", lines[0])
	assert.Equal(t, "2025-01-01 09:30:00,100,5,0,0,,,0", lines[1])
	assert.Equal(t, "2025-01-01 09:31:00,101.5,3,10,3,101.5,101.6015,304.8045", lines[2])
}

func TestReadTicks_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := ReadTicks(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = ReadTicks(write("header.csv", "ts,price,volume\n2025-01-01 09:30:00,1,1\n"))
	assert.ErrorContains(t, err, "表头不匹配")

	_, err = ReadTicks(write("empty.csv", "timestamp,price,volume\n"))
	assert.ErrorContains(t, err, "为空")

	_, err = ReadTicks(write("order.csv", "timestamp,price,volume\n2025-01-01 09:31:00,1,1\n2025-01-01 09:30:00,1,1\n"))
	assert.ErrorContains(t, err, "未递增")

	_, err = ReadTicks(write("neg.csv", "timestamp,price,volume\n2025-01-01 09:30:00,1,-4\n"))
	assert.Error(t, err)

	for _, price := range []string{"NaN", "Inf", "-Inf"} {
		_, err = ReadTicks(write("price-"+price+".csv", "timestamp,price,volume\n2025-01-01 09:30:00,"+price+",10\n"))
		assert.ErrorContains(t, err, "有限值", price)
	}

	_, err = ReadTicks(write("nan-volume.csv", "timestamp,price,volume\n2025-01-01 09:30:00,1,NaN\n"))
	assert.Error(t, err)

	ticks, err := ReadTicks(write("float.csv", "timestamp,price,volume\n2025-01-01 09:30:00,1.5,12.0\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), ticks[0].Volume)
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New(config.OutputConfig{})
	assert.Error(t, err)
}
