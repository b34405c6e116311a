package visual

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twap-backtest/internal/backtest"
	"twap-backtest/internal/indicator"
	"twap-backtest/internal/market"
)

type fakeRasterizer struct {
	mu    sync.Mutex
	pages []string
	err   error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, html []byte, width, height int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.pages = append(f.pages, string(html))
	return []byte("\x89PNG fake"), nil
}

func sampleInput(t *testing.T) Input {
	t.Helper()
	start := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	ticks := make([]market.Tick, 12)
	rows := make([]backtest.ExecutionRow, len(ticks))
	for i := range ticks {
		ticks[i] = market.Tick{Index: i, Timestamp: start.Add(time.Duration(i) * time.Minute), Price: 100 + float64(i), Volume: int64(50 + i)}
		rows[i] = backtest.ExecutionRow{Tick: ticks[i], OrderQuantity: decimal.Zero, ExecutedQuantity: decimal.Zero, CumulativeCost: decimal.Zero}
		if i >= 2 && i <= 5 {
			rows[i].HasOrder = true
			rows[i].OrderQuantity = decimal.NewFromInt(25)
			rows[i].ExecutedQuantity = decimal.NewFromInt(25)
		}
	}
	ind, err := indicator.Compute(ticks, 3)
	require.NoError(t, err)
	return Input{Ticks: ticks, Rows: rows, Indicators: ind, Metrics: backtest.Metrics{FillRate: 1}}
}

func TestRender_WritesPNGs(t *testing.T) {
	dir := t.TempDir()
	raster := &fakeRasterizer{}
	artifacts, err := NewRenderer(dir, raster, nil).Render(context.Background(), sampleInput(t))
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	names := []string{PriceChart, VolumeChart, ExecutedChart}
	for i, a := range artifacts {
		assert.Equal(t, names[i], a.Name)
		assert.Equal(t, "png", a.Format)
		assert.Equal(t, filepath.Join(dir, names[i]+".png"), a.Path)
		data, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "\x89PNG"))
	}

	joined := strings.Join(raster.pages, "\n")
	assert.Contains(t, joined, "Price Over Time")
	assert.Contains(t, joined, "Volume Over Time")
	assert.Contains(t, joined, "Executed Quantity Over Time")
	assert.Contains(t, joined, "Fill rate 100.00%")
}

func TestRender_FallsBackToHTML(t *testing.T) {
	dir := t.TempDir()
	raster := &fakeRasterizer{err: ErrHeadlessUnavailable}
	artifacts, err := NewRenderer(dir, raster, nil).Render(context.Background(), sampleInput(t))
	require.NoError(t, err)

	for _, a := range artifacts {
		assert.Equal(t, "html", a.Format)
		data, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<html")
	}
}

func TestRender_PropagatesRasterizeError(t *testing.T) {
	raster := &fakeRasterizer{err: errors.New("boom")}
	_, err := NewRenderer(t.TempDir(), raster, nil).Render(context.Background(), sampleInput(t))
	assert.ErrorContains(t, err, "boom")
}

func TestRender_EmptyInput(t *testing.T) {
	_, err := NewRenderer(t.TempDir(), nil, nil).Render(context.Background(), Input{})
	assert.Error(t, err)
}

func TestToLineData_MasksNaN(t *testing.T) {
	ind := sampleInput(t).Indicators
	data := toLineData(ind.SMA)
	assert.Nil(t, data[0].Value)
	assert.Nil(t, data[1].Value)
	assert.InDelta(t, 101.0, data[2].Value, 1e-9)
}
