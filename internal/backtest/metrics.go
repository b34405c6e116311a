package backtest

import (
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"twap-backtest/internal/market"
)

// Metrics 记录执行质量指标。HasFills 为 false 时，价格相关指标无意义。
type Metrics struct {
	TotalScheduled decimal.Decimal
	TotalExecuted  decimal.Decimal
	TotalCost      decimal.Decimal
	Orders         int
	FilledOrders   int
	PartialOrders  int
	FillRate       float64

	Benchmark             Benchmark
	BenchmarkPrice        float64
	AverageExecutionPrice float64
	AverageExpectedPrice  float64
	ExecutionCost         float64
	Slippage              float64
	SlippageBps           float64
	HasFills              bool
}

func calculateMetrics(ticks []market.Tick, fills []Fill, cfg Config) Metrics {
	m := Metrics{
		TotalScheduled: decimal.Zero,
		TotalExecuted:  decimal.Zero,
		TotalCost:      decimal.Zero,
		Orders:         len(fills),
		Benchmark:      cfg.Benchmark,
		BenchmarkPrice: benchmarkPrice(ticks, cfg.Benchmark),
	}

	var (
		executedPrices []float64
		expectedPrices []float64
		weights        []float64
	)
	for _, f := range fills {
		m.TotalScheduled = m.TotalScheduled.Add(f.ScheduledQuantity)
		m.TotalExecuted = m.TotalExecuted.Add(f.ExecutedQuantity)
		if !f.ExecutedQuantity.IsPositive() {
			continue
		}
		m.FilledOrders++
		if f.ExecutedQuantity.LessThan(f.ScheduledQuantity) {
			m.PartialOrders++
		}
		executedPrices = append(executedPrices, f.ExecutedPrice)
		expectedPrices = append(expectedPrices, f.ExpectedPrice)
		weights = append(weights, f.ExecutedQuantity.InexactFloat64())
	}
	if len(fills) > 0 {
		m.TotalCost = fills[len(fills)-1].CumulativeCost
	}

	if m.TotalScheduled.IsPositive() {
		rate := m.TotalExecuted.Div(m.TotalScheduled).InexactFloat64()
		m.FillRate = math.Max(0, math.Min(1, rate))
	}

	if len(weights) == 0 {
		return m
	}

	sign := cfg.Side.sign()
	m.HasFills = true
	m.AverageExecutionPrice = stat.Mean(executedPrices, weights)
	m.AverageExpectedPrice = stat.Mean(expectedPrices, weights)
	m.ExecutionCost = sign * (m.AverageExecutionPrice - m.BenchmarkPrice)
	m.Slippage = sign * (m.AverageExecutionPrice - m.AverageExpectedPrice)
	if m.AverageExpectedPrice > 0 {
		m.SlippageBps = m.Slippage / m.AverageExpectedPrice * 1e4
	}
	return m
}

// benchmarkPrice 计算整段行情的参考价。VWAP 在总成交量为0时退化为均价。
func benchmarkPrice(ticks []market.Tick, benchmark Benchmark) float64 {
	if len(ticks) == 0 {
		return 0
	}
	series := market.NewSeries(ticks)
	if benchmark == BenchmarkVWAP && floats.Sum(series.Volumes) > 0 {
		return stat.Mean(series.Prices, series.Volumes)
	}
	return stat.Mean(series.Prices, nil)
}
