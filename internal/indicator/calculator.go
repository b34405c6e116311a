package indicator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"twap-backtest/internal/market"
)

// Result 为一次行情指标计算的汇总，序列与行情等长，预热期为 NaN。
type Result struct {
	Period     int
	SMA        []float64
	StdDev     []float64
	VWAP       []float64
	Volatility float64 // 逐步对数收益率的标准差
}

// Compute 计算价格均线、滚动标准差、累计 VWAP 及实现波动率。
func Compute(ticks []market.Tick, period int) (Result, error) {
	if len(ticks) == 0 {
		return Result{}, fmt.Errorf("计算指标失败: 输入行情为空")
	}
	if period < 2 {
		return Result{}, fmt.Errorf("计算指标失败: 周期必须大于1，当前为 %d", period)
	}

	series := market.NewSeries(ticks)
	result := Result{
		Period: period,
		VWAP:   cumulativeVWAP(series.Prices, series.Volumes),
	}

	if series.Len() >= period {
		result.SMA = maskWarmup(talib.Sma(series.Prices, period), period-1)
		result.StdDev = maskWarmup(talib.StdDev(series.Prices, period, 1), period-1)
	} else {
		result.SMA = maskWarmup(make([]float64, series.Len()), series.Len())
		result.StdDev = maskWarmup(make([]float64, series.Len()), series.Len())
	}

	result.Volatility = realizedVolatility(series.Prices)
	return result, nil
}

func cumulativeVWAP(prices, volumes []float64) []float64 {
	out := make([]float64, len(prices))
	var notional, volume float64
	for i := range prices {
		notional += prices[i] * volumes[i]
		volume += volumes[i]
		if volume == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = SafeDivide(notional, volume)
	}
	return out
}

func realizedVolatility(prices []float64) float64 {
	if len(prices) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil)
}
