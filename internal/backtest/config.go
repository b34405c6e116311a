package backtest

import (
	"fmt"
	"strings"
)

// Side 表示母单方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Benchmark 表示执行成本的参考价格。
type Benchmark string

const (
	BenchmarkVWAP     Benchmark = "vwap"
	BenchmarkAvgPrice Benchmark = "avg_price"
)

// Config 定义回测参数。
type Config struct {
	Side           Side      // 母单方向，默认买入
	SlippageFactor float64   // 成交价相对行情价的滑点比例
	Benchmark      Benchmark // 执行成本基准
}

func (c *Config) normalize() (Config, error) {
	cfg := *c
	cfg.Side = Side(strings.ToLower(string(cfg.Side)))
	if cfg.Side == "" {
		cfg.Side = SideBuy
	}
	if cfg.Side != SideBuy && cfg.Side != SideSell {
		return Config{}, fmt.Errorf("backtest: 不支持的方向 %q", c.Side)
	}

	cfg.Benchmark = Benchmark(strings.ToLower(string(cfg.Benchmark)))
	if cfg.Benchmark == "" {
		cfg.Benchmark = BenchmarkVWAP
	}
	if cfg.Benchmark != BenchmarkVWAP && cfg.Benchmark != BenchmarkAvgPrice {
		return Config{}, fmt.Errorf("backtest: 不支持的基准 %q", c.Benchmark)
	}

	if cfg.SlippageFactor < 0 {
		return Config{}, fmt.Errorf("backtest: 滑点比例不能为负: %v", cfg.SlippageFactor)
	}
	return cfg, nil
}

// sign 买入为 +1，卖出为 -1，用于统一成本方向。
func (s Side) sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}
