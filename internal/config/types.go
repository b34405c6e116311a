package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// TimeLayout 为配置与CSV中时间戳的统一格式。
const TimeLayout = "2006-01-02 15:04:05"

// Config 聚合了一次回测运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Market   MarketConfig   `mapstructure:"market"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// MarketConfig 描述合成行情的生成参数。
type MarketConfig struct {
	StartTime       time.Time     `mapstructure:"start_time"`
	Periods         int           `mapstructure:"periods"`
	Interval        time.Duration `mapstructure:"interval"`
	InitialPrice    float64       `mapstructure:"initial_price"`
	PriceVolatility float64       `mapstructure:"price_volatility"`
	VolumeMean      float64       `mapstructure:"volume_mean"`
	Seed            int64         `mapstructure:"seed"`
	// DataPath 非空时从该CSV读取行情，不再生成。
	DataPath string `mapstructure:"data_path"`
}

// StrategyConfig 描述 TWAP 母单及切片窗口。
type StrategyConfig struct {
	TotalQuantity float64 `mapstructure:"total_quantity"`
	StartIndex    int     `mapstructure:"start_index"`
	EndIndex      int     `mapstructure:"end_index"`
	Precision     int32   `mapstructure:"precision"`
}

// WindowLength 返回切片窗口包含的时间步数量（首尾均包含）。
func (s StrategyConfig) WindowLength() int {
	return s.EndIndex - s.StartIndex + 1
}

// BacktestConfig 控制撮合模拟与绩效基准。
type BacktestConfig struct {
	Side           string  `mapstructure:"side"`
	SlippageFactor float64 `mapstructure:"slippage_factor"`
	Benchmark      string  `mapstructure:"benchmark"`
}

// OutputConfig 控制产物输出。
type OutputConfig struct {
	Dir             string        `mapstructure:"dir"`
	TicksFile       string        `mapstructure:"ticks_file"`
	ExecutionsFile  string        `mapstructure:"executions_file"`
	Plots           bool          `mapstructure:"plots"`
	IndicatorPeriod int           `mapstructure:"indicator_period"`
	RenderTimeout   time.Duration `mapstructure:"render_timeout"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验，汇总全部错误后一次返回。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}

	if c.Market.DataPath == "" {
		if c.Market.StartTime.IsZero() {
			err = multierr.Append(err, errors.New("market.start_time 不能为空"))
		}
		if c.Market.Periods <= 0 {
			err = multierr.Append(err, errors.New("market.periods 必须大于0"))
		}
		if c.Market.Interval <= 0 {
			err = multierr.Append(err, errors.New("market.interval 必须大于0"))
		}
		if !finite(c.Market.InitialPrice) || c.Market.InitialPrice <= 0 {
			err = multierr.Append(err, errors.New("market.initial_price 必须为大于0的有限值"))
		}
		if !finite(c.Market.PriceVolatility) || c.Market.PriceVolatility < 0 {
			err = multierr.Append(err, errors.New("market.price_volatility 必须为非负有限值"))
		}
		if !finite(c.Market.VolumeMean) || c.Market.VolumeMean <= 0 {
			err = multierr.Append(err, errors.New("market.volume_mean 必须为大于0的有限值"))
		}
		if c.Strategy.EndIndex >= c.Market.Periods && c.Market.Periods > 0 {
			err = multierr.Append(err, fmt.Errorf("strategy.end_index 必须小于 market.periods(%d)", c.Market.Periods))
		}
	}

	if !finite(c.Strategy.TotalQuantity) || c.Strategy.TotalQuantity <= 0 {
		err = multierr.Append(err, errors.New("strategy.total_quantity 必须为大于0的有限值"))
	}
	if c.Strategy.StartIndex < 0 {
		err = multierr.Append(err, errors.New("strategy.start_index 不能为负"))
	}
	if c.Strategy.WindowLength() <= 0 {
		err = multierr.Append(err, errors.New("strategy 窗口长度必须大于0 (end_index >= start_index)"))
	}
	if c.Strategy.Precision < 0 || c.Strategy.Precision > 16 {
		err = multierr.Append(err, errors.New("strategy.precision 应位于[0,16]"))
	}

	switch strings.ToLower(c.Backtest.Side) {
	case "buy", "sell":
	default:
		err = multierr.Append(err, fmt.Errorf("backtest.side 仅支持 buy/sell，当前为 %q", c.Backtest.Side))
	}
	if !finite(c.Backtest.SlippageFactor) || c.Backtest.SlippageFactor < 0 || c.Backtest.SlippageFactor > 0.2 {
		err = multierr.Append(err, errors.New("backtest.slippage_factor 应位于[0,0.2]"))
	}
	switch strings.ToLower(c.Backtest.Benchmark) {
	case "vwap", "avg_price":
	default:
		err = multierr.Append(err, fmt.Errorf("backtest.benchmark 仅支持 vwap/avg_price，当前为 %q", c.Backtest.Benchmark))
	}

	if c.Output.Dir == "" {
		err = multierr.Append(err, errors.New("output.dir 不能为空"))
	}
	if c.Output.TicksFile == "" || c.Output.ExecutionsFile == "" {
		err = multierr.Append(err, errors.New("output.ticks_file 与 output.executions_file 不能为空"))
	}
	if c.Output.IndicatorPeriod <= 1 {
		err = multierr.Append(err, errors.New("output.indicator_period 必须大于1"))
	}
	if c.Output.Plots && c.Output.RenderTimeout <= 0 {
		err = multierr.Append(err, errors.New("output.render_timeout 必须大于0"))
	}

	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}

// finite 判断浮点数既非 NaN 也非 ±Inf。
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
