package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"twap-backtest/internal/backtest"
	"twap-backtest/internal/config"
	"twap-backtest/internal/indicator"
	"twap-backtest/internal/market"
	"twap-backtest/internal/store"
	"twap-backtest/internal/strategy"
	"twap-backtest/internal/visual"
)

// Report 汇总一次运行的结果与产物路径。
type Report struct {
	RunID          string
	Result         backtest.Result
	Indicators     indicator.Result
	TicksPath      string
	ExecutionsPath string
	Charts         []visual.Artifact
}

// Option 调整 App 的可选依赖。
type Option func(*App)

// WithRasterizer 替换默认的无头浏览器截图实现。
func WithRasterizer(r visual.Rasterizer) Option {
	return func(a *App) {
		a.rasterizer = r
	}
}

// App 聚合核心依赖并依次驱动 生成行情 → 切片 → 撮合 → 绘图。
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      *store.Store
	rasterizer visual.Rasterizer
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rasterizer == nil && cfg.Output.Plots {
		a.rasterizer = visual.NewChromeRasterizer(cfg.Output.RenderTimeout)
	}
	return a
}

// Run 执行一次完整回测，各阶段顺序执行，任一阶段失败即返回。
func (a *App) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger := a.logger.With(zap.String("run_id", report.RunID))

	logger.Info("回测开始",
		zap.String("environment", a.cfg.App.Environment),
		zap.Float64("total_quantity", a.cfg.Strategy.TotalQuantity),
		zap.Int("start_index", a.cfg.Strategy.StartIndex),
		zap.Int("end_index", a.cfg.Strategy.EndIndex),
		zap.Int64("seed", a.cfg.Market.Seed),
	)

	ticks, err := a.loadTicks()
	if err != nil {
		return Report{}, err
	}
	report.TicksPath, err = a.store.WriteTicks(ticks)
	if err != nil {
		return Report{}, fmt.Errorf("保存行情失败: %w", err)
	}
	logger.Info("行情已保存", zap.Int("ticks", len(ticks)), zap.String("path", report.TicksPath))

	twap, err := strategy.NewTWAP(strategy.TWAPConfig{
		TotalQuantity: decimal.NewFromFloat(a.cfg.Strategy.TotalQuantity),
		StartIndex:    a.cfg.Strategy.StartIndex,
		EndIndex:      a.cfg.Strategy.EndIndex,
		Precision:     a.cfg.Strategy.Precision,
	})
	if err != nil {
		return Report{}, err
	}

	engine, err := backtest.NewEngine(backtest.Config{
		Side:           backtest.Side(a.cfg.Backtest.Side),
		SlippageFactor: a.cfg.Backtest.SlippageFactor,
		Benchmark:      backtest.Benchmark(a.cfg.Backtest.Benchmark),
	}, backtest.NewSliceTickProvider(ticks), twap, logger)
	if err != nil {
		return Report{}, err
	}

	report.Result, err = engine.Run(ctx)
	if err != nil {
		return Report{}, err
	}

	rows := report.Result.Rows()
	report.ExecutionsPath, err = a.store.WriteExecutions(rows)
	if err != nil {
		return Report{}, fmt.Errorf("保存执行明细失败: %w", err)
	}
	logger.Info("执行明细已保存", zap.String("path", report.ExecutionsPath))

	report.Indicators, err = indicator.Compute(ticks, a.cfg.Output.IndicatorPeriod)
	if err != nil {
		return Report{}, err
	}

	if a.cfg.Output.Plots {
		renderer := visual.NewRenderer(a.store.Dir(), a.rasterizer, logger)
		report.Charts, err = renderer.Render(ctx, visual.Input{
			Ticks:      ticks,
			Rows:       rows,
			Indicators: report.Indicators,
			Metrics:    report.Result.Metrics,
		})
		if err != nil {
			return Report{}, fmt.Errorf("绘图失败: %w", err)
		}
		logger.Info("图表已保存", zap.Int("charts", len(report.Charts)))
	}

	logMetrics(logger, report)
	return report, nil
}

func (a *App) loadTicks() ([]market.Tick, error) {
	if path := a.cfg.Market.DataPath; path != "" {
		ticks, err := store.ReadTicks(path)
		if err != nil {
			return nil, fmt.Errorf("加载行情失败: %w", err)
		}
		return ticks, nil
	}

	m := a.cfg.Market
	ticks, err := market.Generate(market.GeneratorConfig{
		StartTime:       m.StartTime,
		Periods:         m.Periods,
		Interval:        m.Interval,
		InitialPrice:    m.InitialPrice,
		PriceVolatility: m.PriceVolatility,
		VolumeMean:      m.VolumeMean,
		Seed:            m.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("生成行情失败: %w", err)
	}
	return ticks, nil
}

func logMetrics(logger *zap.Logger, report Report) {
	m := report.Result.Metrics
	fields := []zap.Field{
		zap.String("total_scheduled", m.TotalScheduled.String()),
		zap.String("total_executed", m.TotalExecuted.String()),
		zap.String("total_cost", m.TotalCost.StringFixed(4)),
		zap.Float64("fill_rate", m.FillRate),
		zap.String("benchmark", string(m.Benchmark)),
		zap.Float64("benchmark_price", m.BenchmarkPrice),
		zap.Float64("realized_volatility", report.Indicators.Volatility),
		zap.Float64("session_vwap", indicator.Last(report.Indicators.VWAP)),
	}
	if m.HasFills {
		fields = append(fields,
			zap.Float64("execution_cost", m.ExecutionCost),
			zap.Float64("slippage", m.Slippage),
			zap.Float64("slippage_bps", m.SlippageBps),
		)
	}
	logger.Info("绩效指标", fields...)
}
