package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"twap-backtest/internal/market"
	"twap-backtest/internal/strategy"
)

// Result 汇总回测结果。
type Result struct {
	Ticks    []market.Tick
	Schedule strategy.Schedule
	Fills    []Fill
	Metrics  Metrics
}

// ExecutionRow 为按时间步展开的执行明细，窗口外的时间步 HasOrder 为 false。
type ExecutionRow struct {
	Tick             market.Tick
	HasOrder         bool
	OrderQuantity    decimal.Decimal
	ExecutedQuantity decimal.Decimal
	ExpectedPrice    float64
	ExecutedPrice    float64
	CumulativeCost   decimal.Decimal
}

// Rows 将成交记录与完整行情对齐，累计成本在窗口外沿用前值。
func (r Result) Rows() []ExecutionRow {
	byIndex := make(map[int]Fill, len(r.Fills))
	for _, f := range r.Fills {
		byIndex[f.Index] = f
	}

	rows := make([]ExecutionRow, len(r.Ticks))
	running := decimal.Zero
	for i, tick := range r.Ticks {
		row := ExecutionRow{
			Tick:             tick,
			OrderQuantity:    decimal.Zero,
			ExecutedQuantity: decimal.Zero,
		}
		if f, ok := byIndex[tick.Index]; ok {
			row.HasOrder = true
			row.OrderQuantity = f.ScheduledQuantity
			row.ExecutedQuantity = f.ExecutedQuantity
			row.ExpectedPrice = f.ExpectedPrice
			row.ExecutedPrice = f.ExecutedPrice
			running = f.CumulativeCost
		}
		row.CumulativeCost = running
		rows[i] = row
	}
	return rows
}

// Engine 串联行情源、切片策略与撮合模拟。
type Engine struct {
	cfg       Config
	provider  TickProvider
	scheduler Scheduler
	logger    *zap.Logger
}

// NewEngine 构建回测引擎。
func NewEngine(cfg Config, provider TickProvider, scheduler Scheduler, logger *zap.Logger) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("backtest: provider 不能为空")
	}
	if scheduler == nil {
		return nil, errors.New("backtest: scheduler 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       normalized,
		provider:  provider,
		scheduler: scheduler,
		logger:    logger,
	}, nil
}

// Run 执行完整回测流程：读取行情、生成计划、逐步撮合并计算指标。
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var ticks []market.Tick
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		tick, ok, err := e.provider.Next(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("backtest: 读取行情失败: %w", err)
		}
		if !ok {
			break
		}
		if tick.Index != len(ticks) {
			return Result{}, fmt.Errorf("backtest: 时间步编号不连续，期望 %d 实际 %d", len(ticks), tick.Index)
		}
		ticks = append(ticks, tick)
	}
	if len(ticks) == 0 {
		return Result{}, errors.New("backtest: 行情为空")
	}

	schedule, err := e.scheduler.Schedule(ticks)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: 生成子单计划失败: %w", err)
	}

	simulator := NewSimulator(e.cfg.Side, e.cfg.SlippageFactor)
	for _, order := range schedule.Orders {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if order.Index < 0 || order.Index >= len(ticks) {
			return Result{}, fmt.Errorf("backtest: 子单时间步 %d 超出行情范围 [0,%d)", order.Index, len(ticks))
		}

		fill := simulator.Execute(ticks[order.Index], order)
		if fill.Unfilled().IsPositive() {
			e.logger.Debug("子单部分成交",
				zap.Int("index", fill.Index),
				zap.String("scheduled", fill.ScheduledQuantity.String()),
				zap.String("executed", fill.ExecutedQuantity.String()),
			)
		}
	}

	fills := simulator.Fills()
	metrics := calculateMetrics(ticks, fills, e.cfg)

	e.logger.Info("回测完成",
		zap.Int("ticks", len(ticks)),
		zap.Int("orders", schedule.Len()),
		zap.Int("filled_orders", metrics.FilledOrders),
		zap.Float64("fill_rate", metrics.FillRate),
	)

	return Result{
		Ticks:    ticks,
		Schedule: schedule,
		Fills:    fills,
		Metrics:  metrics,
	}, nil
}
