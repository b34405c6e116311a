package backtest

import (
	"context"

	"twap-backtest/internal/market"
	"twap-backtest/internal/strategy"
)

// TickProvider 按时间顺序提供行情。
type TickProvider interface {
	Next(ctx context.Context) (market.Tick, bool, error)
}

// Scheduler 根据完整行情生成子单计划，便于在回测中注入不同切片策略。
type Scheduler interface {
	Schedule(ticks []market.Tick) (strategy.Schedule, error)
}

var _ Scheduler = (*strategy.TWAP)(nil)
