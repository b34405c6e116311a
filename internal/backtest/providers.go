package backtest

import (
	"context"
	"errors"

	"twap-backtest/internal/market"
	"twap-backtest/internal/strategy"
)

// SliceTickProvider 以固定序列提供行情。
type SliceTickProvider struct {
	ticks []market.Tick
	index int
}

func NewSliceTickProvider(ticks []market.Tick) *SliceTickProvider {
	return &SliceTickProvider{ticks: ticks}
}

func (p *SliceTickProvider) Next(ctx context.Context) (market.Tick, bool, error) {
	if p.index >= len(p.ticks) {
		return market.Tick{}, false, nil
	}
	tick := p.ticks[p.index]
	p.index++
	return tick, true, nil
}

// SchedulerFunc 允许使用函数作为切片策略。
type SchedulerFunc func(ticks []market.Tick) (strategy.Schedule, error)

func (f SchedulerFunc) Schedule(ticks []market.Tick) (strategy.Schedule, error) {
	if f == nil {
		return strategy.Schedule{}, errors.New("backtest: 切片函数未实现")
	}
	return f(ticks)
}
