package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"twap-backtest/internal/market"
	"twap-backtest/internal/strategy"
)

// Fill 记录单个子单的撮合结果。
type Fill struct {
	Index             int
	Timestamp         time.Time
	ScheduledQuantity decimal.Decimal
	ExecutedQuantity  decimal.Decimal
	ExpectedPrice     float64
	ExecutedPrice     float64
	CumulativeCost    decimal.Decimal
}

// Unfilled 返回该时间步未成交的数量，不顺延到后续时间步。
func (f Fill) Unfilled() decimal.Decimal {
	return f.ScheduledQuantity.Sub(f.ExecutedQuantity)
}

// Simulator 将子单与当期可用成交量逐步撮合。
type Simulator struct {
	side     Side
	slippage float64

	cumulativeCost decimal.Decimal
	fills          []Fill
}

func NewSimulator(side Side, slippage float64) *Simulator {
	if side == "" {
		side = SideBuy
	}
	return &Simulator{
		side:           side,
		slippage:       slippage,
		cumulativeCost: decimal.Zero,
	}
}

// Execute 以 min(计划量, 可用量) 成交子单；成交价为行情价叠加滑点，
// 买入向上、卖出向下偏移。
func (s *Simulator) Execute(tick market.Tick, order strategy.ChildOrder) Fill {
	available := decimal.NewFromInt(tick.Volume)
	if available.IsNegative() {
		available = decimal.Zero
	}
	scheduled := order.Quantity
	if scheduled.IsNegative() {
		scheduled = decimal.Zero
	}
	executed := decimal.Min(scheduled, available)

	executedPrice := tick.Price * (1 + s.side.sign()*s.slippage)
	s.cumulativeCost = s.cumulativeCost.Add(decimal.NewFromFloat(executedPrice).Mul(executed))

	fill := Fill{
		Index:             tick.Index,
		Timestamp:         tick.Timestamp,
		ScheduledQuantity: scheduled,
		ExecutedQuantity:  executed,
		ExpectedPrice:     tick.Price,
		ExecutedPrice:     executedPrice,
		CumulativeCost:    s.cumulativeCost,
	}
	s.fills = append(s.fills, fill)
	return fill
}

func (s *Simulator) CumulativeCost() decimal.Decimal {
	return s.cumulativeCost
}

func (s *Simulator) Fills() []Fill {
	return append([]Fill(nil), s.fills...)
}
