package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"twap-backtest/internal/market"
)

// DefaultPrecision 为子单数量保留的小数位数。
const DefaultPrecision int32 = 8

var (
	ErrInvalidQuantity  = errors.New("strategy: 母单数量必须大于0")
	ErrInvalidWindow    = errors.New("strategy: 切片窗口长度必须大于0")
	ErrWindowOutOfRange = errors.New("strategy: 切片窗口超出行情范围")
)

// TWAPConfig 描述母单及执行窗口，EndIndex 包含在窗口内。
type TWAPConfig struct {
	TotalQuantity decimal.Decimal
	StartIndex    int
	EndIndex      int
	// Precision 为子单数量保留的小数位数，0 表示整数手，负数使用 DefaultPrecision。
	Precision     int32
}

// TWAP 将母单在窗口内按时间等分。
type TWAP struct {
	cfg TWAPConfig
}

// NewTWAP 校验参数并创建 TWAP 策略。
func NewTWAP(cfg TWAPConfig) (*TWAP, error) {
	if !cfg.TotalQuantity.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, cfg.TotalQuantity)
	}
	if cfg.StartIndex < 0 {
		return nil, fmt.Errorf("%w: start_index=%d", ErrInvalidWindow, cfg.StartIndex)
	}
	if cfg.EndIndex-cfg.StartIndex+1 <= 0 {
		return nil, fmt.Errorf("%w: start_index=%d end_index=%d", ErrInvalidWindow, cfg.StartIndex, cfg.EndIndex)
	}
	if cfg.Precision < 0 {
		cfg.Precision = DefaultPrecision
	}
	return &TWAP{cfg: cfg}, nil
}

// Name 返回策略名称。
func (t *TWAP) Name() string {
	return "TWAP"
}

// Slices 返回窗口内的时间步数量。
func (t *TWAP) Slices() int {
	return t.cfg.EndIndex - t.cfg.StartIndex + 1
}

// Schedule 为给定行情生成子单计划。每个时间步分得相同数量，
// 截断精度后的余量并入最后一笔，保证总量与母单严格相等。
func (t *TWAP) Schedule(ticks []market.Tick) (Schedule, error) {
	if t.cfg.EndIndex >= len(ticks) {
		return Schedule{}, fmt.Errorf("%w: end_index=%d ticks=%d", ErrWindowOutOfRange, t.cfg.EndIndex, len(ticks))
	}

	slices := t.Slices()
	perSlice := t.cfg.TotalQuantity.Div(decimal.NewFromInt(int64(slices))).Truncate(t.cfg.Precision)
	remainder := t.cfg.TotalQuantity.Sub(perSlice.Mul(decimal.NewFromInt(int64(slices))))

	orders := make([]ChildOrder, 0, slices)
	for idx := t.cfg.StartIndex; idx <= t.cfg.EndIndex; idx++ {
		orders = append(orders, ChildOrder{
			Index:     idx,
			Timestamp: ticks[idx].Timestamp,
			Quantity:  perSlice,
		})
	}
	last := len(orders) - 1
	orders[last].Quantity = orders[last].Quantity.Add(remainder)

	return Schedule{Orders: orders}, nil
}
