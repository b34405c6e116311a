package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChildOrder 为母单切分后在某个时间步下达的子单。
type ChildOrder struct {
	Index     int
	Timestamp time.Time
	Quantity  decimal.Decimal
}

// Schedule 为按时间步升序排列的子单计划，索引连续。
type Schedule struct {
	Orders []ChildOrder
}

// Len 返回子单数量。
func (s Schedule) Len() int {
	return len(s.Orders)
}

// Total 返回计划下单总量。
func (s Schedule) Total() decimal.Decimal {
	total := decimal.Zero
	for _, order := range s.Orders {
		total = total.Add(order.Quantity)
	}
	return total
}

// At 返回指定时间步的子单，不在窗口内时返回 false。
func (s Schedule) At(index int) (ChildOrder, bool) {
	if len(s.Orders) == 0 {
		return ChildOrder{}, false
	}
	offset := index - s.Orders[0].Index
	if offset < 0 || offset >= len(s.Orders) {
		return ChildOrder{}, false
	}
	return s.Orders[offset], true
}

// Quantities 返回各子单数量，便于输出与断言。
func (s Schedule) Quantities() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.Orders))
	for i, order := range s.Orders {
		out[i] = order.Quantity
	}
	return out
}
