package app

import (
	"fmt"
	"io"

	"twap-backtest/internal/backtest"
)

// WriteSummary 以人类可读格式输出绩效指标。
func WriteSummary(w io.Writer, report Report) error {
	m := report.Result.Metrics
	_, err := fmt.Fprintf(w, "=== Performance Metrics ===\n%s\nFill Rate: %.2f%%\n",
		formatPriceMetrics(m), m.FillRate*100)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Executed: %s / %s (%d of %d orders filled, %d partial)\nTotal Cost: %s\n",
		m.TotalExecuted, m.TotalScheduled, m.FilledOrders, m.Orders, m.PartialOrders, m.TotalCost.StringFixed(4))
	if err != nil {
		return err
	}
	for _, chart := range report.Charts {
		if _, err := fmt.Fprintf(w, "Chart: %s\n", chart.Path); err != nil {
			return err
		}
	}
	return nil
}

func formatPriceMetrics(m backtest.Metrics) string {
	if !m.HasFills {
		return "Execution Cost: n/a\nSlippage: n/a"
	}
	return fmt.Sprintf("Execution Cost: %.6f (vs %s %.4f)\nSlippage: %.6f (%.2f bps)",
		m.ExecutionCost, m.Benchmark, m.BenchmarkPrice, m.Slippage, m.SlippageBps)
}
