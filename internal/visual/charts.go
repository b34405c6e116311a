package visual

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"twap-backtest/internal/backtest"
	"twap-backtest/internal/indicator"
	"twap-backtest/internal/market"
)

const (
	colorPrice    = "#1f77b4"
	colorSMA      = "#9467bd"
	colorVWAP     = "#7f7f7f"
	colorVolume   = "#ff7f0e"
	colorExecuted = "#2ca02c"
	colorOrder    = "#d62728"

	chartWidthPx  = 1000
	chartHeightPx = 400
)

func initOpts() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWhite,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: "#ffffff",
	}
}

func commonOpts(title, subtitle, yName string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle, Left: "center"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Timestamp", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Scale: opts.Bool(true)}),
	}
}

func buildXAxis(ticks []market.Tick) []string {
	x := make([]string, len(ticks))
	for i, tick := range ticks {
		x[i] = tick.Timestamp.Format(time.TimeOnly)
	}
	return x
}

func buildPriceChart(ticks []market.Tick, ind indicator.Result) *charts.Line {
	line := charts.NewLine()
	subtitle := ""
	if ind.Period > 0 {
		subtitle = fmt.Sprintf("SMA(%d) | realized vol %.4f", ind.Period, ind.Volatility)
	}
	line.SetGlobalOptions(commonOpts("Price Over Time", subtitle, "Price")...)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	prices := make([]float64, len(ticks))
	for i, tick := range ticks {
		prices[i] = tick.Price
	}

	line.SetXAxis(buildXAxis(ticks))
	line.AddSeries("Price", toLineData(prices), charts.WithLineStyleOpts(opts.LineStyle{Color: colorPrice, Width: 2}))
	if len(ind.SMA) == len(ticks) {
		line.AddSeries(fmt.Sprintf("SMA %d", ind.Period), toLineData(ind.SMA), charts.WithLineStyleOpts(opts.LineStyle{Color: colorSMA, Width: 1}))
	}
	if len(ind.VWAP) == len(ticks) {
		line.AddSeries("VWAP", toLineData(ind.VWAP), charts.WithLineStyleOpts(opts.LineStyle{Color: colorVWAP, Width: 1, Type: "dashed"}))
	}
	return line
}

func buildVolumeChart(ticks []market.Tick) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(commonOpts("Volume Over Time", "", "Volume")...)

	data := make([]opts.BarData, len(ticks))
	for i, tick := range ticks {
		data[i] = opts.BarData{Value: tick.Volume}
	}
	bar.SetXAxis(buildXAxis(ticks))
	bar.AddSeries("Volume", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorVolume}))
	return bar
}

func buildExecutedChart(rows []backtest.ExecutionRow, metrics backtest.Metrics) *charts.Bar {
	bar := charts.NewBar()
	subtitle := fmt.Sprintf("Fill rate %.2f%%", metrics.FillRate*100)
	bar.SetGlobalOptions(commonOpts("Executed Quantity Over Time", subtitle, "Executed Quantity")...)

	ticks := make([]market.Tick, len(rows))
	executed := make([]opts.BarData, len(rows))
	scheduled := make([]opts.LineData, len(rows))
	for i, row := range rows {
		ticks[i] = row.Tick
		executed[i] = opts.BarData{Value: row.ExecutedQuantity.InexactFloat64()}
		if row.HasOrder {
			scheduled[i] = opts.LineData{Value: row.OrderQuantity.InexactFloat64()}
		} else {
			scheduled[i] = opts.LineData{Value: nil}
		}
	}
	xAxis := buildXAxis(ticks)

	bar.SetXAxis(xAxis)
	bar.AddSeries("Executed Qty", executed, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorExecuted}))

	line := charts.NewLine()
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Step: "middle"}))
	line.SetXAxis(xAxis)
	line.AddSeries("Scheduled Qty", scheduled, charts.WithLineStyleOpts(opts.LineStyle{Color: colorOrder, Width: 1, Type: "dashed"}))
	bar.Overlap(line)
	return bar
}

func toLineData(series []float64) []opts.LineData {
	data := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: round(v, 4)}
	}
	return data
}

func round(val float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

// renderPage 将单个图表渲染为完整 HTML 页面。
func renderPage(chart components.Charter) ([]byte, error) {
	page := components.NewPage()
	page.AddCharts(chart)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("visual: 渲染图表页面失败: %w", err)
	}
	return buf.Bytes(), nil
}
