package visual

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-echarts/go-echarts/v2/components"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"twap-backtest/internal/backtest"
	"twap-backtest/internal/indicator"
	"twap-backtest/internal/market"
)

// 三张图的输出文件名（不含扩展名）。
const (
	PriceChart    = "price_over_time"
	VolumeChart   = "volume_over_time"
	ExecutedChart = "executed_quantity"
)

const maxParallelRender = 3

// Input 为绘图所需的全部数据。
type Input struct {
	Ticks      []market.Tick
	Rows       []backtest.ExecutionRow
	Indicators indicator.Result
	Metrics    backtest.Metrics
}

// Artifact 描述一个已写出的图表文件。
type Artifact struct {
	Name   string
	Path   string
	Format string // png 或 html
}

// Renderer 生成并保存价格、成交量与成交数量三张图。
type Renderer struct {
	dir        string
	rasterizer Rasterizer
	logger     *zap.Logger
}

func NewRenderer(dir string, rasterizer Rasterizer, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{dir: dir, rasterizer: rasterizer, logger: logger}
}

type page struct {
	name  string
	chart components.Charter
}

// Render 写出三张图。无头浏览器不可用时改为写出 HTML 页面并记录告警。
func (r *Renderer) Render(ctx context.Context, in Input) ([]Artifact, error) {
	if len(in.Ticks) == 0 {
		return nil, errors.New("visual: 行情为空，无法绘图")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("visual: 创建目录 %q 失败: %w", r.dir, err)
	}

	pages := []page{
		{name: PriceChart, chart: buildPriceChart(in.Ticks, in.Indicators)},
		{name: VolumeChart, chart: buildVolumeChart(in.Ticks)},
		{name: ExecutedChart, chart: buildExecutedChart(in.Rows, in.Metrics)},
	}

	artifacts := make([]Artifact, len(pages))
	var fallbackOnce sync.Once

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRender)
	for i, p := range pages {
		g.Go(func() error {
			html, err := renderPage(p.chart)
			if err != nil {
				return err
			}

			if r.rasterizer != nil {
				png, err := r.rasterizer.Rasterize(gctx, html, chartWidthPx, chartHeightPx)
				switch {
				case err == nil:
					artifact, err := r.write(p.name, "png", png)
					artifacts[i] = artifact
					return err
				case errors.Is(err, ErrHeadlessUnavailable):
					fallbackOnce.Do(func() {
						r.logger.Warn("无头浏览器不可用，图表改为输出 HTML", zap.Error(err))
					})
				default:
					return fmt.Errorf("visual: 渲染 %s 失败: %w", p.name, err)
				}
			}

			artifact, err := r.write(p.name, "html", html)
			artifacts[i] = artifact
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, a := range artifacts {
		r.logger.Debug("图表已保存", zap.String("chart", a.Name), zap.String("path", a.Path))
	}
	return artifacts, nil
}

func (r *Renderer) write(name, format string, data []byte) (Artifact, error) {
	path := filepath.Join(r.dir, name+"."+format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("visual: 写入 %q 失败: %w", path, err)
	}
	return Artifact{Name: name, Path: path, Format: format}, nil
}
