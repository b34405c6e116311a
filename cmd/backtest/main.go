package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"twap-backtest/internal/app"
	"twap-backtest/internal/config"
	"twap-backtest/internal/log"
	"twap-backtest/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "回测失败: %v\n", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "twap-backtest",
		Usage: "在合成行情上回测 TWAP 母单切片并输出 CSV 与图表",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径，默认使用 configs/config.yaml（不存在时使用内置默认值）",
			},
			&cli.Float64Flag{Name: "quantity", Usage: "母单总量"},
			&cli.IntFlag{Name: "start-index", Usage: "切片窗口起始时间步"},
			&cli.IntFlag{Name: "end-index", Usage: "切片窗口结束时间步（包含）"},
			&cli.Int64Flag{Name: "seed", Usage: "随机种子"},
			&cli.IntFlag{Name: "periods", Usage: "生成的时间步数量"},
			&cli.StringFlag{Name: "data", Usage: "从 CSV 读取行情而不是生成"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "产物输出目录"},
			&cli.StringFlag{Name: "side", Usage: "母单方向 buy/sell"},
			&cli.StringFlag{Name: "benchmark", Usage: "执行成本基准 vwap/avg_price"},
			&cli.BoolFlag{Name: "no-plots", Usage: "不生成图表"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), overridesFromFlags(c))
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	artifacts, err := store.New(cfg.Output)
	if err != nil {
		logger.Error("初始化输出目录失败", zap.Error(err))
		return err
	}

	report, err := app.New(cfg, logger, artifacts).Run(c.Context)
	if err != nil {
		logger.Error("回测运行异常", zap.Error(err))
		return err
	}

	return app.WriteSummary(c.App.Writer, report)
}

// overridesFromFlags 只收集显式设置的参数，未设置的沿用配置文件与环境变量。
func overridesFromFlags(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	if c.IsSet("quantity") {
		overrides["strategy.total_quantity"] = c.Float64("quantity")
	}
	if c.IsSet("start-index") {
		overrides["strategy.start_index"] = c.Int("start-index")
	}
	if c.IsSet("end-index") {
		overrides["strategy.end_index"] = c.Int("end-index")
	}
	if c.IsSet("seed") {
		overrides["market.seed"] = c.Int64("seed")
	}
	if c.IsSet("periods") {
		overrides["market.periods"] = c.Int("periods")
	}
	if c.IsSet("data") {
		overrides["market.data_path"] = c.String("data")
	}
	if c.IsSet("output") {
		overrides["output.dir"] = c.String("output")
	}
	if c.IsSet("side") {
		overrides["backtest.side"] = c.String("side")
	}
	if c.IsSet("benchmark") {
		overrides["backtest.benchmark"] = c.String("benchmark")
	}
	if c.Bool("no-plots") {
		overrides["output.plots"] = false
	}
	return overrides
}
