package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "twap"
)

// Load 读取配置文件并结合环境变量与命令行覆盖项返回 Config。
// path 为空且默认配置文件不存在时，仅使用内置默认值。
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		switch {
		case missing && explicit:
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		case missing:
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("market.start_time", "2025-01-01 09:30:00")
	v.SetDefault("market.periods", 60)
	v.SetDefault("market.interval", "1m")
	v.SetDefault("market.initial_price", 100.0)
	v.SetDefault("market.price_volatility", 1.0)
	v.SetDefault("market.volume_mean", 500.0)
	v.SetDefault("market.seed", 123)
	v.SetDefault("market.data_path", "")

	v.SetDefault("strategy.total_quantity", 3000.0)
	v.SetDefault("strategy.start_index", 10)
	v.SetDefault("strategy.end_index", 50)
	v.SetDefault("strategy.precision", 8)

	v.SetDefault("backtest.side", "buy")
	v.SetDefault("backtest.slippage_factor", 0.001)
	v.SetDefault("backtest.benchmark", "vwap")

	v.SetDefault("output.dir", "./result")
	v.SetDefault("output.ticks_file", "synthetic_data.csv")
	v.SetDefault("output.executions_file", "executed_data.csv")
	v.SetDefault("output.plots", true)
	v.SetDefault("output.indicator_period", 10)
	v.SetDefault("output.render_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(TimeLayout),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
