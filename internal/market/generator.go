package market

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// MinPrice 为随机游走价格的下限。
const MinPrice = 1.0

var (
	ErrInvalidPeriods  = errors.New("market: periods 必须大于0")
	ErrInvalidInterval = errors.New("market: interval 必须大于0")
	ErrInvalidPrice    = errors.New("market: initial_price 必须为大于0的有限值")
	ErrInvalidVolume   = errors.New("market: volume_mean 必须为大于0的有限值")
)

// Validate 检查生成参数。
func (c GeneratorConfig) Validate() error {
	switch {
	case c.Periods <= 0:
		return ErrInvalidPeriods
	case c.Interval <= 0:
		return ErrInvalidInterval
	case !finite(c.InitialPrice) || c.InitialPrice <= 0:
		return fmt.Errorf("%w: %v", ErrInvalidPrice, c.InitialPrice)
	case !finite(c.VolumeMean) || c.VolumeMean <= 0:
		return fmt.Errorf("%w: %v", ErrInvalidVolume, c.VolumeMean)
	case !finite(c.PriceVolatility) || c.PriceVolatility < 0:
		return fmt.Errorf("market: price_volatility 不能为负: %v", c.PriceVolatility)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Generate 生成一段合成行情。
//
// 价格为有下限的随机游走：p[i] = max(MinPrice, p[i-1] + N(0, σ))，起始值本身不输出；
// 成交量独立服从 Poisson(volume_mean)。全部价格增量先于成交量抽取，
// 因此相同种子得到完全相同的序列。
func Generate(cfg GeneratorConfig) ([]Tick, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := uint64(cfg.Seed)
	src := rand.NewPCG(seed, seed)

	step := distuv.Normal{Mu: 0, Sigma: cfg.PriceVolatility, Src: src}
	changes := make([]float64, cfg.Periods)
	for i := range changes {
		changes[i] = step.Rand()
	}

	volume := distuv.Poisson{Lambda: cfg.VolumeMean, Src: src}
	volumes := make([]int64, cfg.Periods)
	for i := range volumes {
		volumes[i] = int64(volume.Rand())
	}

	ticks := make([]Tick, cfg.Periods)
	price := cfg.InitialPrice
	for i := 0; i < cfg.Periods; i++ {
		price = math.Max(MinPrice, price+changes[i])
		ticks[i] = Tick{
			Index:     i,
			Timestamp: cfg.StartTime.Add(time.Duration(i) * cfg.Interval),
			Price:     price,
			Volume:    volumes[i],
		}
	}

	return ticks, nil
}
