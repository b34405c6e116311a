package market

import "time"

// Tick 代表单个时间步的合成行情。
type Tick struct {
	Index     int
	Timestamp time.Time
	Price     float64
	Volume    int64
}

// GeneratorConfig 控制合成行情的生成参数。
type GeneratorConfig struct {
	StartTime       time.Time
	Periods         int
	Interval        time.Duration
	InitialPrice    float64
	PriceVolatility float64
	VolumeMean      float64
	Seed            int64
}

// Series 将行情拆分为便于计算与绘图的序列。
type Series struct {
	Timestamps []time.Time
	Prices     []float64
	Volumes    []float64
}

// NewSeries 从 Tick 切片创建 Series，保持原有顺序。
func NewSeries(ticks []Tick) Series {
	series := Series{
		Timestamps: make([]time.Time, len(ticks)),
		Prices:     make([]float64, len(ticks)),
		Volumes:    make([]float64, len(ticks)),
	}
	for i, tick := range ticks {
		series.Timestamps[i] = tick.Timestamp
		series.Prices[i] = tick.Price
		series.Volumes[i] = float64(tick.Volume)
	}
	return series
}

// Len 返回序列长度。
func (s Series) Len() int {
	return len(s.Prices)
}
