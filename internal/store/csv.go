package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"twap-backtest/internal/backtest"
	"twap-backtest/internal/config"
	"twap-backtest/internal/market"
)

var (
	ticksHeader      = []string{"timestamp", "price", "volume"}
	executionsHeader = []string{
		"timestamp", "price", "volume", "order_quantity", "executed_quantity",
		"expected_price", "executed_price", "cumulative_cost",
	}
)

// Store 封装回测产物目录，负责读写 CSV 文件。
type Store struct {
	dir            string
	ticksFile      string
	executionsFile string
}

// New 根据输出配置初始化产物目录。
func New(cfg config.OutputConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("store: 输出目录不能为空")
	}
	if err := ensureDir(cfg.Dir); err != nil {
		return nil, err
	}
	return &Store{
		dir:            cfg.Dir,
		ticksFile:      cfg.TicksFile,
		executionsFile: cfg.ExecutionsFile,
	}, nil
}

// Dir 返回产物目录。
func (s *Store) Dir() string {
	return s.dir
}

// Path 返回产物目录下的文件路径。
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteTicks 写出行情 CSV，返回文件路径。
func (s *Store) WriteTicks(ticks []market.Tick) (string, error) {
	records := make([][]string, 0, len(ticks)+1)
	records = append(records, ticksHeader)
	for _, tick := range ticks {
		records = append(records, []string{
			tick.Timestamp.Format(config.TimeLayout),
			formatFloat(tick.Price),
			strconv.FormatInt(tick.Volume, 10),
		})
	}
	path := s.Path(s.ticksFile)
	if err := writeCSV(path, records); err != nil {
		return "", err
	}
	return path, nil
}

// WriteExecutions 写出逐时间步的执行明细，窗口外的价格列留空。
func (s *Store) WriteExecutions(rows []backtest.ExecutionRow) (string, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, executionsHeader)
	for _, row := range rows {
		expected, executed := "", ""
		if row.HasOrder {
			expected = formatFloat(row.ExpectedPrice)
			executed = formatFloat(row.ExecutedPrice)
		}
		records = append(records, []string{
			row.Tick.Timestamp.Format(config.TimeLayout),
			formatFloat(row.Tick.Price),
			strconv.FormatInt(row.Tick.Volume, 10),
			row.OrderQuantity.String(),
			row.ExecutedQuantity.String(),
			expected,
			executed,
			row.CumulativeCost.String(),
		})
	}
	path := s.Path(s.executionsFile)
	if err := writeCSV(path, records); err != nil {
		return "", err
	}
	return path, nil
}

// ReadTicks 读取 WriteTicks 写出的行情 CSV，要求时间戳严格递增。
func ReadTicks(path string) ([]market.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开行情文件 %q 失败: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(ticksHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取行情表头失败: %w", err)
	}
	for i, name := range ticksHeader {
		if strings.TrimSpace(header[i]) != name {
			return nil, fmt.Errorf("行情表头不匹配: 第%d列应为 %q，实际为 %q", i+1, name, header[i])
		}
	}

	var ticks []market.Tick
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取行情第%d行失败: %w", line, err)
		}
		tick, err := parseTick(record, len(ticks))
		if err != nil {
			return nil, fmt.Errorf("解析行情第%d行失败: %w", line, err)
		}
		if n := len(ticks); n > 0 && !tick.Timestamp.After(ticks[n-1].Timestamp) {
			return nil, fmt.Errorf("行情第%d行时间戳未递增: %s", line, record[0])
		}
		ticks = append(ticks, tick)
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("行情文件 %q 为空", path)
	}
	return ticks, nil
}

func parseTick(record []string, index int) (market.Tick, error) {
	ts, err := time.Parse(config.TimeLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return market.Tick{}, fmt.Errorf("timestamp: %w", err)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("price: %w", err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return market.Tick{}, fmt.Errorf("price 必须为大于0的有限值: %v", price)
	}
	volume, err := parseVolume(strings.TrimSpace(record[2]))
	if err != nil {
		return market.Tick{}, fmt.Errorf("volume: %w", err)
	}
	return market.Tick{Index: index, Timestamp: ts, Price: price, Volume: volume}, nil
}

func parseVolume(raw string) (int64, error) {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("不能为负: %d", v)
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != float64(int64(f)) {
		return 0, fmt.Errorf("应为非负整数: %s", raw)
	}
	return int64(f), nil
}

// writeCSV 先写临时文件再重命名，避免留下半截文件。
func writeCSV(path string, records [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("设置 %q 权限失败: %w", path, err)
	}

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入 %q 失败: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭 %q 失败: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("保存 %q 失败: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("创建目录 %q 失败: %w", path, err)
	}
	return nil
}
