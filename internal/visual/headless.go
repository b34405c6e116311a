package visual

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrHeadlessUnavailable 表示本机无法启动无头浏览器。
var ErrHeadlessUnavailable = errors.New("visual: 无头浏览器不可用")

// Rasterizer 将 HTML 图表渲染为 PNG。
type Rasterizer interface {
	Rasterize(ctx context.Context, html []byte, width, height int) ([]byte, error)
}

// ChromeRasterizer 通过 chromedp 驱动无头 Chrome 截图。
type ChromeRasterizer struct {
	Timeout time.Duration
	// Settle 为页面脚本绘制图表预留的等待时间。
	Settle time.Duration

	once     sync.Once
	probeErr error
}

func NewChromeRasterizer(timeout time.Duration) *ChromeRasterizer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ChromeRasterizer{Timeout: timeout, Settle: 1500 * time.Millisecond}
}

// Available 探测一次无头浏览器是否可用，结果会被缓存。
func (r *ChromeRasterizer) Available(ctx context.Context) error {
	r.once.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		browser, cancel := chromedp.NewContext(ctx)
		defer cancel()
		if err := chromedp.Run(browser); err != nil {
			r.probeErr = fmt.Errorf("%w: %v", ErrHeadlessUnavailable, err)
		}
	})
	return r.probeErr
}

func (r *ChromeRasterizer) Rasterize(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.Available(ctx); err != nil {
		return nil, err
	}

	browser, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(browser, r.Timeout)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.Settle),
		chromedp.FullScreenshot(&screenshot, 100), // 100 为 PNG，其余为 JPEG
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, fmt.Errorf("visual: 截图失败: %w", err)
	}
	return screenshot, nil
}
