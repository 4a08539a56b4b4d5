package certificate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// awaitImages resolves once every <img> has loaded (or failed) and decoded,
// and web fonts are ready. Failed images do not block the capture.
const awaitImages = `(async () => {
  const imgs = Array.from(document.images);
  await Promise.all(imgs.map((img) => {
    const settle = () => (img.decode ? img.decode().catch(() => {}) : Promise.resolve());
    if (img.complete) return settle();
    return new Promise((resolve) => {
      img.addEventListener('load', () => settle().then(resolve), { once: true });
      img.addEventListener('error', resolve, { once: true });
    });
  }));
  if (document.fonts && document.fonts.ready) await document.fonts.ready;
  return imgs.length;
})()`

// CaptureScale is the device scale factor of the capture. The bitmap is
// CaptureScale times the layout size so the printed page stays sharp.
const CaptureScale = 2

// RasterizerOptions configures the headless browser.
type RasterizerOptions struct {
	ChromePath  string
	SettleDelay time.Duration
	Logger      *zap.Logger
}

// Rasterizer captures rendered certificate HTML as a PNG using a shared
// headless Chrome. Each capture runs in its own tab.
type Rasterizer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	settleDelay time.Duration
	logger      *zap.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewRasterizer prepares the browser allocator. Chrome itself starts on the
// first capture and is reused by every later one.
func NewRasterizer(opts RasterizerOptions) *Rasterizer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(Width, Height),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.NoSandbox,
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	return &Rasterizer{allocCtx: allocCtx, allocCancel: cancel, settleDelay: opts.SettleDelay, logger: logger}
}

// browser returns the shared browser context, starting Chrome when it is not
// running. A browser that went away is replaced.
func (r *Rasterizer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return r.browserCtx, nil
	}
	if err := r.allocCtx.Err(); err != nil {
		return nil, fmt.Errorf("rasterizer closed: %w", err)
	}
	ctx, cancel := chromedp.NewContext(r.allocCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	r.browserCtx, r.browserCancel = ctx, cancel
	r.logger.Info("headless browser started")
	return ctx, nil
}

// Rasterize loads html and screenshots the certificate element. Cancelling ctx
// closes the tab, so a deadline stops the browser work instead of abandoning it.
func (r *Rasterizer) Rasterize(ctx context.Context, html []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browserCtx, err := r.browser()
	if err != nil {
		return nil, err
	}
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var (
		png    []byte
		images int
	)
	selector := "#" + ElementID
	actions := []chromedp.Action{
		chromedp.EmulateViewport(Width, Height, chromedp.EmulateScale(CaptureScale)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(awaitImages, &images, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	}
	if r.settleDelay > 0 {
		actions = append(actions, chromedp.Sleep(r.settleDelay))
	}
	actions = append(actions, chromedp.Screenshot(selector, &png, chromedp.ByQuery))

	start := time.Now()
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rasterize certificate: %w", err)
	}
	r.logger.Debug("certificate rasterized",
		zap.Int("images", images),
		zap.Int("bytes", len(png)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return png, nil
}

// Close shuts down the browser, then the allocator.
func (r *Rasterizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCancel != nil {
		r.browserCancel()
		r.browserCtx, r.browserCancel = nil, nil
	}
	r.allocCancel()
}
