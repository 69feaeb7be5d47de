// Package capture renders the slot plan page to a PNG with a headless
// Chromium, so the organisers get a printable/shareable snapshot of the
// schedule.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Defaults chosen for an A4-landscape-ish print of the plan table.
const (
	DefaultWidth   = 1400
	DefaultHeight  = 990
	DefaultTimeout = 30 * time.Second
)

// Options defines parameters for a slot plan screenshot.
type Options struct {
	// URL of the local slot plan page, e.g. "http://127.0.0.1:8311/slotplan".
	URL string

	// OutputPath is where the PNG will be written, e.g.
	// "./data/preview.png".
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. Zero means
	// the package defaults.
	Width  int
	Height int

	// Timeout bounds the entire capture. Zero means DefaultTimeout.
	Timeout time.Duration
}

// SlotplanPNG navigates a headless Chromium to the slot plan page, waits
// for the table to signal readiness via data-ready="true" on its root
// element, and writes a full-page PNG screenshot.
func SlotplanPNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Allow final paints before grabbing the frame.
		chromedp.Sleep(250 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
