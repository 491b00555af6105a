package reporter

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/amosWeiskopf/seoautomation/internal/config"
)

// PDFRenderer turns a rendered HTML report into a PDF
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

// ChromePDF prints reports with a headless Chromium
type ChromePDF struct {
	execPath string
	timeout  time.Duration
}

// NewChromePDF creates a renderer from the PDF config
func NewChromePDF(cfg config.PDFConfig) *ChromePDF {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromePDF{execPath: cfg.ChromiumPath, timeout: timeout}
}

// RenderPDF loads html into a blank tab and prints it
func (c *ChromePDF) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, c.timeout)
	defer cancelTimeout()

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf, nil
}
