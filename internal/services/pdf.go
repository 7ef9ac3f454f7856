package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const defaultRenderTimeout = 60 * time.Second

// ChromePDFRenderer prints HTML to a Letter-size PDF with headless Chrome.
// A fresh browser is started per render so a crashed page never poisons
// later requests.
type ChromePDFRenderer struct {
	execPath string
	timeout  time.Duration
}

// NewChromePDFRenderer creates a renderer. execPath may be empty to let
// chromedp find a browser on PATH.
func NewChromePDFRenderer(execPath string) *ChromePDFRenderer {
	return &ChromePDFRenderer{execPath: execPath, timeout: defaultRenderTimeout}
}

// Render converts an HTML document to PDF bytes.
func (r *ChromePDFRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	if html == "" {
		return nil, errors.New("pdf: empty html")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	started := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				WithMarginTop(0.5).
				WithMarginRight(0.5).
				WithMarginBottom(0.5).
				WithMarginLeft(0.5).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}

	log.Printf("📄 Rendered PDF (%d bytes) in %v", len(pdf), time.Since(started).Round(time.Millisecond))
	return pdf, nil
}
