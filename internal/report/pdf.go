package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const renderTimeout = 30 * time.Second

// Paper is a printable page size in inches.
type Paper string

const (
	PaperLetter Paper = "letter"
	PaperA4     Paper = "a4"
)

func ParsePaper(s string) (Paper, error) {
	switch p := Paper(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PaperLetter:
		return PaperLetter, nil
	case PaperA4:
		return PaperA4, nil
	default:
		return "", fmt.Errorf("unknown paper size %q", s)
	}
}

func (p Paper) inches() (width, height float64) {
	if p == PaperA4 {
		return 8.27, 11.69
	}
	return 8.5, 11
}

// footerTemplate shows the report title and page numbers.
var footerTemplate = `<div style="width:100%;padding:0 0.5in;display:flex;justify-content:space-between;font-size:8px;color:#57534e;">` +
	`<span>` + Title + `</span>` +
	`<span><span class="pageNumber"></span> / <span class="totalPages"></span></span></div>`

// PDFRenderer prints report markdown through a headless Chromium.
type PDFRenderer struct {
	chromePath string
	paper      Paper
}

// NewPDFRenderer uses chromePath when set and otherwise looks for a
// Chromium install in the usual places.
func NewPDFRenderer(chromePath string, paper Paper) *PDFRenderer {
	if chromePath == "" {
		chromePath = detectChromePath()
	}
	if paper == "" {
		paper = PaperLetter
	}
	return &PDFRenderer{chromePath: chromePath, paper: paper}
}

func (r *PDFRenderer) ChromePath() string {
	return r.chromePath
}

func (r *PDFRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	htmlDoc, err := RenderHTML(markdown)
	if err != nil {
		return nil, err
	}
	browserCtx, cancel := r.browser(ctx)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString([]byte(htmlDoc))),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := r.printParams().Do(ctx)
			pdf = out
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print %s pdf: %w", r.paper, err)
	}
	return pdf, nil
}

// browser starts a throwaway Chromium bounded by renderTimeout.
func (r *PDFRenderer) browser(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, renderTimeout)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	return taskCtx, func() {
		cancelTask()
		cancelAlloc()
		cancelTimeout()
	}
}

func (r *PDFRenderer) printParams() *page.PrintToPDFParams {
	width, height := r.paper.inches()
	return page.PrintToPDF().
		WithPaperWidth(width).
		WithPaperHeight(height).
		WithMarginTop(0.5).
		WithMarginBottom(0.7).
		WithMarginLeft(0.5).
		WithMarginRight(0.5).
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<span></span>`).
		WithFooterTemplate(footerTemplate)
}

func detectChromePath() string {
	for _, p := range []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
