package printing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// A4 in inches
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
	pageMargin     = 0.4
)

// ChromedpConfig contains configuration for the chromedp converter
type ChromedpConfig struct {
	// PandocPath is the pandoc binary used for the DOCX to HTML step
	PandocPath string
	Timeout    time.Duration
	// RemoteURL is the DevTools URL of a running Chrome. If empty a local
	// headless browser is launched.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	Logger    *zap.Logger
}

// ChromedpConverter converts DOCX to PDF in two steps: pandoc writes a
// standalone HTML page with embedded images, then headless Chrome prints
// it to PDF
type ChromedpConverter struct {
	pandoc      *commandRunner
	timeout     time.Duration
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpConverter creates a chromedp converter. Close releases the browser allocator.
func NewChromedpConverter(config *ChromedpConfig) (*ChromedpConverter, error) {
	if config == nil {
		config = &ChromedpConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pandoc, err := newCommandRunner("pandoc", config.PandocPath, "pandoc", config.Timeout, logger)
	if err != nil {
		return nil, err
	}

	c := &ChromedpConverter{
		pandoc:  pandoc,
		timeout: pandoc.timeout,
		logger:  logger,
	}

	if config.RemoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), config.RemoteURL)
		return c, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return c, nil
}

// Name implements DocumentConverter
func (c *ChromedpConverter) Name() string { return "chromedp" }

// Convert implements DocumentConverter
func (c *ChromedpConverter) Convert(ctx context.Context, docxPath, pdfPath string) error {
	htmlPath := strings.TrimSuffix(docxPath, filepath.Ext(docxPath)) + ".html"
	defer os.Remove(htmlPath)

	err := c.pandoc.run(ctx, filepath.Dir(docxPath),
		"-f", "docx", "-t", "html5", "-s", "--embed-resources",
		docxPath, "-o", htmlPath)
	if err != nil {
		return err
	}

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		return NewRenderError(ErrCodeRenderFailed, "failed to read intermediate HTML", err)
	}

	pdf, err := c.print(ctx, string(html))
	if err != nil {
		return err
	}
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return NewRenderError(ErrCodeRenderFailed, "failed to write PDF", err)
	}
	return nil
}

func (c *ChromedpConverter) print(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			c.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// the browser context is rooted at the allocator; stop it when the
	// caller's deadline passes
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				WithMarginTop(pageMargin).
				WithMarginRight(pageMargin).
				WithMarginBottom(pageMargin).
				WithMarginLeft(pageMargin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF printing timed out after %v", c.timeout), err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF printing was cancelled", err)
		}
		return nil, NewRenderError(ErrCodeRenderFailed, "chrome failed to print PDF", err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	c.logger.Debug("PDF printed", zap.Int("bytes", len(pdf)))
	return pdf, nil
}

// Close releases the browser allocator
func (c *ChromedpConverter) Close() error {
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

var _ DocumentConverter = (*ChromedpConverter)(nil)
