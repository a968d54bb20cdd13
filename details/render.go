package details

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
)

const renderTimeoutMs = 20000

// BrowserRenderer loads listing pages in a persistent Chromium context so
// script-populated sections (facilities, area info, gallery) are present
// in the DOM before extraction. The browser launches lazily on first use.
type BrowserRenderer struct {
	headless bool

	mu          sync.Mutex
	pw          *playwright.Playwright
	context     playwright.BrowserContext
	initialized bool
}

func NewBrowserRenderer(headless bool) *BrowserRenderer {
	return &BrowserRenderer{headless: headless}
}

func (r *BrowserRenderer) ensureBrowser() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	var err error
	r.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	cwd, _ := os.Getwd()
	userDataDir := filepath.Join(cwd, "browser_data")
	r.context, err = r.pw.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(r.headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	r.initialized = true
	return nil
}

// RenderDocument navigates to the listing page, nudges lazy sections into
// loading with a couple of scrolls and returns the settled DOM. The whole
// capture respects the caller's deadline: navigation gets the remaining
// budget and the scroll waits abort once the context expires.
func (r *BrowserRenderer) RenderDocument(ctx context.Context, url string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	gotoTimeout := float64(renderTimeoutMs)
	if deadline, ok := ctx.Deadline(); ok {
		gotoTimeout = float64(time.Until(deadline).Milliseconds())
		if gotoTimeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	page, err := r.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(gotoTimeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return nil, fmt.Errorf("navigation to %s: %w", url, err)
	}

	// Facility and gallery sections load on scroll.
	for i := 0; i < 3; i++ {
		page.Evaluate(`window.scrollBy(0, document.body.scrollHeight / 3)`)
		if err := waitOrAbort(ctx, 800*time.Millisecond); err != nil {
			return nil, err
		}
	}
	if err := waitOrAbort(ctx, 1500*time.Millisecond); err != nil {
		return nil, err
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(content))
}

func waitOrAbort(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *BrowserRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.context != nil {
		r.context.Close()
	}
	if r.pw != nil {
		r.pw.Stop()
	}
	r.initialized = false
}
