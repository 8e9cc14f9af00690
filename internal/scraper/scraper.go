package scraper

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/storefront-scraper/internal/metrics"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/ratelimit"
)

const blockedMessage = "Blocked by WAF/CDN"

// Session is the browser surface the controller drives.
type Session interface {
	NewPage() (playwright.Page, error)
	OpenPage(page playwright.Page, url string) (string, *int)
	Humanize(page playwright.Page, x, y float64) error
	HandleCookieBanner(page playwright.Page)
	DetectBlock(page playwright.Page) bool
	TakeDebug(page playwright.Page, key string, saveHTML, saveScreenshot bool) error
	DumpHTML(page playwright.Page, key string) error
}

type Paginator interface {
	Advance(page playwright.Page) (string, bool, error)
}

// RowSink receives every row as soon as it is final.
type RowSink interface {
	HandleRow(ctx context.Context, row *models.ResultRow) error
}

type RowSinkFunc func(ctx context.Context, row *models.ResultRow) error

func (f RowSinkFunc) HandleRow(ctx context.Context, row *models.ResultRow) error {
	return f(ctx, row)
}

type Options struct {
	RunID          string
	MaxRetries     int
	RetryOnBlock   bool
	MaxPages       int
	MaxRuntime     time.Duration
	SaveHTML       bool
	SaveScreenshot bool

	Pacer   ratelimit.Pacer
	Metrics *metrics.Metrics
	Sinks   []RowSink

	// RetryDelay and Sleep default to ratelimit.RetryDelay and
	// ratelimit.Sleep.
	RetryDelay func(attempt int) time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
}

// ExitCode is 0 when at least one row succeeded.
func ExitCode(rows []*models.ResultRow) int {
	for _, row := range rows {
		if row.IsOK() {
			return 0
		}
	}
	return 1
}
