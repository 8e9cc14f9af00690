package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/storefront-scraper/internal/models"
)

// RunPLP walks a listing from startURL through confirmed next pages. It
// emits one row per visited page plus one row per product URL not emitted
// before in this run. The walk ends on a block, a failure, a missing next
// control, the page ceiling or the runtime budget.
func (r *Runner) RunPLP(ctx context.Context, startURL string) []*models.ResultRow {
	state := newRunState(startURL)
	r.logger.Info("starting listing run", "url", startURL, "max_pages", r.opts.MaxPages)

	for state.pageIndex = 1; state.pageIndex <= r.opts.MaxPages; state.pageIndex++ {
		if ctx.Err() != nil {
			r.logger.Warn("run canceled", "page", state.pageIndex)
			break
		}

		next, more := r.scrapeListingPage(ctx, state)
		if !more {
			break
		}
		state.listingURL = next

		if err := r.pace(ctx); err != nil {
			break
		}
		if state.exceeded(r.opts.MaxRuntime) {
			r.logger.Warn("runtime budget exceeded", "page", state.pageIndex)
			break
		}
	}

	r.logger.Info("listing run finished", "rows", len(state.rows), "pages", state.pageIndex)
	return state.rows
}

// scrapeListingPage handles the current cursor and reports the next listing
// URL and whether the walk continues.
func (r *Runner) scrapeListingPage(ctx context.Context, state *runState) (string, bool) {
	url := state.listingURL
	key := fmt.Sprintf("%s_page_%d", url, state.pageIndex)
	start := time.Now()
	defer func() {
		r.opts.Metrics.ObserveDuration(string(models.ModePLP), time.Since(start))
	}()

	row := models.NewResultRow(r.opts.RunID, models.ModePLP, url)
	row.Attempts = 1
	r.opts.Metrics.IncAttempt(string(models.ModePLP))
	r.opts.Metrics.IncListingPage()

	page, err := r.session.NewPage()
	if err != nil {
		r.failListing(ctx, state, row, start, nil, key, stageErr("new_page", err))
		return "", false
	}
	defer r.closePage(page)

	finalURL, status := r.session.OpenPage(page, url)
	if finalURL == "" {
		finalURL = url
	}
	row.FinalURL = finalURL
	row.HTTPStatus = status

	if err := r.session.Humanize(page, 150, 180); err != nil {
		r.logger.Debug("mouse move failed", "url", url, "error", err)
	}
	r.session.HandleCookieBanner(page)

	if r.session.DetectBlock(page) {
		r.markBlocked(row)
		r.captureDebug(page, key)
		r.emit(ctx, state, row, start)
		r.logger.Warn("listing page blocked, stopping walk", "url", url, "page", state.pageIndex)
		return "", false
	}

	r.dump(page, key)
	html, err := page.Content()
	if err != nil {
		r.failListing(ctx, state, row, start, page, key, stageErr("content", err))
		return "", false
	}

	items, err := r.parser.ParseListing(html, url)
	if err != nil {
		r.failListing(ctx, state, row, start, page, key, stageErr("extract", err))
		return "", false
	}

	row.PageTypeDetected = models.PageTypePLP
	row.Status = models.StatusOK
	r.emit(ctx, state, row, start)

	emitted := 0
	for _, item := range items {
		if !state.markSeen(item.ProductURL) {
			continue
		}
		product := models.NewResultRow(r.opts.RunID, models.ModePLP, url)
		product.FinalURL = finalURL
		product.HTTPStatus = status
		product.PageTypeDetected = models.PageTypePLP
		product.Attempts = 1
		product.ApplyListing(item)
		product.Status = models.StatusOK
		r.emit(ctx, state, product, start)
		emitted++
	}
	r.logger.Info("listing page done",
		"url", url,
		"page", state.pageIndex,
		"items", len(items),
		"new_items", emitted,
	)

	if state.pageIndex >= r.opts.MaxPages {
		return "", false
	}

	next, ok, err := r.paginator.Advance(page)
	if err != nil {
		failed := models.NewResultRow(r.opts.RunID, models.ModePLP, url)
		failed.FinalURL = finalURL
		failed.HTTPStatus = status
		failed.PageTypeDetected = models.PageTypePLP
		failed.Attempts = 1
		r.failListing(ctx, state, failed, start, page, key, stageErr("paginate", err))
		return "", false
	}
	if !ok {
		r.logger.Info("no further listing pages", "url", url, "page", state.pageIndex)
		return "", false
	}
	return next, true
}

// failListing records a terminal failure for the walk.
func (r *Runner) failListing(ctx context.Context, state *runState, row *models.ResultRow, start time.Time, page playwright.Page, key string, err error) {
	row.Status = models.StatusFail
	row.Error = errorMessage(err)
	r.opts.Metrics.IncError(errorKind(err))
	r.captureDebug(page, key)
	r.emit(ctx, state, row, start)
	r.logger.Error("listing page failed, stopping walk", "url", row.SourceURL, "page", state.pageIndex, "error", err)
}
