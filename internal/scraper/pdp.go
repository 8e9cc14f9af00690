package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/storefront-scraper/internal/models"
)

// errBlocked ends an attempt whose page was classified as a bot-defense
// response.
var errBlocked = errors.New(blockedMessage)

// RunPDP visits every URL in order and returns exactly one row per URL
// attempted. The loop stops early when ctx is done or the runtime budget is
// spent; rows produced so far are still returned.
func (r *Runner) RunPDP(ctx context.Context, urls []string) []*models.ResultRow {
	state := newRunState("")
	r.logger.Info("starting detail run", "urls", len(urls), "max_retries", r.opts.MaxRetries)

	for i, url := range urls {
		if ctx.Err() != nil {
			r.logger.Warn("run canceled", "processed", i, "remaining", len(urls)-i)
			break
		}

		row := r.scrapeProduct(ctx, url)
		r.emit(ctx, state, row, row.Timestamp)
		r.logger.Info("detail page done",
			"url", url,
			"status", row.Status,
			"attempts", row.Attempts,
			"elapsed_sec", row.ElapsedSec,
		)

		if err := r.pace(ctx); err != nil {
			break
		}
		if state.exceeded(r.opts.MaxRuntime) {
			r.logger.Warn("runtime budget exceeded", "processed", i+1, "remaining", len(urls)-i-1)
			break
		}
	}

	r.logger.Info("detail run finished", "rows", len(state.rows))
	return state.rows
}

// scrapeProduct runs the attempt loop for one URL.
func (r *Runner) scrapeProduct(ctx context.Context, url string) *models.ResultRow {
	row := models.NewResultRow(r.opts.RunID, models.ModePDP, url)
	start := time.Now()
	defer func() {
		r.opts.Metrics.ObserveDuration(string(models.ModePDP), time.Since(start))
	}()

	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		row.Attempts = attempt
		r.opts.Metrics.IncAttempt(string(models.ModePDP))

		err := r.attemptProduct(row, url)
		if err == nil {
			row.Status = models.StatusOK
			row.Error = ""
			return row
		}

		if errors.Is(err, errBlocked) {
			if !r.opts.RetryOnBlock {
				return row
			}
		} else {
			row.Status = models.StatusFail
			row.Error = errorMessage(err)
			r.opts.Metrics.IncError(errorKind(err))
			r.logger.Warn("detail attempt failed", "url", url, "attempt", attempt, "error", err)
		}

		if attempt == r.opts.MaxRetries {
			break
		}
		r.opts.Metrics.IncRetry()
		if err := r.opts.Sleep(ctx, r.opts.RetryDelay(attempt)); err != nil {
			return row
		}
	}

	if row.Status == models.StatusFail {
		row.Status = models.StatusRetryExhausted
	}
	return row
}

// attemptProduct performs one navigation and extraction. The page is always
// closed before it returns.
func (r *Runner) attemptProduct(row *models.ResultRow, url string) (err error) {
	page, err := r.session.NewPage()
	if err != nil {
		return stageErr("new_page", err)
	}
	defer r.closePage(page)
	defer func() {
		if err != nil && !errors.Is(err, errBlocked) {
			r.captureDebug(page, url)
		}
	}()

	finalURL, status := r.session.OpenPage(page, url)
	if finalURL == "" {
		finalURL = url
	}
	row.FinalURL = finalURL
	row.HTTPStatus = status

	if err := r.session.Humanize(page, 200, 200); err != nil {
		r.logger.Debug("mouse move failed", "url", url, "error", err)
	}
	r.session.HandleCookieBanner(page)

	if r.session.DetectBlock(page) {
		r.markBlocked(row)
		r.captureDebug(page, url)
		return errBlocked
	}

	row.PageTypeDetected = models.PageTypePDP
	html, err := page.Content()
	if err != nil {
		return stageErr("content", err)
	}
	r.dump(page, url)

	product, err := r.parser.ParseProduct(html, finalURL)
	if err != nil {
		return stageErr("extract", err)
	}
	row.ApplyProduct(product)
	return nil
}
