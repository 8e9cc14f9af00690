package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/parser"
	"github.com/maltedev/storefront-scraper/internal/ratelimit"
)

// Runner sequences page visits for one run. It owns the run state and is
// used from a single goroutine; Summary may be read concurrently.
type Runner struct {
	session   Session
	paginator Paginator
	parser    parser.Parser
	opts      Options
	tally     *models.Tally
	logger    *slog.Logger

	mu   sync.Mutex
	rows []*models.ResultRow
}

func NewRunner(session Session, paginator Paginator, p parser.Parser, opts Options) *Runner {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.RetryDelay == nil {
		opts.RetryDelay = ratelimit.RetryDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = ratelimit.Sleep
	}
	return &Runner{
		session:   session,
		paginator: paginator,
		parser:    p,
		opts:      opts,
		tally:     models.NewTally(),
		logger:    slog.Default().With("component", "runner", "run_id", opts.RunID),
	}
}

func (r *Runner) RunID() string {
	return r.opts.RunID
}

// Summary returns the per-mode status counts of the rows emitted so far.
func (r *Runner) Summary() models.Summary {
	return r.tally.Summary()
}

// Rows returns every row emitted so far, in order.
func (r *Runner) Rows() []*models.ResultRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ResultRow, len(r.rows))
	copy(out, r.rows)
	return out
}

// runState is the mutable state of one loop: the clock, the set of product
// URLs already emitted and the listing cursor.
type runState struct {
	start      time.Time
	seen       map[string]struct{}
	pageIndex  int
	listingURL string
	rows       []*models.ResultRow
}

func newRunState(listingURL string) *runState {
	return &runState{
		start:      time.Now(),
		seen:       make(map[string]struct{}),
		listingURL: listingURL,
	}
}

// exceeded reports whether the global runtime budget is spent. A zero
// budget never expires.
func (s *runState) exceeded(budget time.Duration) bool {
	return budget > 0 && time.Since(s.start) > budget
}

// markSeen records url and reports whether it is new. Empty URLs are always
// new.
func (s *runState) markSeen(url string) bool {
	if url == "" {
		return true
	}
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// emit finalizes row and hands it to the state, the tally, metrics and sinks.
func (r *Runner) emit(ctx context.Context, state *runState, row *models.ResultRow, start time.Time) {
	row.Finalize(start)
	state.rows = append(state.rows, row)

	r.mu.Lock()
	r.rows = append(r.rows, row)
	r.mu.Unlock()

	r.tally.Add(row)
	r.opts.Metrics.IncRow(string(row.Mode), string(row.Status))

	for _, sink := range r.opts.Sinks {
		if err := sink.HandleRow(ctx, row); err != nil {
			r.logger.Warn("row sink failed", "url", row.SourceURL, "error", err)
		}
	}
}

// pace waits a random interval between units of work.
func (r *Runner) pace(ctx context.Context) error {
	if r.opts.Pacer == nil {
		return nil
	}
	return r.opts.Pacer.Wait(ctx)
}

func (r *Runner) captureDebug(page playwright.Page, key string) {
	if page == nil {
		return
	}
	if err := r.session.TakeDebug(page, key, r.opts.SaveHTML, r.opts.SaveScreenshot); err != nil {
		r.logger.Info("failed to capture debug artifacts", "key", key, "error", err)
	}
}

func (r *Runner) dump(page playwright.Page, key string) {
	if err := r.session.DumpHTML(page, key); err != nil {
		r.logger.Info("failed to dump html", "key", key, "error", err)
	}
}

func (r *Runner) closePage(page playwright.Page) {
	if page == nil {
		return
	}
	if err := page.Close(); err != nil {
		r.logger.Debug("failed to close page", "error", err)
	}
}

func (r *Runner) markBlocked(row *models.ResultRow) {
	row.Status = models.StatusBlock
	row.PageTypeDetected = models.PageTypeBlocked
	row.Error = blockedMessage
	r.opts.Metrics.IncBlock(string(row.Mode))
}
