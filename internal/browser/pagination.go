package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

const nextLabelPredicate = "contains(., 'Siguiente') or contains(., 'Next') or " +
	"contains(@aria-label, 'Siguiente') or contains(@aria-label, 'Next')"

// nextControlSelectors are tried in order: links first, then buttons.
var nextControlSelectors = []string{
	"xpath=//a[" + nextLabelPredicate + "]",
	"xpath=//button[" + nextLabelPredicate + "]",
}

const (
	fingerprintSelector = "css=a"
	fingerprintChanged  = "token => (document.querySelector('a')?.getAttribute('href') ?? '') !== token"
)

// Paginator moves a listing page to its next page and confirms that the
// content actually changed before reporting success.
type Paginator struct {
	timeout time.Duration
	settle  time.Duration
	logger  *slog.Logger
}

func NewPaginator(timeout time.Duration) *Paginator {
	return &Paginator{
		timeout: timeout,
		settle:  time.Second,
		logger:  slog.Default().With("component", "paginator"),
	}
}

// FindNextControl returns the first "next page" link or button, or nil when
// the page has none.
func (p *Paginator) FindNextControl(page playwright.Page) (playwright.Locator, error) {
	for _, selector := range nextControlSelectors {
		candidates := page.Locator(selector)
		count, err := candidates.Count()
		if err != nil {
			return nil, fmt.Errorf("failed to look up next control: %w", err)
		}
		if count > 0 {
			return candidates.First(), nil
		}
	}
	return nil, nil
}

// Advance clicks the next control and waits for the page to change. It
// returns the new page URL and true only when the transition was confirmed.
// A missing, hidden or disabled control ends pagination without error.
func (p *Paginator) Advance(page playwright.Page) (string, bool, error) {
	control, err := p.FindNextControl(page)
	if err != nil {
		return "", false, err
	}
	if control == nil {
		p.logger.Info("no next control found")
		return "", false, nil
	}

	actionable, err := p.actionable(control)
	if err != nil || !actionable {
		return "", false, err
	}

	before := page.URL()
	token, err := p.fingerprint(page)
	if err != nil {
		return "", false, err
	}

	if err := control.ScrollIntoViewIfNeeded(); err != nil {
		return "", false, fmt.Errorf("failed to scroll to next control: %w", err)
	}
	if err := control.Click(); err != nil {
		return "", false, fmt.Errorf("failed to click next control: %w", err)
	}

	if p.waitForChange(page, token) || page.URL() != before {
		return page.URL(), true, nil
	}

	p.logger.Info("page fingerprint did not change, clicking via script")
	if _, err := control.Evaluate("el => el.click()", nil); err != nil {
		return "", false, fmt.Errorf("failed to click next control via script: %w", err)
	}
	if p.waitForChange(page, token) || page.URL() != before {
		return page.URL(), true, nil
	}

	p.logger.Info("next page could not be confirmed", "url", before)
	return "", false, nil
}

func (p *Paginator) actionable(control playwright.Locator) (bool, error) {
	visible, err := control.IsVisible()
	if err != nil {
		return false, fmt.Errorf("failed to check next control visibility: %w", err)
	}
	if !visible {
		p.logger.Info("next control is hidden")
		return false, nil
	}

	enabled, err := control.IsEnabled()
	if err != nil {
		return false, fmt.Errorf("failed to check next control state: %w", err)
	}
	if !enabled {
		p.logger.Info("next control is disabled")
		return false, nil
	}

	if disabled, err := control.GetAttribute("aria-disabled"); err == nil && disabled == "true" {
		p.logger.Info("next control is aria-disabled")
		return false, nil
	}
	return true, nil
}

// fingerprint is the destination of the first link on the page, or "" when
// there is no link or it has no href.
func (p *Paginator) fingerprint(page playwright.Page) (string, error) {
	first := page.Locator(fingerprintSelector).First()
	count, err := first.Count()
	if err != nil {
		return "", fmt.Errorf("failed to read page fingerprint: %w", err)
	}
	if count == 0 {
		return "", nil
	}
	href, err := first.GetAttribute("href")
	if err != nil {
		return "", fmt.Errorf("failed to read page fingerprint: %w", err)
	}
	return href, nil
}

func (p *Paginator) waitForChange(page playwright.Page, token string) bool {
	page.WaitForTimeout(float64(p.settle.Milliseconds()))
	_, err := page.WaitForFunction(fingerprintChanged, token, playwright.PageWaitForFunctionOptions{
		Timeout: playwright.Float(float64(p.timeout.Milliseconds())),
	})
	return err == nil
}
