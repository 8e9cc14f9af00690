package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

var readinessStates = []*playwright.WaitUntilState{
	playwright.WaitUntilStateDomcontentloaded,
	playwright.WaitUntilStateLoad,
}

// OpenPage navigates page to url. Navigation problems are logged and never
// returned: a partially loaded page is often still usable. The returned status
// is nil when no response was obtained.
func (s *Session) OpenPage(page playwright.Page, url string) (string, *int) {
	var status *int

	for _, state := range readinessStates {
		resp, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: state,
			Timeout:   playwright.Float(float64(s.opts.NavigationTimeout.Milliseconds())),
		})
		if err != nil {
			s.logger.Info("navigation attempt failed", "url", url, "wait_until", *state, "error", err)
			continue
		}
		if resp != nil {
			code := resp.Status()
			status = &code
		}
		break
	}

	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(s.opts.NavigationTimeout.Milliseconds())),
	}); err != nil {
		s.logger.Info("network idle wait timed out", "url", url, "error", err)
	}

	return page.URL(), status
}

// Warmup performs one throwaway visit to collect session cookies. Failures
// are logged only.
func (s *Session) Warmup(url string) {
	if url == "" {
		return
	}
	if err := s.warmup(url); err != nil {
		s.logger.Info("warmup failed", "url", url, "error", err)
		return
	}
	s.logger.Info("warmup done", "url", url)
}

func (s *Session) warmup(url string) error {
	page, err := s.NewPage()
	if err != nil {
		return err
	}
	defer page.Close()

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to open warmup page: %w", err)
	}
	s.HandleCookieBanner(page)
	page.WaitForTimeout(1000)
	return nil
}

// Humanize moves the cursor to a fixed point and pauses briefly. It only acts
// when stealth is enabled.
func (s *Session) Humanize(page playwright.Page, x, y float64) error {
	if !s.opts.Stealth {
		return nil
	}
	if err := page.Mouse().Move(x, y, playwright.MouseMoveOptions{
		Steps: playwright.Int(10),
	}); err != nil {
		return fmt.Errorf("failed to move mouse: %w", err)
	}
	page.WaitForTimeout(500)
	return nil
}
