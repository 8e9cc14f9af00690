package browser

import (
	"strings"

	"github.com/playwright-community/playwright-go"
)

// blockPhrases are matched against the lowercased page content.
var blockPhrases = []string{
	"access denied",
	"request blocked",
	"temporarily unavailable",
	"captcha",
	"are you human",
	"akamai",
	"cloudflare",
}

const cookieAcceptXPath = "xpath=//button[contains(., 'Aceptar') or contains(., 'Acepto') or " +
	"contains(., 'Aceptar todo') or contains(., 'Allow all')]"

// DetectBlock reports whether the page looks like a bot-defense response.
// Content that cannot be read counts as not blocked.
func (s *Session) DetectBlock(page playwright.Page) bool {
	content, err := page.Content()
	if err != nil {
		s.logger.Debug("could not read content for block check", "error", err)
		return false
	}
	return ContainsBlockPhrase(content)
}

func ContainsBlockPhrase(content string) bool {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	for _, phrase := range blockPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

// HandleCookieBanner clicks a visible consent button if there is one. A
// missing banner or a failed click is ignored.
func (s *Session) HandleCookieBanner(page playwright.Page) {
	button := page.Locator(cookieAcceptXPath).First()

	count, err := button.Count()
	if err != nil || count == 0 {
		return
	}
	visible, err := button.IsVisible()
	if err != nil || !visible {
		return
	}
	if err := button.Click(); err != nil {
		s.logger.Debug("cookie banner click failed", "error", err)
		return
	}
	page.WaitForTimeout(500)
}
