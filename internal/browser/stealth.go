package browser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"
)

var automationFlags = []string{
	"--disable-blink-features=AutomationControlled",
	"--disable-infobars",
}

// launchArgs only returns flags for chromium; the other engines reject them.
func launchArgs(opts *Options) []string {
	if !opts.DisableAutomationFlags {
		return nil
	}
	if opts.Browser != "" && opts.Browser != "chromium" {
		return nil
	}
	return append([]string(nil), automationFlags...)
}

// stealthScript runs before any page script. It hides the webdriver marker
// and fakes the plugin and language lists of a regular desktop browser.
func stealthScript(locale string) string {
	languages, _ := json.Marshal(navigatorLanguages(locale))
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'languages', { get: () => %s });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
`, languages)
}

func navigatorLanguages(locale string) []string {
	langs := make([]string, 0, 4)
	add := func(l string) {
		for _, existing := range langs {
			if existing == l {
				return
			}
		}
		langs = append(langs, l)
	}
	if locale != "" {
		add(locale)
		if base, _, ok := strings.Cut(locale, "-"); ok {
			add(base)
		}
	}
	add("en-US")
	add("en")
	return langs
}

// requestHeaders merges caller headers over the locale header.
func requestHeaders(locale string, extra map[string]string) map[string]string {
	headers := map[string]string{"Accept-Language": locale}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

// ParseExtraHeaders decodes a JSON object of header values. Invalid input is
// logged and ignored.
func ParseExtraHeaders(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		slog.Info("invalid extra headers JSON, ignoring", "error", err)
		return map[string]string{}
	}

	headers := make(map[string]string, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case string:
			headers[k] = t
		default:
			b, _ := json.Marshal(t)
			headers[k] = string(b)
		}
	}
	return headers
}

var blockedResourceTypes = map[string]bool{
	"image": true,
	"media": true,
	"font":  true,
}

func blockHeavyResources(route playwright.Route) {
	if blockedResourceTypes[route.Request().ResourceType()] {
		_ = route.Abort()
		return
	}
	_ = route.Continue()
}
