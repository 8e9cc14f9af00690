package browser

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

// DebugKey hashes a logical key (URL, or URL plus page index) into a stable
// file name component.
func DebugKey(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// TakeDebug stores the page HTML and/or a full-page screenshot under the
// debug directory.
func (s *Session) TakeDebug(page playwright.Page, key string, saveHTML, saveScreenshot bool) error {
	if !saveHTML && !saveScreenshot {
		return nil
	}
	if err := os.MkdirAll(s.opts.DebugDir, 0o755); err != nil {
		return fmt.Errorf("failed to create debug dir: %w", err)
	}

	digest := DebugKey(key)
	if saveHTML {
		if err := s.writeContent(page, filepath.Join(s.opts.DebugDir, "html_"+digest+".html")); err != nil {
			return err
		}
	}
	if saveScreenshot {
		path := filepath.Join(s.opts.DebugDir, "shot_"+digest+".png")
		if _, err := page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(path),
			FullPage: playwright.Bool(true),
		}); err != nil {
			return fmt.Errorf("failed to take screenshot: %w", err)
		}
	}
	s.logger.Debug("debug artifacts saved", "key", key, "digest", digest)
	return nil
}

// DumpHTML keeps the raw HTML of a successfully opened page when dumping is
// enabled.
func (s *Session) DumpHTML(page playwright.Page, key string) error {
	if !s.opts.DumpHTML {
		return nil
	}
	if err := os.MkdirAll(s.opts.DebugDir, 0o755); err != nil {
		return fmt.Errorf("failed to create debug dir: %w", err)
	}
	return s.writeContent(page, filepath.Join(s.opts.DebugDir, "dump_"+DebugKey(key)+".html"))
}

func (s *Session) writeContent(page playwright.Page, path string) error {
	content, err := page.Content()
	if err != nil {
		return fmt.Errorf("failed to read page content: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
