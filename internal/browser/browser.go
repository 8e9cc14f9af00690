package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Options struct {
	Browser                string
	Headless               bool
	SlowMo                 time.Duration
	NavigationTimeout      time.Duration
	SelectorTimeout        time.Duration
	UserAgent              string
	ViewportWidth          int
	ViewportHeight         int
	TimezoneID             string
	Locale                 string
	ProxyServer            string
	ExtraHeaders           map[string]string
	Stealth                bool
	DisableAutomationFlags bool
	BlockResources         bool
	PersistentDir          string
	DebugDir               string
	DumpHTML               bool
}

func DefaultOptions() *Options {
	return &Options{
		Browser:                "chromium",
		Headless:               true,
		NavigationTimeout:      45 * time.Second,
		SelectorTimeout:        20 * time.Second,
		UserAgent:              "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ViewportWidth:          1366,
		ViewportHeight:         768,
		TimezoneID:             "America/Mexico_City",
		Locale:                 "es-MX",
		Stealth:                true,
		DisableAutomationFlags: true,
		DebugDir:               "outputs/debug",
	}
}

// StartupError reports that the browser could not be brought up. It is the
// only fatal error of a run.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("browser startup failed (%s): %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Session owns one browser context for the lifetime of a run. It is not safe
// for concurrent use.
type Session struct {
	opts    *Options
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *slog.Logger
}

func NewSession(opts *Options) *Session {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Session{
		opts:   opts,
		logger: slog.Default().With("component", "browser"),
	}
}

// Start launches the driver and browser and prepares the shared context.
// Close must be called even when Start fails.
func (s *Session) Start() error {
	pw, err := playwright.Run()
	if err != nil {
		return &StartupError{Stage: "driver", Err: err}
	}
	s.pw = pw

	browserType, err := s.browserType()
	if err != nil {
		return &StartupError{Stage: "browser type", Err: err}
	}

	if s.opts.PersistentDir != "" {
		s.context, err = browserType.LaunchPersistentContext(s.opts.PersistentDir, s.persistentOptions())
		if err != nil {
			return &StartupError{Stage: "persistent context", Err: err}
		}
	} else {
		s.browser, err = browserType.Launch(s.launchOptions())
		if err != nil {
			return &StartupError{Stage: "launch", Err: err}
		}
		s.context, err = s.browser.NewContext(s.contextOptions())
		if err != nil {
			return &StartupError{Stage: "context", Err: err}
		}
	}

	if err := s.configureContext(); err != nil {
		return &StartupError{Stage: "configure", Err: err}
	}

	s.logger.Info("browser session started",
		"browser", s.opts.Browser,
		"headless", s.opts.Headless,
		"persistent", s.opts.PersistentDir != "",
		"stealth", s.opts.Stealth)
	return nil
}

func (s *Session) browserType() (playwright.BrowserType, error) {
	switch s.opts.Browser {
	case "", "chromium":
		return s.pw.Chromium, nil
	case "firefox":
		return s.pw.Firefox, nil
	case "webkit":
		return s.pw.WebKit, nil
	default:
		return nil, fmt.Errorf("unsupported browser %q", s.opts.Browser)
	}
}

func (s *Session) launchOptions() playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
		Args:     launchArgs(s.opts),
	}
	if s.opts.SlowMo > 0 {
		opts.SlowMo = playwright.Float(float64(s.opts.SlowMo.Milliseconds()))
	}
	if s.opts.ProxyServer != "" {
		opts.Proxy = &playwright.Proxy{Server: s.opts.ProxyServer}
	}
	return opts
}

func (s *Session) contextOptions() playwright.BrowserNewContextOptions {
	return playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(s.opts.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(s.opts.Locale),
		TimezoneId:        playwright.String(s.opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  s.opts.ViewportWidth,
			Height: s.opts.ViewportHeight,
		},
	}
}

func (s *Session) persistentOptions() playwright.BrowserTypeLaunchPersistentContextOptions {
	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(s.opts.Headless),
		Args:              launchArgs(s.opts),
		UserAgent:         playwright.String(s.opts.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(s.opts.Locale),
		TimezoneId:        playwright.String(s.opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  s.opts.ViewportWidth,
			Height: s.opts.ViewportHeight,
		},
	}
	if s.opts.SlowMo > 0 {
		opts.SlowMo = playwright.Float(float64(s.opts.SlowMo.Milliseconds()))
	}
	if s.opts.ProxyServer != "" {
		opts.Proxy = &playwright.Proxy{Server: s.opts.ProxyServer}
	}
	return opts
}

func (s *Session) configureContext() error {
	s.context.SetDefaultTimeout(float64(s.opts.SelectorTimeout.Milliseconds()))
	s.context.SetDefaultNavigationTimeout(float64(s.opts.NavigationTimeout.Milliseconds()))

	if err := s.context.SetExtraHTTPHeaders(requestHeaders(s.opts.Locale, s.opts.ExtraHeaders)); err != nil {
		return fmt.Errorf("failed to set extra headers: %w", err)
	}

	if s.opts.Stealth {
		if err := s.context.AddInitScript(playwright.Script{Content: playwright.String(stealthScript(s.opts.Locale))}); err != nil {
			return fmt.Errorf("failed to add stealth script: %w", err)
		}
	}

	if s.opts.BlockResources {
		if err := s.context.Route("**/*", blockHeavyResources); err != nil {
			return fmt.Errorf("failed to install resource filter: %w", err)
		}
	}
	return nil
}

func (s *Session) NewPage() (playwright.Page, error) {
	if s.context == nil {
		return nil, errors.New("browser context not initialized")
	}
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	return page, nil
}

// Close releases whatever Start managed to acquire. It is safe to call on a
// session that never started.
func (s *Session) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
		s.context = nil
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		s.browser = nil
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		s.pw = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %w", errors.Join(errs...))
	}

	return nil
}
