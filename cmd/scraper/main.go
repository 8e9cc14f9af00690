package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/storefront-scraper/internal/browser"
	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/database"
	"github.com/maltedev/storefront-scraper/internal/events"
	"github.com/maltedev/storefront-scraper/internal/mailer"
	"github.com/maltedev/storefront-scraper/internal/metrics"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/parser"
	"github.com/maltedev/storefront-scraper/internal/ratelimit"
	"github.com/maltedev/storefront-scraper/internal/scraper"
	"github.com/maltedev/storefront-scraper/internal/server"
	"github.com/maltedev/storefront-scraper/internal/storage"
	"github.com/maltedev/storefront-scraper/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		mode     = flag.String("mode", "", "Run mode: pdp or plp (overrides MODE)")
		urlsFile = flag.String("urls", "", "File with detail page URLs, one per line (overrides URLS_FILE)")
		plpURL   = flag.String("plp-url", "", "Listing URL to walk (overrides PLP_URL)")
		headless = flag.Bool("headless", true, "Run browser in headless mode (overrides HEADLESS)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, *mode, *urlsFile, *plpURL, *headless)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DebugDir(), 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if cfg.Browser.PersistentContext {
		if err := os.MkdirAll(cfg.Browser.PersistentContextDir, 0o755); err != nil {
			log.Fatalf("Failed to create profile directory: %v", err)
		}
	}

	lg, closeLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.LogPath())
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer closeLog()
	slog.SetDefault(lg)

	runID := uuid.NewString()
	lg.Info("Starting storefront scraper",
		"run_id", runID,
		"mode", cfg.Mode,
		"max_urls", cfg.MaxURLs,
		"max_pages", cfg.MaxPages,
		"headless", cfg.Browser.Headless,
		"retries", cfg.MaxRetriesPerURL,
		"stealth", cfg.Browser.EnableStealth,
		"persistent", cfg.Browser.PersistentContext,
		"browser", cfg.Browser.Name,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		lg.Info("Shutdown signal received")
		cancel()
	}()

	var urls []string
	if cfg.Mode == config.ModePDP {
		urls, err = storage.ReadURLs(cfg.URLsFile, cfg.MaxURLs)
		if err != nil {
			lg.Error("Failed to read URLs file", "path", cfg.URLsFile, "error", err)
		}
		lg.Info("Loaded URLs", "count", len(urls))
	} else {
		lg.Info("Listing URL", "url", cfg.PLPURL)
	}

	m := metrics.New()
	sinks, closeSinks := setupSinks(ctx, cfg, runID)
	defer closeSinks()

	session := browser.NewSession(browserOptions(cfg))
	defer func() {
		if err := session.Close(); err != nil {
			lg.Warn("Failed to close browser", "error", err)
		}
	}()
	if err := session.Start(); err != nil {
		lg.Error("Failed to start browser", "error", err)
		return 1
	}
	session.Warmup(cfg.WarmupURL)

	minSleep, maxSleep := cfg.SleepRange()
	runner := scraper.NewRunner(session, browser.NewPaginator(cfg.SelectorTimeout()), parser.NewStorefrontParser(), scraper.Options{
		RunID:          runID,
		MaxRetries:     cfg.MaxRetriesPerURL,
		RetryOnBlock:   cfg.RetryOnBlock,
		MaxPages:       cfg.MaxPages,
		MaxRuntime:     cfg.MaxRuntime(),
		SaveHTML:       cfg.Debug.SaveHTML,
		SaveScreenshot: cfg.Debug.SaveScreenshot,
		Pacer:          ratelimit.NewRandomPacer(minSleep, maxSleep),
		Metrics:        m,
		Sinks:          sinks.rows,
	})

	if cfg.Server.Addr != "" {
		srv := server.New(cfg.Server.Addr, runner, m.Registry)
		go func() {
			if err := srv.Start(ctx); err != nil {
				lg.Error("Status server failed", "error", err)
			}
		}()
	}

	var rows []*models.ResultRow
	switch cfg.Mode {
	case config.ModePDP:
		rows = runner.RunPDP(ctx, urls)
	case config.ModePLP:
		rows = runner.RunPLP(ctx, cfg.PLPURL)
	}

	if err := session.Close(); err != nil {
		lg.Warn("Failed to close browser", "error", err)
	}

	summary := models.Summarize(rows)
	sinks.finish(context.Background(), runID, summary)
	writeOutputs(cfg, runID, rows, summary)

	code := scraper.ExitCode(rows)
	lg.Info("Scraping completed", "rows", len(rows), "exit_code", code)
	return code
}

func applyFlags(cfg *config.Config, mode, urlsFile, plpURL string, headless bool) {
	if mode != "" {
		cfg.Mode = mode
	}
	if urlsFile != "" {
		cfg.URLsFile = urlsFile
	}
	if plpURL != "" {
		cfg.PLPURL = plpURL
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			cfg.Browser.Headless = headless
		}
	})
}

func browserOptions(cfg *config.Config) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Browser = cfg.Browser.Name
	opts.Headless = cfg.Browser.Headless
	opts.SlowMo = cfg.SlowMo()
	opts.NavigationTimeout = cfg.NavTimeout()
	opts.SelectorTimeout = cfg.SelectorTimeout()
	opts.UserAgent = cfg.Browser.UserAgent
	opts.TimezoneID = cfg.Browser.Timezone
	opts.Locale = cfg.Browser.Locale
	opts.ProxyServer = cfg.Browser.ProxyServer
	opts.ExtraHeaders = browser.ParseExtraHeaders(cfg.Browser.ExtraHeadersJSON)
	opts.Stealth = cfg.Browser.EnableStealth
	opts.DisableAutomationFlags = cfg.Browser.DisableAutomationFlags
	opts.BlockResources = cfg.Browser.BlockImages
	if cfg.Browser.PersistentContext {
		opts.PersistentDir = cfg.Browser.PersistentContextDir
	}
	opts.DebugDir = cfg.DebugDir()
	opts.DumpHTML = cfg.Debug.DumpHTML
	return opts
}

// runSinks holds the optional row consumers of a run.
type runSinks struct {
	rows      []scraper.RowSink
	store     *database.ResultStore
	publisher *events.Publisher
}

func (s *runSinks) finish(ctx context.Context, runID string, summary models.Summary) {
	if s.store != nil {
		if err := s.store.FinishRun(ctx, runID, summary); err != nil {
			slog.Error("Failed to store run summary", "error", err)
		}
		stored, err := s.store.CountByStatus(ctx, runID)
		if err != nil {
			slog.Error("Failed to count stored rows", "error", err)
		} else if total := storedTotal(stored); total != summary.Total() {
			slog.Warn("Stored rows differ from emitted rows", "stored", total, "emitted", summary.Total())
		} else {
			slog.Info("Stored run rows", "counts", stored)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSummary(ctx, runID, summary); err != nil {
			slog.Error("Failed to publish run summary", "error", err)
		}
	}
}

func storedTotal(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// setupSinks connects the database and the event stream when configured.
// Either one failing to connect is logged and the run continues without it.
func setupSinks(ctx context.Context, cfg *config.Config, runID string) (*runSinks, func()) {
	sinks := &runSinks{}
	var closers []func()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.Database.URL != "" {
		db, err := database.New(connectCtx, database.Config{URL: cfg.Database.URL, MaxConns: 4})
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
		} else {
			store := database.NewResultStore(db)
			if err := store.EnsureSchema(connectCtx); err != nil {
				slog.Error("Failed to prepare database schema", "error", err)
				db.Close()
			} else if err := store.StartRun(connectCtx, runID, models.Mode(cfg.Mode)); err != nil {
				slog.Error("Failed to register run", "error", err)
				db.Close()
			} else {
				sinks.store = store
				sinks.rows = append(sinks.rows, store)
				closers = append(closers, db.Close)
			}
		}
	}

	if cfg.Redis.Addr != "" {
		client, err := events.NewRedisClient(connectCtx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
		} else {
			publisher := events.NewPublisher(client, events.Config{Stream: cfg.Redis.Stream})
			sinks.publisher = publisher
			sinks.rows = append(sinks.rows, publisher)
			closers = append(closers, func() { publisher.Close() })
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

// writeOutputs writes the result files and mails them. Every failure is
// logged; none changes the exit code.
func writeOutputs(cfg *config.Config, runID string, rows []*models.ResultRow, summary models.Summary) {
	resultsCSV := filepath.Join(cfg.OutputDir, "results.csv")
	resultsXLSX := filepath.Join(cfg.OutputDir, "results.xlsx")
	summaryPath := filepath.Join(cfg.OutputDir, "summary.json")

	if err := storage.WriteCSV(resultsCSV, rows); err != nil {
		slog.Error("Failed to write CSV", "path", resultsCSV, "error", err)
	}
	if err := storage.WriteXLSX(resultsXLSX, rows); err != nil {
		slog.Error("Failed to write XLSX", "path", resultsXLSX, "error", err)
	}
	if err := storage.WriteSummary(summaryPath, runID, summary); err != nil {
		slog.Error("Failed to write summary", "path", summaryPath, "error", err)
	}
	slog.Info("Saved results", "path", resultsCSV)

	body, err := json.MarshalIndent(map[string]interface{}{
		"run_id":     runID,
		"total_rows": len(rows),
		"summary":    summary,
	}, "", "  ")
	if err != nil {
		slog.Error("Failed to render email body", "error", err)
		return
	}

	m := mailer.New(mailer.Config{
		Sender:   cfg.Email.Sender,
		Password: cfg.Email.Password,
		To:       cfg.Email.To,
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
	})
	attachments := []string{resultsXLSX, resultsCSV, cfg.LogPath(), summaryPath}
	if err := m.SendReport(context.Background(), cfg.Email.Subject, string(body), attachments); err != nil {
		slog.Error("Failed to send report", "error", err)
	}
}
