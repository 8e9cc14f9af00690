package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	ModePDP = "pdp"
	ModePLP = "plp"
)

type Config struct {
	Mode             string  `env:"MODE" envDefault:"pdp" validate:"oneof=pdp plp"`
	PLPURL           string  `env:"PLP_URL" validate:"omitempty,url"`
	URLsFile         string  `env:"URLS_FILE" envDefault:"urls.txt"`
	MaxURLs          int     `env:"MAX_URLS" envDefault:"0" validate:"gte=0"`
	MaxPages         int     `env:"MAX_PAGES" envDefault:"50" validate:"gte=1"`
	MaxRetriesPerURL int     `env:"MAX_RETRIES_PER_URL" envDefault:"3" validate:"gte=1"`
	RetryOnBlock     bool    `env:"RETRY_ON_BLOCK" envDefault:"false"`
	MinSleepSec      float64 `env:"MIN_SLEEP_SEC" envDefault:"1.5" validate:"gte=0"`
	MaxSleepSec      float64 `env:"MAX_SLEEP_SEC" envDefault:"3.5" validate:"gte=0"`
	MaxRuntimeSec    int     `env:"MAX_RUNTIME_SEC" envDefault:"0"`
	OutputDir        string  `env:"OUTPUT_DIR" envDefault:"outputs" validate:"required"`
	WarmupURL        string  `env:"WARMUP_URL" envDefault:"https://www.coppel.com/" validate:"omitempty,url"`

	Browser  BrowserConfig
	Debug    DebugConfig
	Email    EmailConfig `envPrefix:"EMAIL_"`
	SMTP     SMTPConfig  `envPrefix:"SMTP_"`
	Database DatabaseConfig
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Server   ServerConfig
	Logging  LoggingConfig `envPrefix:"LOG_"`
}

type BrowserConfig struct {
	Name                   string `env:"BROWSER" envDefault:"chromium" validate:"oneof=chromium firefox webkit"`
	Headless               bool   `env:"HEADLESS" envDefault:"true"`
	SlowMoMS               int    `env:"SLOW_MO_MS" envDefault:"0" validate:"gte=0"`
	UserAgent              string `env:"USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"`
	Locale                 string `env:"LOCALE" envDefault:"es-MX" validate:"required"`
	Timezone               string `env:"TIMEZONE" envDefault:"America/Mexico_City" validate:"required"`
	NavTimeoutMS           int    `env:"NAV_TIMEOUT_MS" envDefault:"45000" validate:"gt=0"`
	WaitSelectorMS         int    `env:"WAIT_SELECTOR_MS" envDefault:"20000" validate:"gt=0"`
	BlockImages            bool   `env:"BLOCK_IMAGES" envDefault:"false"`
	EnableStealth          bool   `env:"ENABLE_STEALTH" envDefault:"true"`
	DisableAutomationFlags bool   `env:"DISABLE_AUTOMATION_FLAGS" envDefault:"true"`
	PersistentContext      bool   `env:"PERSISTENT_CONTEXT" envDefault:"false"`
	PersistentContextDir   string `env:"PERSISTENT_CONTEXT_DIR" envDefault:"outputs/session"`
	ExtraHeadersJSON       string `env:"EXTRA_HEADERS_JSON"`
	ProxyServer            string `env:"PROXY_SERVER"`
}

type DebugConfig struct {
	SaveHTML       bool `env:"DEBUG_SAVE_HTML" envDefault:"true"`
	SaveScreenshot bool `env:"DEBUG_SAVE_SCREENSHOT" envDefault:"true"`
	DumpHTML       bool `env:"DUMP_HTML" envDefault:"false"`
}

type EmailConfig struct {
	Sender   string `env:"SENDER"`
	Password string `env:"PASSWORD"`
	To       string `env:"TO"`
	Subject  string `env:"SUBJECT" envDefault:"Coppel scraping report"`
}

type SMTPConfig struct {
	Host string `env:"HOST" envDefault:"smtp.gmail.com"`
	Port int    `env:"PORT" envDefault:"587" validate:"gt=0,lte=65535"`
}

type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	Stream   string `env:"STREAM" envDefault:"scrape:results"`
}

type ServerConfig struct {
	Addr string `env:"HTTP_ADDR"`
}

type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `env:"FORMAT" envDefault:"text" validate:"oneof=text json"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(true): parseBool,
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Browser.Name = strings.ToLower(strings.TrimSpace(c.Browser.Name))
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.PLPURL = strings.TrimSpace(c.PLPURL)
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Mode == ModePLP && c.PLPURL == "" {
		return errors.New("PLP_URL is required for PLP mode")
	}

	if c.Mode == ModePDP && c.URLsFile == "" {
		return errors.New("URLS_FILE is required for PDP mode")
	}

	if c.MinSleepSec > c.MaxSleepSec {
		return errors.New("MIN_SLEEP_SEC cannot be greater than MAX_SLEEP_SEC")
	}

	if c.Browser.PersistentContext && c.Browser.PersistentContextDir == "" {
		return errors.New("PERSISTENT_CONTEXT_DIR is required when PERSISTENT_CONTEXT is enabled")
	}

	return nil
}

func (c *Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutMS) * time.Millisecond
}

func (c *Config) SelectorTimeout() time.Duration {
	return time.Duration(c.Browser.WaitSelectorMS) * time.Millisecond
}

func (c *Config) SlowMo() time.Duration {
	return time.Duration(c.Browser.SlowMoMS) * time.Millisecond
}

func (c *Config) SleepRange() (time.Duration, time.Duration) {
	return seconds(c.MinSleepSec), seconds(c.MaxSleepSec)
}

// MaxRuntime is zero when the run has no time limit.
func (c *Config) MaxRuntime() time.Duration {
	if c.MaxRuntimeSec <= 0 {
		return 0
	}
	return time.Duration(c.MaxRuntimeSec) * time.Second
}

func (c *Config) DebugDir() string {
	return filepath.Join(c.OutputDir, "debug")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.OutputDir, "run.log")
}

// parseBool accepts the usual yes/no spellings; anything unrecognised is false.
func parseBool(v string) (interface{}, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	default:
		return false, nil
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
