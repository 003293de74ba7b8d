package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/vitos/currency_rates/internal/domain"
	"github.com/vitos/currency_rates/internal/infrastructure/exchange"
	"github.com/vitos/currency_rates/internal/usecase"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port" env:"RATES_SERVER_PORT"`
	} `yaml:"server"`
	Logging struct {
		Level    string `yaml:"level" env:"RATES_LOG_LEVEL"`
		Encoding string `yaml:"encoding" env:"RATES_LOG_ENCODING"`
	} `yaml:"logging"`
	RateAPI struct {
		BaseURL     string        `yaml:"base_url" env:"RATES_API_BASE_URL"`
		HTTPTimeout time.Duration `yaml:"http_timeout" env:"RATES_API_HTTP_TIMEOUT"`
		// RefreshTimeout of zero keeps a refresh in flight until it settles.
		RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"RATES_API_REFRESH_TIMEOUT"`
	} `yaml:"rate_api"`
	Widget struct {
		FallbackRate       float64 `yaml:"fallback_rate" env:"RATES_FALLBACK_RATE"`
		Markup             float64 `yaml:"markup" env:"RATES_MARKUP"`
		SourceCountry      string  `yaml:"source_country" env:"RATES_SOURCE_COUNTRY"`
		DestinationCountry string  `yaml:"destination_country" env:"RATES_DESTINATION_COUNTRY"`
	} `yaml:"widget"`
	Scheduler struct {
		Threshold     float64       `yaml:"threshold" env:"RATES_CYCLE_THRESHOLD"`
		ProgressPerMs float64       `yaml:"progress_per_ms" env:"RATES_PROGRESS_PER_MS"`
		FrameInterval time.Duration `yaml:"frame_interval" env:"RATES_FRAME_INTERVAL"`
	} `yaml:"scheduler"`
	Storage struct {
		// Path of the sqlite refresh log; empty disables it.
		Path string `yaml:"path" env:"RATES_STORAGE_PATH"`
	} `yaml:"storage"`
	Lookup struct {
		Path string `yaml:"path" env:"RATES_LOOKUP_PATH"`
	} `yaml:"lookup"`
}

// Default returns the built-in configuration. Load starts from it, so a
// key set to zero in YAML or the environment stays zero.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Logging.Level = "info"
	cfg.Logging.Encoding = "json"
	cfg.RateAPI.BaseURL = exchange.DefaultBaseURL
	cfg.RateAPI.HTTPTimeout = 10 * time.Second
	cfg.Widget.FallbackRate = usecase.DefaultFallbackRate
	cfg.Widget.Markup = usecase.DefaultMarkup
	cfg.Widget.SourceCountry = "AU"
	cfg.Widget.DestinationCountry = "US"
	cfg.Scheduler.Threshold = usecase.DefaultRefreshCycleThreshold
	cfg.Scheduler.ProgressPerMs = usecase.DefaultProgressPerMilli
	cfg.Scheduler.FrameInterval = usecase.DefaultFrameInterval
	return &cfg
}

// Load reads an optional .env file, the YAML config at path (a missing
// file is fine) over the defaults, and finally RATES_* environment overrides.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer f.Close()
			decoder := yaml.NewDecoder(f)
			if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Widget.FallbackRate <= 0:
		return fmt.Errorf("widget.fallback_rate must be positive")
	case c.Widget.Markup < 0:
		return fmt.Errorf("widget.markup must not be negative")
	case c.Scheduler.Threshold <= 0 || c.Scheduler.Threshold >= 1:
		return fmt.Errorf("scheduler.threshold must be in (0, 1)")
	case c.Scheduler.ProgressPerMs <= 0:
		return fmt.Errorf("scheduler.progress_per_ms must be positive")
	case c.RateAPI.RefreshTimeout < 0:
		return fmt.Errorf("rate_api.refresh_timeout must not be negative")
	}
	return nil
}

func (c *Config) SessionConfig() usecase.SessionConfig {
	return usecase.SessionConfig{
		Widget: usecase.WidgetConfig{
			FallbackRate:       c.Widget.FallbackRate,
			Markup:             c.Widget.Markup,
			Threshold:          c.Scheduler.Threshold,
			ProgressPerMilli:   c.Scheduler.ProgressPerMs,
			SourceCountry:      domain.CountryCode(c.Widget.SourceCountry),
			DestinationCountry: domain.CountryCode(c.Widget.DestinationCountry),
		},
		FrameInterval:  c.Scheduler.FrameInterval,
		RefreshTimeout: c.RateAPI.RefreshTimeout,
	}
}
