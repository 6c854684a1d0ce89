package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joelkehle/paper-review/internal/paperreview"
)

const (
	ReplayOff    = "off"
	ReplayRecord = "record"
	ReplayServe  = "replay"
)

type ReplayConfig struct {
	Path string `yaml:"path"`
	Mode string `yaml:"mode"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	APIKey                string        `yaml:"api_key"`
	Model                 string        `yaml:"model"`
	Temperature           float64       `yaml:"temperature"`
	MaxTokens             int64         `yaml:"max_tokens"`
	CallTimeout           time.Duration `yaml:"call_timeout"`
	MaxSectionConcurrency int           `yaml:"max_section_concurrency"`
	MaxAttempts           int           `yaml:"max_attempts"`
	RetryDelay            time.Duration `yaml:"retry_delay"`
	SchemaAttempts        int           `yaml:"schema_attempts"`
	ListenAddr            string        `yaml:"listen_addr"`
	MaxUploadBytes        int64         `yaml:"max_upload_bytes"`
	OTLPEndpoint          string        `yaml:"otlp_endpoint"`
	ChromePath            string        `yaml:"chrome_path"`
	Replay                ReplayConfig  `yaml:"replay"`
	Log                   LogConfig     `yaml:"log"`
}

func Default() Config {
	return Config{
		Model:                 paperreview.DefaultModel,
		Temperature:           paperreview.DefaultTemperature,
		MaxTokens:             paperreview.DefaultMaxTokens,
		CallTimeout:           90 * time.Second,
		MaxSectionConcurrency: paperreview.DefaultMaxSectionConcurrency,
		MaxAttempts:           2,
		RetryDelay:            time.Second,
		SchemaAttempts:        paperreview.DefaultSchemaAttempts,
		ListenAddr:            ":8000",
		MaxUploadBytes:        20 << 20,
		Replay:                ReplayConfig{Mode: ReplayOff},
		Log:                   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads defaults, then the YAML file at path (if any), then environment
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("ANTHROPIC_API_KEY", &c.APIKey)
	str("PAPER_REVIEW_MODEL", &c.Model)
	str("PAPER_REVIEW_ADDR", &c.ListenAddr)
	str("PAPER_REVIEW_REPLAY_DB", &c.Replay.Path)
	str("PAPER_REVIEW_REPLAY_MODE", &c.Replay.Mode)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTLPEndpoint)
	str("PAPER_REVIEW_CHROME", &c.ChromePath)
	str("PAPER_REVIEW_LOG_LEVEL", &c.Log.Level)

	var errs []error
	if v := strings.TrimSpace(os.Getenv("PAPER_REVIEW_TEMPERATURE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PAPER_REVIEW_TEMPERATURE: %w", err))
		} else {
			c.Temperature = f
		}
	}
	intEnv := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	durEnv := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	intEnv("PAPER_REVIEW_MAX_CONCURRENCY", &c.MaxSectionConcurrency)
	intEnv("PAPER_REVIEW_MAX_ATTEMPTS", &c.MaxAttempts)
	durEnv("PAPER_REVIEW_CALL_TIMEOUT", &c.CallTimeout)
	durEnv("PAPER_REVIEW_RETRY_DELAY", &c.RetryDelay)
	if v := strings.TrimSpace(os.Getenv("PAPER_REVIEW_MAX_TOKENS")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PAPER_REVIEW_MAX_TOKENS: %w", err))
		} else {
			c.MaxTokens = n
		}
	}
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	if c.CallTimeout <= 0 {
		errs = append(errs, errors.New("call_timeout must be positive"))
	}
	if c.MaxSectionConcurrency <= 0 {
		errs = append(errs, errors.New("max_section_concurrency must be positive"))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max_attempts must be positive"))
	}
	if c.SchemaAttempts <= 0 || c.SchemaAttempts > paperreview.MaxSchemaAttempts {
		errs = append(errs, fmt.Errorf("schema_attempts must be between 1 and %d", paperreview.MaxSchemaAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, errors.New("retry_delay must not be negative"))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.New("max_tokens must be positive"))
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		errs = append(errs, errors.New("temperature must be within [0,1]"))
	}
	switch c.Replay.Mode {
	case "", ReplayOff:
	case ReplayRecord, ReplayServe:
		if strings.TrimSpace(c.Replay.Path) == "" {
			errs = append(errs, fmt.Errorf("replay mode %q requires replay.path", c.Replay.Mode))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown replay mode %q", c.Replay.Mode))
	}
	return errors.Join(errs...)
}

func (c Config) AnthropicConfig() paperreview.AnthropicConfig {
	return paperreview.AnthropicConfig{
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
}

func (c Config) ResilienceConfig() paperreview.ResilienceConfig {
	return paperreview.ResilienceConfig{
		CallTimeout:  c.CallTimeout,
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.RetryDelay,
	}
}

func (c Config) PipelineConfig() paperreview.PipelineConfig {
	return paperreview.PipelineConfig{
		MaxSectionConcurrency: c.MaxSectionConcurrency,
		SchemaAttempts:        c.SchemaAttempts,
	}
}

// ReplayEnabled reports whether generation calls go through the replay store.
func (c Config) ReplayEnabled() bool {
	return c.Replay.Mode == ReplayRecord || c.Replay.Mode == ReplayServe
}
