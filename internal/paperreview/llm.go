package paperreview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/joelkehle/paper-review/internal/logging"
)

// TextGenerator is the only capability the pipeline needs from a language
// model backend: system instruction plus user prompt in, text out.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to TextGenerator.
type GeneratorFunc func(ctx context.Context, system, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

var errEmptyResponse = errors.New("empty response")

type llmFailureClass int

const (
	failureNone llmFailureClass = iota
	failureEmpty
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
	failureCanceled
)

func (c llmFailureClass) String() string {
	switch c {
	case failureNone:
		return "none"
	case failureEmpty:
		return "empty"
	case failureTimeout:
		return "timeout"
	case failureRateLimit:
		return "rate_limit"
	case failureServer:
		return "server"
	case failureClient:
		return "client"
	case failureCanceled:
		return "canceled"
	}
	return "unknown"
}

const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.2
)

type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

type AnthropicGenerator struct {
	messages AnthropicMessager
	cfg      AnthropicConfig
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if envEnabled("PAPER_REVIEW_NO_LLM") {
		return nil, errors.New("LLM backend disabled by PAPER_REVIEW_NO_LLM")
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &AnthropicGenerator{messages: newAnthropicClient(cfg.APIKey), cfg: cfg}, nil
}

func (a *AnthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.cfg.Model),
		MaxTokens:   a.cfg.MaxTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(a.cfg.Temperature),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

type ResilienceConfig struct {
	CallTimeout  time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
}

func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		CallTimeout:  90 * time.Second,
		MaxAttempts:  2,
		InitialDelay: time.Second,
	}
}

// ResilientGenerator bounds every call with a timeout and retries transient
// failures (timeouts, rate limits, server errors, empty output) up to
// MaxAttempts times with exponential backoff. Client errors fail at once.
type ResilientGenerator struct {
	inner   TextGenerator
	cfg     ResilienceConfig
	retrier retry.Retry[string]
	timer   timeout.Timeout[string]
	log     *slog.Logger
}

func NewResilientGenerator(inner TextGenerator, cfg ResilienceConfig) *ResilientGenerator {
	def := DefaultResilienceConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	return &ResilientGenerator{
		inner: inner,
		cfg:   cfg,
		retrier: retry.New[string](retry.Config{
			MaxAttempts:   cfg.MaxAttempts,
			InitialDelay:  cfg.InitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			IsRetryable:   isRetryable,
		}),
		timer: timeout.New[string](timeout.Config{
			DefaultTimeout: cfg.CallTimeout,
		}),
		log: logging.New("generator"),
	}
}

func (g *ResilientGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	attempt := 0
	out, err := g.retrier.Do(ctx, func(ctx context.Context) (string, error) {
		attempt++
		text, err := g.timer.Execute(ctx, g.cfg.CallTimeout, func(ctx context.Context) (string, error) {
			return g.inner.Generate(ctx, system, prompt)
		})
		if err != nil {
			g.log.Warn("generation attempt failed", "attempt", attempt, "class", classifyTransportError(err).String(), "error", err)
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			g.log.Warn("generation attempt returned no content", "attempt", attempt, "class", failureEmpty.String())
			return "", errEmptyResponse
		}
		return text, nil
	})
	if err != nil {
		return "", fmt.Errorf("after %d attempt(s): %w", attempt, err)
	}
	return out, nil
}

func isRetryable(err error) bool {
	switch classifyTransportError(err) {
	case failureTimeout, failureRateLimit, failureServer, failureEmpty:
		return true
	}
	return false
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func classifyTransportError(err error) llmFailureClass {
	if err == nil {
		return failureNone
	}
	if errors.Is(err, errEmptyResponse) {
		return failureEmpty
	}
	if errors.Is(err, context.Canceled) {
		return failureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline exceeded"):
		return failureTimeout
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "status=5") || strings.Contains(msg, "\": 5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, "status code: 4") || strings.Contains(msg, "status=4") || strings.Contains(msg, "\": 4"):
		return failureClient
	default:
		return failureServer
	}
}

// classifyStatus maps an API response status. 408 and 429 are transient
// despite being 4xx; 529 is the overloaded status.
func classifyStatus(code int) llmFailureClass {
	switch {
	case code == http.StatusRequestTimeout:
		return failureTimeout
	case code == http.StatusTooManyRequests:
		return failureRateLimit
	case code >= 500:
		return failureServer
	case code >= 400:
		return failureClient
	}
	return failureServer
}

// IsTimeout reports whether a generation failure was caused by a deadline.
func IsTimeout(err error) bool {
	return classifyTransportError(err) == failureTimeout
}

func envEnabled(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
