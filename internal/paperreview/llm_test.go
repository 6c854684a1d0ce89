package paperreview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type mockMessager struct {
	response *anthropic.Message
	err      error
	params   anthropic.MessageNewParams
}

func (m *mockMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.params = params
	return m.response, m.err
}

func withMockClient(mock *mockMessager) func() {
	old := newAnthropicClient
	newAnthropicClient = func(_ string) AnthropicMessager { return mock }
	return func() { newAnthropicClient = old }
}

func TestAnthropicGeneratorConcatenatesTextBlocks(t *testing.T) {
	mock := &mockMessager{response: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "SUMMARY:\n"},
			{Type: "text", Text: "A section."},
		},
	}}
	defer withMockClient(mock)()

	gen, err := NewAnthropicGenerator(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicGenerator: %v", err)
	}
	out, err := gen.Generate(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "SUMMARY:\nA section." {
		t.Fatalf("unexpected output %q", out)
	}
	if len(mock.params.System) != 1 || mock.params.System[0].Text != "system text" {
		t.Fatalf("system instruction not forwarded: %+v", mock.params.System)
	}
	if string(mock.params.Model) != DefaultModel {
		t.Fatalf("model = %s, want %s", mock.params.Model, DefaultModel)
	}
	if mock.params.MaxTokens != DefaultMaxTokens {
		t.Fatalf("max tokens = %d", mock.params.MaxTokens)
	}
}

func TestNewAnthropicGeneratorRequiresKey(t *testing.T) {
	if _, err := NewAnthropicGenerator(AnthropicConfig{APIKey: "  "}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestNewAnthropicGeneratorDisabled(t *testing.T) {
	t.Setenv("PAPER_REVIEW_NO_LLM", "1")
	if _, err := NewAnthropicGenerator(AnthropicConfig{APIKey: "ignored"}); err == nil {
		t.Fatal("expected error when PAPER_REVIEW_NO_LLM is enabled")
	}
}

func TestResilientGeneratorRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	inner := GeneratorFunc(func(ctx context.Context, system, prompt string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("status code: 503 overloaded")
		}
		return " ok ", nil
	})
	gen := NewResilientGenerator(inner, ResilienceConfig{CallTimeout: time.Second, MaxAttempts: 2, InitialDelay: time.Millisecond})
	out, err := gen.Generate(context.Background(), "s", "p")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != " ok " {
		t.Fatalf("output should be passed through untouched, got %q", out)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func apiError(status int) *anthropic.Error {
	req, _ := http.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil)
	return &anthropic.Error{
		StatusCode: status,
		Request:    req,
		Response:   &http.Response{StatusCode: status},
	}
}

func TestResilientGeneratorDoesNotRetryClientErrors(t *testing.T) {
	for _, tc := range []struct {
		status    int
		wantCalls int32
	}{
		{http.StatusUnauthorized, 1},
		{http.StatusBadRequest, 1},
		{http.StatusTooManyRequests, 3},
		{529, 3},
		{http.StatusInternalServerError, 3},
	} {
		var calls atomic.Int32
		inner := GeneratorFunc(func(ctx context.Context, system, prompt string) (string, error) {
			calls.Add(1)
			return "", fmt.Errorf("messages.new: %w", apiError(tc.status))
		})
		gen := NewResilientGenerator(inner, ResilienceConfig{CallTimeout: time.Second, MaxAttempts: 3, InitialDelay: time.Millisecond})
		if _, err := gen.Generate(context.Background(), "s", "p"); err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := calls.Load(); got != tc.wantCalls {
			t.Fatalf("status %d: expected %d calls, got %d", tc.status, tc.wantCalls, got)
		}
	}
}

func TestResilientGeneratorDoesNotRetryCancellation(t *testing.T) {
	var calls atomic.Int32
	inner := GeneratorFunc(func(ctx context.Context, system, prompt string) (string, error) {
		calls.Add(1)
		return "", context.Canceled
	})
	gen := NewResilientGenerator(inner, ResilienceConfig{CallTimeout: time.Second, MaxAttempts: 3, InitialDelay: time.Millisecond})
	if _, err := gen.Generate(context.Background(), "s", "p"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestResilientGeneratorBoundsAttempts(t *testing.T) {
	var calls atomic.Int32
	inner := GeneratorFunc(func(ctx context.Context, system, prompt string) (string, error) {
		calls.Add(1)
		return "", nil
	})
	gen := NewResilientGenerator(inner, ResilienceConfig{CallTimeout: time.Second, MaxAttempts: 2, InitialDelay: time.Millisecond})
	if _, err := gen.Generate(context.Background(), "s", "p"); err == nil {
		t.Fatal("expected error for empty responses")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestResilientGeneratorTimesOut(t *testing.T) {
	inner := GeneratorFunc(func(ctx context.Context, system, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	gen := NewResilientGenerator(inner, ResilienceConfig{CallTimeout: 20 * time.Millisecond, MaxAttempts: 1, InitialDelay: time.Millisecond})
	started := time.Now()
	_, err := gen.Generate(context.Background(), "s", "p")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(started) > 2*time.Second {
		t.Fatalf("call was not bounded: %s", time.Since(started))
	}
}

func TestStripCodeFences(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	if got := stripCodeFences(in); got != "{\"a\":1}" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := stripCodeFences("  {\"a\":1} "); got != "{\"a\":1}" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestClassifyTransportError(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want llmFailureClass
	}{
		{nil, failureNone},
		{errEmptyResponse, failureEmpty},
		{context.DeadlineExceeded, failureTimeout},
		{context.Canceled, failureCanceled},
		{assertErr("failed after 5 retries while waiting 4 seconds"), failureServer},
		{assertErr("status code: 400 bad request"), failureClient},
		{assertErr("status=500 upstream error"), failureServer},
		{assertErr("POST /v1/messages: 429 Too Many Requests"), failureRateLimit},
		{assertErr("request timed out"), failureTimeout},
		{assertErr(`POST "https://api.anthropic.com/v1/messages": 401 Unauthorized {"type":"error"}`), failureClient},
		{assertErr(`POST "https://api.anthropic.com/v1/messages": 503 Service Unavailable`), failureServer},
		{apiError(http.StatusUnauthorized), failureClient},
		{apiError(http.StatusNotFound), failureClient},
		{apiError(http.StatusRequestTimeout), failureTimeout},
		{apiError(http.StatusTooManyRequests), failureRateLimit},
		{apiError(529), failureServer},
		{fmt.Errorf("wrapped: %w", apiError(http.StatusForbidden)), failureClient},
	} {
		if got := classifyTransportError(tc.err); got != tc.want {
			t.Fatalf("classifyTransportError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestEnvEnabled(t *testing.T) {
	for _, tc := range []struct {
		value string
		want  bool
	}{
		{value: "", want: false},
		{value: "0", want: false},
		{value: "false", want: false},
		{value: "1", want: true},
		{value: "TRUE", want: true},
		{value: "yes", want: true},
		{value: "on", want: true},
	} {
		if tc.value == "" {
			_ = os.Unsetenv("X_FLAG")
		} else {
			t.Setenv("X_FLAG", tc.value)
		}
		if got := envEnabled("X_FLAG"); got != tc.want {
			t.Fatalf("envEnabled(%q) got %v, want %v", tc.value, got, tc.want)
		}
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
