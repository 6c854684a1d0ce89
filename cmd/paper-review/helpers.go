package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/paper-review/internal/config"
	"github.com/joelkehle/paper-review/internal/logging"
	"github.com/joelkehle/paper-review/internal/paperreview"
	"github.com/joelkehle/paper-review/internal/replay"
	"github.com/joelkehle/paper-review/internal/telemetry"
)

var setupTracing = telemetry.Setup

// startTracing installs the tracer provider for c.OTLPEndpoint. The returned
// stop function flushes pending spans.
func startTracing(ctx context.Context, c config.Config) (trace.TracerProvider, func(), error) {
	tp, shutdown, err := setupTracing(ctx, c.OTLPEndpoint, version)
	if err != nil {
		return nil, func() {}, err
	}
	return tp, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logging.New("telemetry").Warn("tracer shutdown failed", "error", err)
		}
	}, nil
}

// buildGenerator assembles the generation chain for c: the Anthropic backend
// behind the timeout/retry wrapper, optionally fronted by the replay store.
// The returned close function releases the replay store.
func buildGenerator(c config.Config) (paperreview.TextGenerator, func() error, error) {
	noop := func() error { return nil }

	var mode replay.Mode
	if c.ReplayEnabled() {
		var err error
		if mode, err = replay.ParseMode(c.Replay.Mode); err != nil {
			return nil, noop, err
		}
	}

	var live paperreview.TextGenerator
	if mode != replay.ModeReplay {
		anthropicGen, err := paperreview.NewAnthropicGenerator(c.AnthropicConfig())
		if err != nil {
			return nil, noop, err
		}
		live = paperreview.NewResilientGenerator(anthropicGen, c.ResilienceConfig())
	}
	if mode == "" {
		return live, noop, nil
	}

	store, err := replay.Open(c.Replay.Path)
	if err != nil {
		return nil, noop, fmt.Errorf("open replay store: %w", err)
	}
	gen, err := replay.NewGenerator(live, store, mode, c.Model)
	if err != nil {
		return nil, noop, errors.Join(err, store.Close())
	}
	logging.New("replay").Info("replay store attached", "path", c.Replay.Path, "mode", string(mode))
	return gen, store.Close, nil
}

func newPipeline(c config.Config, gen paperreview.TextGenerator, tp trace.TracerProvider) *paperreview.Pipeline {
	pc := c.PipelineConfig()
	pc.TracerProvider = tp
	return paperreview.NewPipeline(gen, pc)
}
