package paperreview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/paper-review/internal/logging"
)

const (
	DefaultMaxSectionConcurrency = 3
	tracerName                   = "github.com/joelkehle/paper-review/internal/paperreview"
)

type PipelineConfig struct {
	MaxSectionConcurrency int
	SchemaAttempts        int
	TracerProvider        trace.TracerProvider
}

type Pipeline struct {
	gen     TextGenerator
	cfg     PipelineConfig
	segment func(string) SectionMap
	tracer  trace.Tracer
	log     *slog.Logger
}

func NewPipeline(gen TextGenerator, cfg PipelineConfig) *Pipeline {
	if cfg.MaxSectionConcurrency <= 0 {
		cfg.MaxSectionConcurrency = DefaultMaxSectionConcurrency
	}
	if cfg.SchemaAttempts <= 0 {
		cfg.SchemaAttempts = DefaultSchemaAttempts
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Pipeline{
		gen:     gen,
		cfg:     cfg,
		segment: Segment,
		tracer:  tp.Tracer(tracerName),
		log:     logging.New("pipeline"),
	}
}

func (p *Pipeline) Run(ctx context.Context, rawText, filename string) (ReviewReport, error) {
	return p.runWithProgress(ctx, rawText, filename, nil)
}

func (p *Pipeline) RunWithProgress(ctx context.Context, rawText, filename string, progress StageProgressFn) (ReviewReport, error) {
	return p.runWithProgress(ctx, rawText, filename, progress)
}

func (p *Pipeline) runWithProgress(ctx context.Context, rawText, filename string, progress StageProgressFn) (ReviewReport, error) {
	meta := &ReportMetadata{ReviewID: uuid.NewString(), StartedAt: time.Now().UTC()}
	log := p.log.With("review_id", meta.ReviewID, "filename", filename)
	gen := &countingGenerator{inner: p.gen}

	ctx, span := p.tracer.Start(ctx, "review", trace.WithAttributes(
		attribute.String("review.id", meta.ReviewID),
		attribute.String("review.filename", filename),
	))
	defer span.End()
	fail := func(err error) (ReviewReport, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("review failed", "stage", StageNameFromError(err), "kind", KindName(err), "error", err)
		return ReviewReport{}, err
	}

	if strings.TrimSpace(rawText) == "" {
		return fail(stageErr(StageInput, "", ErrExtractionUnavailable, nil))
	}

	emit(progress, StageSegment, "Segmenting document into sections...")
	sections := p.segment(rawText)
	if err := sections.Validate(); err != nil {
		return fail(stageErr(StageSegment, "", ErrMalformedSectionData, err))
	}
	for _, a := range FindAnchors(rawText) {
		if strings.TrimSpace(sections[a.Section]) != "" {
			meta.SectionsDetected = append(meta.SectionsDetected, a.Section)
		}
	}
	present := sections.NonEmpty()
	span.SetAttributes(attribute.Int("review.sections", len(present)))
	if len(present) == 0 {
		log.Warn("no section headings detected; scoring from empty observations")
	}

	emit(progress, StageObservations, fmt.Sprintf("Extracting observations for %d section(s)...", len(present)))
	started := time.Now()
	obs, err := p.extractAll(ctx, gen, sections, present)
	if err != nil {
		return fail(err)
	}
	p.done(log, progress, StageObservations, started)

	emit(progress, StageScoring, "Scoring against the rubric...")
	started = time.Now()
	card, err := p.score(ctx, gen, obs)
	if err != nil {
		return fail(err)
	}
	p.done(log, progress, StageScoring, started)

	decision, avg := Classify(card)
	log.Info("decision classified", "average_score", avg, "decision", decision)

	emit(progress, StageSuggestions, "Synthesizing suggestions...")
	started = time.Now()
	suggestions, err := p.suggest(ctx, gen, obs, card, decision, avg)
	if err != nil {
		return fail(err)
	}
	p.done(log, progress, StageSuggestions, started)

	meta.GenerationCalls = int(gen.calls.Load())
	meta.CompletedAt = time.Now().UTC()
	span.SetAttributes(
		attribute.Float64("review.average_score", avg),
		attribute.String("review.decision", string(decision)),
	)
	return ReviewReport{
		Filename:     filename,
		Scores:       card,
		AverageScore: avg,
		Decision:     decision,
		Suggestions:  suggestions,
		Observations: obs,
		Metadata:     meta,
	}, nil
}

// extractAll runs one observation call per present section, at most
// MaxSectionConcurrency at a time. The first failure cancels the rest.
func (p *Pipeline) extractAll(ctx context.Context, gen TextGenerator, sections SectionMap, present []SectionName) (ObservationSet, error) {
	ctx, span := p.tracer.Start(ctx, StageObservations)
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxSectionConcurrency)

	var mu sync.Mutex
	obs := ObservationSet{}
	for _, name := range present {
		text := sections[name]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return stageErr(StageObservations, name, ErrGenerationFailure, err)
			}
			sctx, sspan := p.tracer.Start(gctx, "observe", trace.WithAttributes(
				attribute.String("section", string(name)),
				attribute.Int("section.chars", len(text)),
			))
			defer sspan.End()
			rec, err := ExtractObservations(sctx, gen, name, text)
			if err != nil {
				sspan.RecordError(err)
				sspan.SetStatus(codes.Error, err.Error())
				return err
			}
			mu.Lock()
			obs[name] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return obs, nil
}

func (p *Pipeline) score(ctx context.Context, gen TextGenerator, obs ObservationSet) (ScoreCard, error) {
	ctx, span := p.tracer.Start(ctx, StageScoring)
	defer span.End()
	card, err := ScoreObservations(ctx, gen, obs, p.cfg.SchemaAttempts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return card, err
}

func (p *Pipeline) suggest(ctx context.Context, gen TextGenerator, obs ObservationSet, card ScoreCard, decision Decision, avg float64) (string, error) {
	ctx, span := p.tracer.Start(ctx, StageSuggestions)
	defer span.End()
	out, err := SynthesizeSuggestions(ctx, gen, obs, card, decision, avg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (p *Pipeline) done(log *slog.Logger, progress StageProgressFn, stage string, started time.Time) {
	elapsed := time.Since(started).Round(time.Millisecond)
	log.Info("stage complete", "stage", stage, "elapsed", elapsed)
	emit(progress, stage, fmt.Sprintf("%s complete in %s", stage, elapsed))
}

func emit(progress StageProgressFn, stage, message string) {
	if progress != nil {
		progress(stage, message)
	}
}

type countingGenerator struct {
	inner TextGenerator
	calls atomic.Int64
}

func (c *countingGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	c.calls.Add(1)
	return c.inner.Generate(ctx, system, prompt)
}
