package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/joelkehle/paper-review/internal/logging"
	"github.com/joelkehle/paper-review/internal/paperreview"
)

type Mode string

const (
	ModeRecord Mode = "record"
	ModeReplay Mode = "replay"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRecord, ModeReplay:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown replay mode %q", s)
}

// Generator records successful calls of its inner generator, or serves calls
// from the store without touching the network.
type Generator struct {
	inner paperreview.TextGenerator
	store *Store
	mode  Mode
	model string
}

func NewGenerator(inner paperreview.TextGenerator, store *Store, mode Mode, model string) (*Generator, error) {
	if store == nil {
		return nil, errors.New("replay store is required")
	}
	if mode == ModeRecord && inner == nil {
		return nil, errors.New("record mode requires a live generator")
	}
	return &Generator{inner: inner, store: store, mode: mode, model: model}, nil
}

func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if g.mode == ModeReplay {
		return g.store.Lookup(ctx, system, prompt)
	}
	out, err := g.inner.Generate(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	if err := g.store.Save(ctx, g.model, system, prompt, out); err != nil {
		logging.New("replay").Warn("record failed", "key", Key(system, prompt)[:12], "err", err)
	}
	return out, nil
}
