package replay

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/joelkehle/paper-review/internal/paperreview"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "replay.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open replay store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

func TestRecordThenReplay(t *testing.T) {
	store, dbPath := newTestStore(t)
	ctx := context.Background()

	calls := 0
	live := paperreview.GeneratorFunc(func(_ context.Context, system, prompt string) (string, error) {
		calls++
		return "answer to " + prompt, nil
	})
	rec, err := NewGenerator(live, store, ModeRecord, "test-model")
	if err != nil {
		t.Fatal(err)
	}
	if out, err := rec.Generate(ctx, "sys", "p1"); err != nil || out != "answer to p1" {
		t.Fatalf("record Generate = %q, %v", out, err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("expected 1 stored generation, got %d", n)
	}
	store.Close()

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	rep, err := NewGenerator(nil, reopened, ModeReplay, "")
	if err != nil {
		t.Fatal(err)
	}
	out, err := rep.Generate(ctx, "sys", "p1")
	if err != nil || out != "answer to p1" {
		t.Fatalf("replay Generate = %q, %v", out, err)
	}
	if calls != 1 {
		t.Fatalf("replay must not call the live generator, calls=%d", calls)
	}
	entries, err := reopened.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Hits != 1 || entries[0].Model != "test-model" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestReplayMiss(t *testing.T) {
	store, _ := newTestStore(t)
	rep, err := NewGenerator(nil, store, ModeReplay, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rep.Generate(context.Background(), "sys", "unknown"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestRecordDoesNotStoreFailures(t *testing.T) {
	store, _ := newTestStore(t)
	failing := paperreview.GeneratorFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("status code: 500")
	})
	rec, err := NewGenerator(failing, store, ModeRecord, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Generate(context.Background(), "sys", "p"); err == nil {
		t.Fatal("expected error")
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("failed calls must not be recorded, got %d", n)
	}
}

func TestKeySeparatesInstructionAndPrompt(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Fatal("keys must not collide across the instruction/prompt boundary")
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := NewGenerator(nil, store, ModeRecord, ""); err == nil {
		t.Fatal("record mode without live generator should fail")
	}
	if _, err := NewGenerator(nil, nil, ModeReplay, ""); err == nil {
		t.Fatal("missing store should fail")
	}
	if _, err := ParseMode("rewind"); err == nil {
		t.Fatal("unknown mode should fail")
	}
}

func TestPipelineReplaysRecordedReview(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	paper := "Abstract\nWe study X.\nMethods\nWe did Y.\nConclusion\nIt works."
	live := paperreview.GeneratorFunc(func(_ context.Context, system, prompt string) (string, error) {
		switch {
		case len(prompt) > 8 && prompt[:8] == "Section:":
			return "SUMMARY:\nok\nOBSERVATIONS:\n- fine", nil
		case len(prompt) > 9 && prompt[:9] == "Reviewer ":
			return `{"novelty":8,"technical_quality":8,"methodology":8,"experimental_validation":8,"clarity":8,
				"justification":{"novelty":"a","technical_quality":"b","methodology":"c","experimental_validation":"d","clarity":"e"}}`, nil
		default:
			return "- Add more experiments.", nil
		}
	})
	rec, _ := NewGenerator(live, store, ModeRecord, "")
	first, err := paperreview.NewPipeline(rec, paperreview.PipelineConfig{}).Run(ctx, paper, "p.txt")
	if err != nil {
		t.Fatalf("record run: %v", err)
	}

	rep, _ := NewGenerator(nil, store, ModeReplay, "")
	second, err := paperreview.NewPipeline(rep, paperreview.PipelineConfig{}).Run(ctx, paper, "p.txt")
	if err != nil {
		t.Fatalf("replay run: %v", err)
	}
	if first.Decision != paperreview.DecisionAccept || second.Decision != first.Decision || second.Suggestions != first.Suggestions {
		t.Fatalf("replayed report differs: %+v vs %+v", first, second)
	}
}
