package paperreview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const validScoreJSON = `{
  "novelty": 7,
  "technical_quality": 6,
  "methodology": 8,
  "experimental_validation": 5,
  "clarity": 9,
  "justification": {
    "novelty": "Clear contribution over the stated prior work.",
    "technical_quality": "Derivations are present but partially unverified.",
    "methodology": "Procedure is described step by step.",
    "experimental_validation": "Only one dataset and no baselines are reported.",
    "clarity": "Well organized."
  }
}`

// stubGenerator answers by stage, recognised from the system instruction.
type stubGenerator struct {
	mu          sync.Mutex
	observation func(section string) (string, error)
	scores      []string
	scoreErr    error
	suggestions string
	suggestErr  error

	calls        map[string]int
	prompts      map[string][]string
	scoreCalls   int
	maxInFlight  int
	inFlight     int
	observeDelay func(ctx context.Context) error
}

func newStub() *stubGenerator {
	return &stubGenerator{
		observation: func(section string) (string, error) {
			return fmt.Sprintf("SUMMARY:\nThe %s section.\n\nOBSERVATIONS:\n- present\n- missing detail\n- unclear claim", section), nil
		},
		scores:      []string{validScoreJSON},
		suggestions: "- Add baselines.\n- Report variance.\n- Clarify setup.\n- Expand related work.",
		calls:       map[string]int{},
		prompts:     map[string][]string{},
	}
}

func (s *stubGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	switch system {
	case observationSystemPrompt:
		section := sectionFromPrompt(prompt)
		s.mu.Lock()
		s.calls["observe:"+section]++
		s.prompts[StageObservations] = append(s.prompts[StageObservations], prompt)
		s.inFlight++
		if s.inFlight > s.maxInFlight {
			s.maxInFlight = s.inFlight
		}
		delay := s.observeDelay
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.inFlight--
			s.mu.Unlock()
		}()
		if delay != nil {
			if err := delay(ctx); err != nil {
				return "", err
			}
		}
		return s.observation(section)
	case scoringSystemPrompt:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls[StageScoring]++
		s.prompts[StageScoring] = append(s.prompts[StageScoring], prompt)
		if s.scoreErr != nil {
			return "", s.scoreErr
		}
		idx := s.scoreCalls
		s.scoreCalls++
		if idx >= len(s.scores) {
			idx = len(s.scores) - 1
		}
		return s.scores[idx], nil
	case suggestionSystemPrompt:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls[StageSuggestions]++
		s.prompts[StageSuggestions] = append(s.prompts[StageSuggestions], prompt)
		return s.suggestions, s.suggestErr
	}
	return "", errors.New("unexpected system prompt")
}

func (s *stubGenerator) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func sectionFromPrompt(prompt string) string {
	line, _, _ := strings.Cut(prompt, "\n")
	return strings.TrimPrefix(line, "Section: ")
}
