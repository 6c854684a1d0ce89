package paperreview

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SynthesizeSuggestions produces the author-facing improvement list. The
// text is returned as generated; only emptiness is checked.
func SynthesizeSuggestions(ctx context.Context, gen TextGenerator, obs ObservationSet, card ScoreCard, decision Decision, avg float64) (string, error) {
	prompt, err := suggestionPrompt(obs, card, decision, avg)
	if err != nil {
		return "", stageErr(StageSuggestions, "", ErrMalformedSectionData, err)
	}
	raw, err := gen.Generate(ctx, suggestionSystemPrompt, prompt)
	if err != nil {
		return "", stageErr(StageSuggestions, "", ErrGenerationFailure, err)
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return "", stageErr(StageSuggestions, "", ErrGenerationFailure, errEmptyResponse)
	}
	return out, nil
}

func suggestionPrompt(obs ObservationSet, card ScoreCard, decision Decision, avg float64) (string, error) {
	scores, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return "", err
	}
	observations, err := json.MarshalIndent(obs, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Final decision: %s\nAverage score: %s\n\nScores:\n%s\n\nReviewer observations:\n%s\n",
		decision,
		strconv.FormatFloat(avg, 'f', -1, 64),
		scores,
		observations,
	), nil
}
