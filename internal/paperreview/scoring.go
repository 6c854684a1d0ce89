package paperreview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	DefaultSchemaAttempts = 2
	// MaxSchemaAttempts allows one re-request of a malformed score card.
	MaxSchemaAttempts = 2
)

const scoreCardSchemaJSON = `{
  "type": "object",
  "required": ["novelty", "technical_quality", "methodology", "experimental_validation", "clarity", "justification"],
  "additionalProperties": false,
  "properties": {
    "novelty": {"type": "integer", "minimum": 0, "maximum": 10},
    "technical_quality": {"type": "integer", "minimum": 0, "maximum": 10},
    "methodology": {"type": "integer", "minimum": 0, "maximum": 10},
    "experimental_validation": {"type": "integer", "minimum": 0, "maximum": 10},
    "clarity": {"type": "integer", "minimum": 0, "maximum": 10},
    "justification": {
      "type": "object",
      "required": ["novelty", "technical_quality", "methodology", "experimental_validation", "clarity"],
      "additionalProperties": false,
      "properties": {
        "novelty": {"type": "string"},
        "technical_quality": {"type": "string"},
        "methodology": {"type": "string"},
        "experimental_validation": {"type": "string"},
        "clarity": {"type": "string"}
      }
    }
  }
}`

var scoreCardSchema = mustCompileSchema(scoreCardSchemaJSON)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile score card schema: %v", err))
	}
	return schema
}

// ScoreObservations issues the scoring call and validates the returned score
// card. A schema violation is re-requested with feedback until attempts are
// exhausted; transport failures are not retried here.
func ScoreObservations(ctx context.Context, gen TextGenerator, obs ObservationSet, attempts int) (ScoreCard, error) {
	if attempts <= 0 {
		attempts = DefaultSchemaAttempts
	}
	attempts = min(attempts, MaxSchemaAttempts)
	body, err := json.MarshalIndent(obs, "", "  ")
	if err != nil {
		return ScoreCard{}, stageErr(StageScoring, "", ErrMalformedSectionData, err)
	}
	prompt := fmt.Sprintf("Reviewer observations:\n%s\n", body)

	feedback := ""
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		fullPrompt := prompt
		if feedback != "" {
			fullPrompt += "\n" + feedback
		}
		raw, err := gen.Generate(ctx, scoringSystemPrompt, fullPrompt)
		if err != nil {
			return ScoreCard{}, stageErr(StageScoring, "", ErrGenerationFailure, err)
		}
		if strings.TrimSpace(raw) == "" {
			return ScoreCard{}, stageErr(StageScoring, "", ErrGenerationFailure, errEmptyResponse)
		}
		card, err := ParseScoreCard(raw)
		if err == nil {
			return card, nil
		}
		lastErr = err
		feedback = fmt.Sprintf("Your previous response failed validation: %s. Respond with only valid JSON matching the required format.", err)
	}
	return ScoreCard{}, stageErr(StageScoring, "", ErrSchemaValidation, lastErr)
}

// ParseScoreCard decodes and validates a score card payload. Scores must be
// JSON integer literals in [0,10]; nothing is coerced or clamped.
func ParseScoreCard(raw string) (ScoreCard, error) {
	clean := stripCodeFences(raw)
	result, err := scoreCardSchema.Validate(gojsonschema.NewStringLoader(clean))
	if err != nil {
		return ScoreCard{}, fmt.Errorf("invalid JSON: %v", err)
	}
	if !result.Valid() {
		var issues []string
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		sort.Strings(issues)
		return ScoreCard{}, fmt.Errorf("%s", strings.Join(issues, "; "))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return ScoreCard{}, fmt.Errorf("invalid JSON: %v", err)
	}
	for _, name := range ScoreFields {
		lit := string(bytes.TrimSpace(fields[name]))
		if _, err := strconv.Atoi(lit); err != nil {
			return ScoreCard{}, fmt.Errorf("%s: expected integer literal, got %s", name, lit)
		}
	}

	var card ScoreCard
	if err := json.Unmarshal([]byte(clean), &card); err != nil {
		return ScoreCard{}, fmt.Errorf("decode score card: %v", err)
	}
	return card, nil
}

// Validate checks the score card invariant on an already decoded value.
func (s ScoreCard) Validate() error {
	for _, name := range ScoreFields {
		v, _ := s.Score(name)
		if v < 0 || v > 10 {
			return fmt.Errorf("%w: %s out of range: %d", ErrSchemaValidation, name, v)
		}
		if _, ok := s.Justification[name]; !ok {
			return fmt.Errorf("%w: justification missing %s", ErrSchemaValidation, name)
		}
	}
	if len(s.Justification) != len(ScoreFields) {
		return fmt.Errorf("%w: justification has %d keys, want %d", ErrSchemaValidation, len(s.Justification), len(ScoreFields))
	}
	return nil
}
