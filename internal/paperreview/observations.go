package paperreview

import (
	"context"
	"fmt"
	"strings"
)

// ExtractObservations asks the generator for a SUMMARY/OBSERVATIONS record
// of one section. The returned record is the generator's text, unparsed.
func ExtractObservations(ctx context.Context, gen TextGenerator, section SectionName, text string) (string, error) {
	if !IsKnownSection(section) {
		return "", stageErr(StageObservations, section, ErrMalformedSectionData, fmt.Errorf("unknown section %q", section))
	}
	raw, err := gen.Generate(ctx, observationSystemPrompt, observationPrompt(section, text))
	if err != nil {
		return "", stageErr(StageObservations, section, ErrGenerationFailure, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", stageErr(StageObservations, section, ErrGenerationFailure, errEmptyResponse)
	}
	return raw, nil
}

func observationPrompt(section SectionName, text string) string {
	return fmt.Sprintf("Section: %s\n\nText:\n%s\n", section, truncateRunes(text, MaxObservationChars))
}

// truncateRunes keeps the first n code points of s.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
