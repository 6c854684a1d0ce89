package paperreview

import (
	"encoding/json"
	"time"
)

const (
	MaxObservationChars = 3000

	StageInput        = "input"
	StageSegment      = "segment"
	StageObservations = "observations"
	StageScoring      = "scoring"
	StageSuggestions  = "suggestions"
)

// ObservationSet holds one raw observation record per non-empty section.
type ObservationSet map[SectionName]string

// MarshalJSON writes sections in canonical order so prompts built from the
// set do not depend on map iteration or call completion order.
func (o ObservationSet) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	first := true
	for _, name := range AllSections {
		rec, ok := o[name]
		if !ok {
			continue
		}
		if !first {
			buf = append(buf, ',')
		}
		first = false
		k, err := json.Marshal(string(name))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// Sections returns the keys of the set in canonical order.
func (o ObservationSet) Sections() []SectionName {
	var out []SectionName
	for _, name := range AllSections {
		if _, ok := o[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

type ScoreCard struct {
	Novelty                int               `json:"novelty"`
	TechnicalQuality       int               `json:"technical_quality"`
	Methodology            int               `json:"methodology"`
	ExperimentalValidation int               `json:"experimental_validation"`
	Clarity                int               `json:"clarity"`
	Justification          map[string]string `json:"justification"`
}

const (
	FieldNovelty                = "novelty"
	FieldTechnicalQuality       = "technical_quality"
	FieldMethodology            = "methodology"
	FieldExperimentalValidation = "experimental_validation"
	FieldClarity                = "clarity"
)

// ScoreFields lists the rubric dimensions in report order.
var ScoreFields = []string{
	FieldNovelty,
	FieldTechnicalQuality,
	FieldMethodology,
	FieldExperimentalValidation,
	FieldClarity,
}

// Score returns the integer value of a rubric field by name.
func (s ScoreCard) Score(field string) (int, bool) {
	switch field {
	case FieldNovelty:
		return s.Novelty, true
	case FieldTechnicalQuality:
		return s.TechnicalQuality, true
	case FieldMethodology:
		return s.Methodology, true
	case FieldExperimentalValidation:
		return s.ExperimentalValidation, true
	case FieldClarity:
		return s.Clarity, true
	}
	return 0, false
}

type Decision string

const (
	DecisionAccept     Decision = "Accept"
	DecisionWeakAccept Decision = "Weak Accept"
	DecisionWeakReject Decision = "Weak Reject"
	DecisionReject     Decision = "Reject"
)

type ReportMetadata struct {
	ReviewID         string        `json:"review_id,omitempty"`
	SectionsDetected []SectionName `json:"sections_detected"`
	GenerationCalls  int           `json:"generation_calls"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      time.Time     `json:"completed_at"`
}

type ReviewReport struct {
	Filename     string          `json:"filename"`
	Scores       ScoreCard       `json:"scores"`
	AverageScore float64         `json:"average_score"`
	Decision     Decision        `json:"decision"`
	Suggestions  string          `json:"suggestions"`
	Observations ObservationSet  `json:"observations,omitempty"`
	Metadata     *ReportMetadata `json:"metadata,omitempty"`
}

type StageProgressFn func(stage, message string)
