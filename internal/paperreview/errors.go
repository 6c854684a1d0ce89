package paperreview

import (
	"errors"
	"fmt"
)

var (
	ErrExtractionUnavailable = errors.New("extraction unavailable: no text content")
	ErrGenerationFailure     = errors.New("generation failure")
	ErrSchemaValidation      = errors.New("schema validation failure")
	ErrMalformedSectionData  = errors.New("malformed section data")
)

// StageError tags a terminal failure with the stage (and section, for the
// observation fan-out) that produced it.
type StageError struct {
	Stage   string
	Section SectionName
	Kind    error
	Err     error
}

func (e *StageError) Error() string {
	where := e.Stage
	if e.Section != "" {
		where = fmt.Sprintf("%s[%s]", e.Stage, e.Section)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", where, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", where, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	out := []error{e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func StageNameFromError(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "pipeline"
}

// KindName returns a stable identifier for the failure kind of err.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrExtractionUnavailable):
		return "extraction_unavailable"
	case errors.Is(err, ErrSchemaValidation):
		return "schema_validation_failure"
	case errors.Is(err, ErrMalformedSectionData):
		return "malformed_section_data"
	case errors.Is(err, ErrGenerationFailure):
		return "generation_failure"
	}
	return "internal"
}

func stageErr(stage string, section SectionName, kind, err error) *StageError {
	return &StageError{Stage: stage, Section: section, Kind: kind, Err: err}
}
