package paperreview

import (
	"fmt"
	"sort"
	"strings"
)

type SectionName string

const (
	SectionAbstract     SectionName = "abstract"
	SectionIntroduction SectionName = "introduction"
	SectionMethodology  SectionName = "methodology"
	SectionResults      SectionName = "results"
	SectionConclusion   SectionName = "conclusion"
	SectionReferences   SectionName = "references"
)

// AllSections is the canonical enumeration order. It is also the tie-break
// order when two sections anchor at the same offset.
var AllSections = []SectionName{
	SectionAbstract,
	SectionIntroduction,
	SectionMethodology,
	SectionResults,
	SectionConclusion,
	SectionReferences,
}

// HeadingLexicon lists, per section, the heading phrases tried in priority
// order. Read-only.
var HeadingLexicon = map[SectionName][]string{
	SectionAbstract:     {"abstract", "summary"},
	SectionIntroduction: {"introduction", "background", "motivation"},
	SectionMethodology: {
		"methodology", "methods", "materials and methods",
		"proposed method", "approach", "model", "algorithm",
		"framework", "implementation", "experimental setup",
	},
	SectionResults: {
		"results", "experiments", "evaluation",
		"performance evaluation", "analysis",
		"results and discussion",
	},
	SectionConclusion: {
		"conclusion", "conclusions",
		"concluding remarks", "final remarks",
	},
	SectionReferences: {"references", "bibliography", "works cited"},
}

func IsKnownSection(name SectionName) bool {
	_, ok := HeadingLexicon[name]
	return ok
}

// SectionMap holds the text of every section; undetected sections map to "".
type SectionMap map[SectionName]string

// NonEmpty returns the sections with non-blank text in canonical order.
func (m SectionMap) NonEmpty() []SectionName {
	var out []SectionName
	for _, name := range AllSections {
		if strings.TrimSpace(m[name]) != "" {
			out = append(out, name)
		}
	}
	return out
}

func (m SectionMap) Validate() error {
	for name := range m {
		if !IsKnownSection(name) {
			return fmt.Errorf("%w: unknown section %q", ErrMalformedSectionData, name)
		}
	}
	return nil
}

// Anchor is the byte offset of the newline preceding a recognized heading.
type Anchor struct {
	Section  SectionName `json:"section"`
	Phrase   string      `json:"phrase"`
	Position int         `json:"position"`
}

// FindAnchors returns the anchor of every detected section, sorted by
// position. For each section only the first lexicon phrase that occurs is
// used, even when a later phrase would anchor earlier in the text.
func FindAnchors(text string) []Anchor {
	var anchors []Anchor
	for _, name := range AllSections {
		for _, phrase := range HeadingLexicon[name] {
			if idx := indexLineStartFold(text, phrase); idx >= 0 {
				anchors = append(anchors, Anchor{Section: name, Phrase: phrase, Position: idx})
				break
			}
		}
	}
	sortAnchors(anchors)
	return anchors
}

// sortAnchors orders by position; equal positions keep the order they were
// collected in, which is AllSections order.
func sortAnchors(anchors []Anchor) {
	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].Position < anchors[j].Position
	})
}

// Segment partitions text into sections. Each detected section spans from
// its anchor to the next anchor (or end of text), trimmed. It never fails.
func Segment(text string) SectionMap {
	sections := SectionMap{}
	for _, name := range AllSections {
		sections[name] = ""
	}
	anchors := FindAnchors(text)
	for i, a := range anchors {
		end := len(text)
		if i+1 < len(anchors) {
			end = anchors[i+1].Position
		}
		sections[a.Section] = strings.TrimSpace(text[a.Position:end])
	}
	return sections
}

// indexLineStartFold returns the offset of the first newline that is
// immediately followed by phrase, compared case-insensitively.
func indexLineStartFold(text, phrase string) int {
	off := 0
	for {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return -1
		}
		nl := off + i
		start := nl + 1
		if end := start + len(phrase); end <= len(text) && strings.EqualFold(text[start:end], phrase) {
			return nl
		}
		off = start
	}
}
