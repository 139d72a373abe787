// Package extract implements the multi-pass LLM book extraction pipeline:
// complexity-based pass selection, initial/refinement/validation stages with
// graceful degradation, and cross-episode context preservation.
package extract

import (
	"github.com/podshelf/podshelf/internal/books"
)

// PassType identifies a stage of the multi-pass pipeline.
type PassType string

const (
	PassInitial    PassType = "initial"
	PassRefinement PassType = "refinement"
	PassValidation PassType = "validation"
)

// Pass records one completed LLM round-trip within an extraction run.
// A Pass is read-only after creation; later stages produce new passes
// instead of mutating earlier ones.
type Pass struct {
	Type             PassType          `json:"pass_type"`
	Books            []books.Candidate `json:"books"`
	ContextPreserved string            `json:"context_preserved,omitempty"`
	Confidence       float64           `json:"confidence"`
}

// Result is the outcome of one extraction invocation for one episode.
type Result struct {
	// Passes holds the stages that actually executed, in order.
	Passes []Pass `json:"passes,omitempty"`

	// FinalBooks is the output of the last stage that ran.
	FinalBooks []books.Candidate `json:"books"`

	// MultiPass reports whether the multi-pass pipeline was used.
	MultiPass bool `json:"multi_pass"`

	// OverallConfidence is the arithmetic mean of the confidences of all
	// passes that executed (or the single pass's confidence on the simple path).
	OverallConfidence float64 `json:"confidence"`

	// ProcessingNotes is an ordered log of human-readable events.
	ProcessingNotes []string `json:"processing_notes,omitempty"`
}

func (r *Result) note(msg string) {
	r.ProcessingNotes = append(r.ProcessingNotes, msg)
}

// passPayload is the JSON shape returned by the simple, initial, and
// refinement prompts.
type passPayload struct {
	Books             []books.Candidate `json:"books"`
	ContextPreserved  string            `json:"context_preserved,omitempty"`
	OverallConfidence float64           `json:"overall_confidence,omitempty"`

	// RawResponse carries the original model output when parsing failed.
	RawResponse string `json:"raw_response,omitempty"`
}

// verdictPayload is the JSON shape returned by the validation prompt.
type verdictPayload struct {
	Verdicts []struct {
		Title     string `json:"title"`
		Author    string `json:"author"`
		Verdict   string `json:"verdict"`
		Reasoning string `json:"reasoning,omitempty"`
	} `json:"verdicts"`
	OverallConfidence float64 `json:"overall_confidence,omitempty"`
}
