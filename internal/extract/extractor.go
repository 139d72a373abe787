package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/podshelf/podshelf/internal/books"
	"github.com/podshelf/podshelf/internal/prompts/initial"
	"github.com/podshelf/podshelf/internal/prompts/refine"
	"github.com/podshelf/podshelf/internal/prompts/simple"
	"github.com/podshelf/podshelf/internal/prompts/validate"
	"github.com/podshelf/podshelf/internal/providers"
)

const (
	// defaultMaxTokens bounds generation length for extraction responses.
	defaultMaxTokens = 2000

	// simpleConfidence is the confidence assigned to a successful
	// single-pass extraction; the simple path has no model-reported
	// aggregate to use instead.
	simpleConfidence = 0.8

	// refineFallbackConfidence is used when the refinement stage fails and
	// the initial books are carried forward unchanged.
	refineFallbackConfidence = 0.5
)

// Config configures an Extractor.
type Config struct {
	Client   providers.LLMClient
	Contexts ContextStore
	Logger   *slog.Logger

	// ComplexityThreshold overrides the description length that triggers
	// multi-pass processing. Zero uses the default (800).
	ComplexityThreshold int

	// Model overrides the client's default model.
	Model string

	MaxTokens int
}

// Extractor orchestrates single- and multi-pass book extraction.
type Extractor struct {
	client    providers.LLMClient
	contexts  ContextStore
	logger    *slog.Logger
	threshold int
	model     string
	maxTokens int
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Extractor{
		client:    cfg.Client,
		contexts:  cfg.Contexts,
		logger:    cfg.Logger,
		threshold: cfg.ComplexityThreshold,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Options carries per-invocation extraction inputs.
type Options struct {
	// EpisodeID keys the preserved-context cache entry this run produces.
	EpisodeID string

	// PreservedContext is advisory context from a related earlier episode,
	// injected into the multi-pass prompts. Its absence never blocks
	// extraction.
	PreservedContext string
}

// ProviderName reports which LLM client backs this extractor.
func (e *Extractor) ProviderName() string {
	if e.client == nil {
		return "none"
	}
	return e.client.Name()
}

// PreservedContext returns the cached context summary for an episode, if any.
func (e *Extractor) PreservedContext(episodeID string) string {
	if e.contexts == nil {
		return ""
	}
	preserved, _ := e.contexts.Get(episodeID)
	return preserved
}

// ExtractBooksFromEpisode extracts book mentions from an episode description.
// It never fails: multi-pass errors degrade to the single-pass path, and a
// single-pass error degrades to an empty result. Failures are recorded in
// the result's processing notes.
func (e *Extractor) ExtractBooksFromEpisode(ctx context.Context, description string, opts Options) *Result {
	if strings.TrimSpace(description) == "" {
		r := &Result{FinalBooks: []books.Candidate{}}
		r.note("empty episode description, nothing to extract")
		return r
	}

	if IsComplexEpisode(description, e.threshold) {
		result, err := e.extractMultiPass(ctx, description, opts)
		if err == nil {
			return result
		}
		e.logger.Warn("multi-pass extraction failed, falling back to single pass",
			"episode_id", opts.EpisodeID,
			"error", err)

		fallback := e.extractSimple(ctx, description)
		fallback.ProcessingNotes = append(
			[]string{fmt.Sprintf("multi-pass pipeline failed (%v), fell back to single pass", err)},
			fallback.ProcessingNotes...)
		return fallback
	}

	return e.extractSimple(ctx, description)
}

// extractSimple runs the one-shot extraction path for straightforward
// episodes. A failed LLM call yields an empty result, never an error.
func (e *Extractor) extractSimple(ctx context.Context, description string) *Result {
	result := &Result{FinalBooks: []books.Candidate{}}

	content, err := e.generate(ctx,
		simple.SystemPrompt(),
		simple.UserPrompt(description),
		simple.Temperature)
	if err != nil {
		e.logger.Warn("single-pass extraction failed", "error", err)
		result.note(fmt.Sprintf("single-pass extraction failed: %v", err))
		return result
	}

	payload, ok := parsePassPayload(content, simple.ResponseSchema)
	if !ok {
		result.note("model output was not valid JSON, returning empty result")
		result.note("raw response: " + truncate(payload.RawResponse, 500))
		return result
	}

	result.FinalBooks = e.filterValid(payload.Books, result)
	if len(result.FinalBooks) > 0 {
		result.OverallConfidence = simpleConfidence
	}
	result.note(fmt.Sprintf("single pass extracted %d book(s)", len(result.FinalBooks)))
	return result
}

// extractMultiPass runs the staged pipeline. It returns an error only when
// the initial stage cannot produce a pass at all; downstream stage failures
// degrade to the prior stage's output.
func (e *Extractor) extractMultiPass(ctx context.Context, description string, opts Options) (*Result, error) {
	result := &Result{MultiPass: true, FinalBooks: []books.Candidate{}}

	initialPass, err := e.runInitialPass(ctx, description, opts, result)
	if err != nil {
		return nil, err
	}
	result.Passes = append(result.Passes, *initialPass)
	result.FinalBooks = initialPass.Books

	stage := advance(StageInitial, len(initialPass.Books))
	if stage == StageAborted {
		result.note("initial pass found no books, skipping refinement and validation")
		result.finish()
		return result, nil
	}

	refinedPass := e.runRefinementPass(ctx, description, opts, initialPass, result)
	result.Passes = append(result.Passes, *refinedPass)
	result.FinalBooks = refinedPass.Books

	stage = advance(StageRefined, len(refinedPass.Books))
	if stage == StageAborted {
		result.note("refinement pass dropped all books, skipping validation")
		result.finish()
		return result, nil
	}

	if validated := e.runValidationPass(ctx, description, refinedPass, result); validated != nil {
		result.Passes = append(result.Passes, *validated)
		result.FinalBooks = validated.Books
	}

	result.finish()
	return result, nil
}

// runInitialPass performs strict first-stage identification. A generation
// failure here fails the whole multi-pass pipeline (the caller falls back
// to the simple path); a parse failure degrades to an empty pass.
func (e *Extractor) runInitialPass(ctx context.Context, description string, opts Options, result *Result) (*Pass, error) {
	content, err := e.generate(ctx,
		initial.SystemPrompt(),
		initial.UserPrompt(initial.UserPromptData{
			Description:      description,
			PreservedContext: opts.PreservedContext,
		}),
		initial.Temperature)
	if err != nil {
		return nil, fmt.Errorf("initial pass: %w", err)
	}

	payload, ok := parsePassPayload(content, initial.ResponseSchema)
	if !ok {
		result.note("initial pass output was not valid JSON, treating as empty")
	}

	pass := &Pass{
		Type:             PassInitial,
		Books:            e.filterValid(payload.Books, result),
		ContextPreserved: payload.ContextPreserved,
		Confidence:       payload.OverallConfidence,
	}
	result.note(fmt.Sprintf("initial pass extracted %d book(s), confidence %.2f", len(pass.Books), pass.Confidence))

	if e.contexts != nil && opts.EpisodeID != "" && pass.ContextPreserved != "" {
		e.contexts.Set(opts.EpisodeID, pass.ContextPreserved)
	}
	return pass, nil
}

// runRefinementPass re-verifies the initial books. On any failure it falls
// back to the initial books unchanged with a fixed reduced confidence; the
// error is logged, never propagated.
func (e *Extractor) runRefinementPass(ctx context.Context, description string, opts Options, prev *Pass, result *Result) *Pass {
	fallback := func(reason string) *Pass {
		e.logger.Warn("refinement pass failed, keeping initial books", "reason", reason)
		result.note("refinement failed (" + reason + "), keeping initial books")
		return &Pass{
			Type:       PassRefinement,
			Books:      prev.Books,
			Confidence: refineFallbackConfidence,
		}
	}

	booksJSON, err := json.Marshal(prev.Books)
	if err != nil {
		return fallback(err.Error())
	}

	content, err := e.generate(ctx,
		refine.SystemPrompt(),
		refine.UserPrompt(refine.UserPromptData{
			Description:      description,
			PreservedContext: opts.PreservedContext,
			BooksJSON:        string(booksJSON),
		}),
		refine.Temperature)
	if err != nil {
		return fallback(err.Error())
	}

	payload, ok := parsePassPayload(content, refine.ResponseSchema)
	if !ok {
		return fallback("output was not valid JSON")
	}

	pass := &Pass{
		Type:       PassRefinement,
		Books:      e.filterValid(payload.Books, result),
		Confidence: payload.OverallConfidence,
	}
	result.note(fmt.Sprintf("refinement pass kept %d book(s), confidence %.2f", len(pass.Books), pass.Confidence))
	return pass
}

// runValidationPass independently judges each refined book. On failure it
// returns nil and the refined list stands as final.
func (e *Extractor) runValidationPass(ctx context.Context, description string, prev *Pass, result *Result) *Pass {
	booksJSON, err := json.Marshal(prev.Books)
	if err != nil {
		result.note("validation skipped (" + err.Error() + "), keeping refined books")
		return nil
	}

	content, err := e.generate(ctx,
		validate.SystemPrompt(),
		validate.UserPrompt(validate.UserPromptData{
			Description: description,
			BooksJSON:   string(booksJSON),
		}),
		validate.Temperature)
	if err != nil {
		e.logger.Warn("validation pass failed, keeping refined books", "error", err)
		result.note(fmt.Sprintf("validation failed (%v), keeping refined books", err))
		return nil
	}

	raw, err := providers.ParseStructuredJSON(content)
	if err != nil {
		result.note("validation output was not valid JSON, keeping refined books")
		return nil
	}
	if err := providers.ValidateJSON(validate.ResponseSchema, raw); err != nil {
		result.note("validation output did not match schema, keeping refined books")
		return nil
	}
	var payload verdictPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		result.note("validation output could not be decoded, keeping refined books")
		return nil
	}

	valid := make(map[string]bool, len(payload.Verdicts))
	for _, v := range payload.Verdicts {
		if strings.EqualFold(v.Verdict, "VALID") {
			valid[books.Key(v.Title, v.Author)] = true
		}
	}

	kept := make([]books.Candidate, 0, len(prev.Books))
	for _, b := range prev.Books {
		if valid[books.Key(b.Title, b.Author)] {
			kept = append(kept, b)
		}
	}

	pass := &Pass{
		Type:       PassValidation,
		Books:      kept,
		Confidence: payload.OverallConfidence,
	}
	result.note(fmt.Sprintf("validation pass kept %d of %d book(s)", len(kept), len(prev.Books)))
	return pass
}

// generate issues one generation request with the stage's prompts.
func (e *Extractor) generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	res, err := e.client.Generate(ctx, &providers.GenerateRequest{
		Messages: []providers.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Model:       e.model,
		Temperature: temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// filterValid drops candidates that fail basic title/author checks,
// recording a note per drop.
func (e *Extractor) filterValid(cands []books.Candidate, result *Result) []books.Candidate {
	kept := make([]books.Candidate, 0, len(cands))
	for _, c := range cands {
		if !c.Valid() {
			result.note(fmt.Sprintf("dropped candidate with missing or oversized title/author: %q / %q",
				truncate(c.Title, 60), truncate(c.Author, 60)))
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// finish computes the mean confidence over the passes that executed.
func (r *Result) finish() {
	if len(r.Passes) == 0 {
		return
	}
	var sum float64
	for _, p := range r.Passes {
		sum += p.Confidence
	}
	r.OverallConfidence = sum / float64(len(r.Passes))
}

// parsePassPayload parses a stage response. On failure it returns a payload
// with no books and the raw output retained, plus ok=false; malformed model
// output degrades rather than aborting the pipeline.
func parsePassPayload(content string, schema json.RawMessage) (passPayload, bool) {
	fallback := passPayload{Books: []books.Candidate{}, RawResponse: content}

	raw, err := providers.ParseStructuredJSON(content)
	if err != nil {
		return fallback, false
	}
	if err := providers.ValidateJSON(schema, raw); err != nil {
		return fallback, false
	}

	var payload passPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fallback, false
	}
	if payload.Books == nil {
		payload.Books = []books.Candidate{}
	}
	return payload, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
