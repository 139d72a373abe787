// Package score computes blended heuristic + model confidence for extracted
// books and flags records that need human review.
package score

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Method identifies which extraction path produced a book.
type Method string

const (
	MethodSimple    Method = "simple"
	MethodMultiPass Method = "multi_pass"
)

// Calibration thresholds. Empirically chosen in the original system; kept as
// variables rather than constants so deployments can tune them.
var (
	// ReviewThreshold is the final score below which a book needs review.
	ReviewThreshold = 0.7

	// FactorFloor is the per-factor quality below which a book needs
	// review regardless of its final score.
	FactorFloor = 0.5
)

// Input is one book to score.
type Input struct {
	Title   string
	Author  string
	Context string
	Links   []string

	// LLMConfidence is the model's self-reported confidence, if any.
	LLMConfidence *float64

	// Method is the extraction path that produced the book.
	Method Method
}

// Factors are the heuristic sub-scores, each in [0, 1].
type Factors struct {
	TitleQuality   float64 `json:"title_quality"`
	AuthorQuality  float64 `json:"author_quality"`
	ContextQuality float64 `json:"context_quality"`
	LinksPresent   float64 `json:"links_present"`
}

// Result is the scoring outcome for one book.
type Result struct {
	Score       float64 `json:"score"`
	Factors     Factors `json:"factors"`
	Reasoning   string  `json:"reasoning"`
	NeedsReview bool    `json:"needs_review"`
	Level       string  `json:"level"`
}

var (
	firstLastPattern = regexp.MustCompile(`^[A-Z][a-zA-Z'.-]*(?:\s+[A-Z][a-zA-Z'.-]*)+$`)
	numericPattern   = regexp.MustCompile(`^[\d\s]+$`)
	wordPattern      = regexp.MustCompile(`[A-Za-z]{3,}`)
	causalPattern    = regexp.MustCompile(`(?i)\b(because|therefore|thus|since|so that|which is why|leads? to)\b`)
)

// Calculate scores a single book. It is a pure function of its input.
func Calculate(in Input) Result {
	factors := Factors{
		TitleQuality:   titleQuality(in.Title),
		AuthorQuality:  authorQuality(in.Author),
		ContextQuality: contextQuality(in.Context),
		LinksPresent:   linksPresent(in.Links),
	}

	heuristic := (0.3*factors.TitleQuality +
		0.3*factors.AuthorQuality +
		0.3*factors.ContextQuality +
		0.1*factors.LinksPresent) * 0.4

	// When the model reported no confidence, substitute a scaled heuristic
	// so heuristic-only books are not penalized for the missing half-weight
	// term.
	var llmPart float64
	if in.LLMConfidence != nil {
		llmPart = *in.LLMConfidence * 0.5
	} else {
		llmPart = heuristic * 1.25
	}

	methodBonus := 0.05
	if in.Method == MethodMultiPass {
		methodBonus = 0.1
	}

	final := clamp(heuristic+llmPart+methodBonus, 0, 1)
	final = math.Round(final*100) / 100

	needsReview := final < ReviewThreshold ||
		factors.TitleQuality < FactorFloor ||
		factors.AuthorQuality < FactorFloor ||
		(in.LLMConfidence == nil && in.Method != MethodMultiPass)

	return Result{
		Score:       final,
		Factors:     factors,
		Reasoning:   reasoning(in, factors),
		NeedsReview: needsReview,
		Level:       Level(final),
	}
}

// Level maps a score to its reporting bucket.
func Level(score float64) string {
	switch {
	case score >= 0.9:
		return "Excellent"
	case score >= 0.7:
		return "Good"
	case score >= 0.5:
		return "Moderate"
	case score >= 0.3:
		return "Poor"
	default:
		return "Very Poor"
	}
}

func titleQuality(title string) float64 {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0
	}
	score := 0.5
	if len(title) > 3 {
		score += 0.2
	}
	if len(title) > 10 {
		score += 0.1
	}
	if first := title[0]; first >= 'A' && first <= 'Z' {
		score += 0.1
	}
	if !numericPattern.MatchString(title) {
		score += 0.1
	}
	if strings.Contains(title, ":") {
		score += 0.05
	}
	if wordPattern.MatchString(title) {
		score += 0.05
	}
	return clamp(score, 0, 1)
}

func authorQuality(author string) float64 {
	author = strings.TrimSpace(author)
	if author == "" {
		return 0
	}
	score := 0.5
	if len(author) > 3 {
		score += 0.2
	}
	if strings.Contains(author, " ") {
		score += 0.2
	}
	if firstLastPattern.MatchString(author) {
		score += 0.1
	}
	return clamp(score, 0, 1)
}

func contextQuality(context string) float64 {
	context = strings.TrimSpace(context)
	if context == "" {
		return 0
	}
	score := 0.3
	if len(context) > 20 {
		score += 0.2
	}
	if len(context) > 50 {
		score += 0.2
	}
	if len(context) > 100 {
		score += 0.1
	}
	lower := strings.ToLower(context)
	if strings.Contains(lower, "episode") {
		score += 0.1
	}
	if strings.Contains(lower, "discuss") || strings.Contains(lower, "based on") {
		score += 0.1
	}
	if causalPattern.MatchString(context) {
		score += 0.1
	}
	return clamp(score, 0, 1)
}

func linksPresent(links []string) float64 {
	if len(links) > 0 {
		return 0.1
	}
	return 0
}

// reasoning renders a deterministic human-readable summary of the factor
// buckets. Required for audit trails, not just logging.
func reasoning(in Input, f Factors) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s", bucket(f.TitleQuality))
	fmt.Fprintf(&b, "; Author: %s", bucket(f.AuthorQuality))
	fmt.Fprintf(&b, "; Context: %s", bucket(f.ContextQuality))
	if f.LinksPresent > 0 {
		b.WriteString("; Links: present")
	} else {
		b.WriteString("; Links: none")
	}
	if in.LLMConfidence != nil {
		fmt.Fprintf(&b, "; LLM confidence: %.2f", *in.LLMConfidence)
	} else {
		b.WriteString("; LLM confidence: not reported")
	}
	fmt.Fprintf(&b, "; Method: %s", methodLabel(in.Method))
	return b.String()
}

func bucket(v float64) string {
	switch {
	case v >= 0.8:
		return "Excellent"
	case v >= 0.6:
		return "Good"
	case v >= 0.4:
		return "Moderate"
	default:
		return "Poor"
	}
}

func methodLabel(m Method) string {
	if m == MethodMultiPass {
		return "multi-pass"
	}
	return "single-pass"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
