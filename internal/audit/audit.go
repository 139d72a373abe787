// Package audit scans stored books for data quality problems and produces
// a scored report. Audits are read-only; every run recomputes the full
// issue set from a fresh snapshot of the store.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/podshelf/podshelf/internal/books"
)

// IssueType is the severity of a quality issue.
type IssueType string

const (
	IssueCritical IssueType = "critical"
	IssueWarning  IssueType = "warning"
	IssueInfo     IssueType = "info"
)

// IssueCategory groups issues by the kind of check that produced them.
type IssueCategory string

const (
	CategoryIntegrity    IssueCategory = "integrity"
	CategoryCompleteness IssueCategory = "completeness"
	CategoryAccuracy     IssueCategory = "accuracy"
	CategoryConsistency  IssueCategory = "consistency"
)

// Issue is a single quality finding for one book. Issues are created
// fresh on every audit run and never persisted.
type Issue struct {
	ID       string        `json:"id"`
	BookID   string        `json:"book_id"`
	Type     IssueType     `json:"type"`
	Category IssueCategory `json:"category"`
	Message  string        `json:"message"`
	Fixable  bool          `json:"fixable"`
}

// Report aggregates all issues found in one audit run.
type Report struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	TotalBooks   int                   `json:"total_books"`
	QualityScore float64               `json:"quality_score"`
	Issues       []Issue               `json:"issues"`
	ByType       map[IssueType]int     `json:"by_type"`
	ByCategory   map[IssueCategory]int `json:"by_category"`
}

// Store is the read surface the auditor needs.
type Store interface {
	GetAll(ctx context.Context) ([]books.Book, error)
}

// DuplicateSimilarityThreshold is the edit-distance similarity above which
// two titles or authors are flagged as potential duplicates.
const DuplicateSimilarityThreshold = 0.8

var (
	isbnPattern = regexp.MustCompile(`^\d{13}$|^\d{9}[0-9X]$`)
	nonAlnum    = regexp.MustCompile(`[^0-9A-Za-z]`)

	suspiciousAuthors = map[string]bool{
		"unknown": true,
		"various": true,
		"n/a":     true,
		"tbd":     true,
	}

	auditDateLayouts = []string{
		time.RFC3339,
		"2006-01-02",
		time.RFC1123Z,
		time.RFC1123,
	}
)

// Auditor runs quality audits over a book store.
type Auditor struct {
	store  Store
	logger *slog.Logger
}

// New returns an Auditor reading from store.
func New(store Store, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{store: store, logger: logger}
}

// GenerateReport fetches all stored books and audits them.
func (a *Auditor) GenerateReport(ctx context.Context) (*Report, error) {
	all, err := a.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: fetching books: %w", err)
	}
	report := Audit(all)
	a.logger.Info("quality audit complete",
		"books", report.TotalBooks,
		"issues", len(report.Issues),
		"score", report.QualityScore)
	return report, nil
}

// Audit computes the full issue set and quality score for a book snapshot.
func Audit(all []books.Book) *Report {
	report := &Report{
		GeneratedAt: time.Now().UTC(),
		TotalBooks:  len(all),
		ByType:      map[IssueType]int{},
		ByCategory:  map[IssueCategory]int{},
	}

	for i := range all {
		b := &all[i]
		report.add(integrityIssues(b)...)
		report.add(completenessIssues(b)...)
		report.add(accuracyIssues(b)...)
		report.add(consistencyIssues(b, all)...)
	}

	report.QualityScore = score(all, report)
	return report
}

func (r *Report) add(issues ...Issue) {
	for _, issue := range issues {
		r.Issues = append(r.Issues, issue)
		r.ByType[issue.Type]++
		r.ByCategory[issue.Category]++
	}
}

func newIssue(b *books.Book, typ IssueType, cat IssueCategory, fixable bool, format string, args ...any) Issue {
	return Issue{
		ID:       uuid.New().String(),
		BookID:   b.ID,
		Type:     typ,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		Fixable:  fixable,
	}
}

func integrityIssues(b *books.Book) []Issue {
	var issues []Issue

	if b.ISBN != "" && !ValidISBN(b.ISBN) {
		issues = append(issues, newIssue(b, IssueWarning, CategoryIntegrity, true,
			"ISBN %q is not a valid 10- or 13-digit ISBN", b.ISBN))
	}

	if b.EpisodeDate != "" && !parseableDate(b.EpisodeDate) {
		issues = append(issues, newIssue(b, IssueCritical, CategoryIntegrity, true,
			"episode date %q does not parse as a date", b.EpisodeDate))
	}

	for _, link := range b.ExtractedLinks {
		if !wellFormedURL(link) {
			issues = append(issues, newIssue(b, IssueWarning, CategoryIntegrity, true,
				"extracted link %q is not a well-formed URL", link))
		}
	}

	if b.AverageRating < 0 || b.AverageRating > 5 {
		issues = append(issues, newIssue(b, IssueWarning, CategoryIntegrity, false,
			"average rating %.2f is outside [0, 5]", b.AverageRating))
	}

	if b.PageCount < 0 {
		issues = append(issues, newIssue(b, IssueWarning, CategoryIntegrity, false,
			"page count %d is negative", b.PageCount))
	}

	return issues
}

func completenessIssues(b *books.Book) []Issue {
	var issues []Issue

	if strings.TrimSpace(b.Title) == "" {
		issues = append(issues, newIssue(b, IssueCritical, CategoryCompleteness, false,
			"book has no title"))
	}
	if strings.TrimSpace(b.Author) == "" {
		issues = append(issues, newIssue(b, IssueCritical, CategoryCompleteness, false,
			"book has no author"))
	}

	if b.EnhancementStatus == books.EnhancementPending {
		issues = append(issues, newIssue(b, IssueInfo, CategoryCompleteness, true,
			"metadata enrichment has not run yet"))
	}
	if b.ISBN == "" && b.ISBN13 == "" && b.ISBN10 == "" {
		issues = append(issues, newIssue(b, IssueInfo, CategoryCompleteness, true,
			"no ISBN recorded"))
	}
	if b.Description == "" {
		issues = append(issues, newIssue(b, IssueInfo, CategoryCompleteness, true,
			"no description recorded"))
	}
	if b.CoverImage == "" {
		issues = append(issues, newIssue(b, IssueInfo, CategoryCompleteness, true,
			"no cover image recorded"))
	}

	return issues
}

func accuracyIssues(b *books.Book) []Issue {
	var issues []Issue

	switch b.EnhancementStatus {
	case books.EnhancementFailed:
		issues = append(issues, newIssue(b, IssueWarning, CategoryAccuracy, true,
			"metadata enrichment failed; retry may succeed"))
	case books.EnhancementNotFound:
		issues = append(issues, newIssue(b, IssueWarning, CategoryAccuracy, false,
			"no catalog match found for this book"))
	}

	if suspiciousAuthors[strings.ToLower(strings.TrimSpace(b.Author))] {
		issues = append(issues, newIssue(b, IssueWarning, CategoryAccuracy, false,
			"author %q looks like a placeholder", b.Author))
	}

	return issues
}

func consistencyIssues(b *books.Book, all []books.Book) []Issue {
	var issues []Issue

	for i := range all {
		other := &all[i]
		if other.ID == b.ID {
			continue
		}
		if Similarity(b.Title, other.Title) >= DuplicateSimilarityThreshold ||
			Similarity(b.Author, other.Author) >= DuplicateSimilarityThreshold {
			issues = append(issues, newIssue(b, IssueWarning, CategoryConsistency, false,
				"possible duplicate of %q by %q (id %s)", other.Title, other.Author, other.ID))
		}
	}

	if uniformCase(b.Title) {
		issues = append(issues, newIssue(b, IssueInfo, CategoryConsistency, true,
			"title %q has uniform casing", b.Title))
	}
	if uniformCase(b.Author) {
		issues = append(issues, newIssue(b, IssueInfo, CategoryConsistency, true,
			"author %q has uniform casing", b.Author))
	}

	return issues
}

// score computes the 0-100 quality score: a weighted blend of the share of
// books clean in each category (completeness 0.4, accuracy 0.4, integrity
// 0.2), minus a penalty for critical issues, clamped to [0, 100]. An empty
// store scores 0.
func score(all []books.Book, report *Report) float64 {
	total := len(all)
	if total == 0 {
		return 0
	}

	flagged := map[IssueCategory]map[string]bool{
		CategoryIntegrity:    {},
		CategoryCompleteness: {},
		CategoryAccuracy:     {},
	}
	criticals := 0
	for _, issue := range report.Issues {
		// Info issues are advisory and do not drag the category down.
		if issue.Type != IssueInfo {
			if m, ok := flagged[issue.Category]; ok {
				m[issue.BookID] = true
			}
		}
		if issue.Type == IssueCritical {
			criticals++
		}
	}

	cleanPct := func(cat IssueCategory) float64 {
		return float64(total-len(flagged[cat])) / float64(total) * 100
	}

	s := 0.4*cleanPct(CategoryCompleteness) +
		0.4*cleanPct(CategoryAccuracy) +
		0.2*cleanPct(CategoryIntegrity)

	penalty := float64(5 * criticals)
	if penalty > 50 {
		penalty = 50
	}
	s -= penalty

	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return math.Round(s*100) / 100
}

// ValidISBN reports whether s is a 13-digit ISBN or a 10-character ISBN
// (final check digit may be X) after stripping separators.
func ValidISBN(s string) bool {
	stripped := strings.ToUpper(nonAlnum.ReplaceAllString(s, ""))
	return isbnPattern.MatchString(stripped)
}

func parseableDate(s string) bool {
	for _, layout := range auditDateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func wellFormedURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// uniformCase reports whether s contains letters and they are all upper-
// or all lower-case. Single-word lowercase titles are still flagged; the
// cleaner can repair them.
func uniformCase(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	upper := strings.ToUpper(s)
	lower := strings.ToLower(s)
	return s == upper || s == lower
}
