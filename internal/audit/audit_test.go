package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/podshelf/podshelf/internal/books"
)

func enhancedBook(id, title, author string) books.Book {
	return books.Book{
		ID:                id,
		Title:             title,
		Author:            author,
		EpisodeDate:       "2025-08-14",
		ISBN:              "9780743273565",
		Description:       "A biography.",
		CoverImage:        "https://example.com/cover.jpg",
		EnhancementStatus: books.EnhancementEnhanced,
		DateAdded:         time.Now(),
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
	}{
		{"Harari", "Harai", 0.8},
		{"Sapiens", "Sapiens", 1.0},
		{"SAPIENS", "sapiens", 1.0},
		{"", "", 1.0},
	}
	for _, tc := range cases {
		if got := Similarity(tc.a, tc.b); got < tc.min {
			t.Errorf("Similarity(%q, %q) = %.3f, want >= %.2f", tc.a, tc.b, got, tc.min)
		}
	}

	if got := Similarity("Sapiens", "Meditations"); got >= DuplicateSimilarityThreshold {
		t.Errorf("unrelated titles scored %.3f, want below threshold", got)
	}
}

func TestValidISBN(t *testing.T) {
	valid := []string{"9780743273565", "978-0-7432-7356-5", "074327356X", "0-7432-7356-X"}
	for _, s := range valid {
		if !ValidISBN(s) {
			t.Errorf("ValidISBN(%q) = false, want true", s)
		}
	}

	invalid := []string{"12345", "97807432735650", "not-an-isbn", ""}
	for _, s := range invalid {
		if ValidISBN(s) {
			t.Errorf("ValidISBN(%q) = true, want false", s)
		}
	}
}

func TestAuditCleanBooks(t *testing.T) {
	all := []books.Book{
		enhancedBook("1", "Steve Jobs", "Walter Isaacson"),
		enhancedBook("2", "The Lean Startup", "Eric Ries"),
	}

	report := Audit(all)
	if report.TotalBooks != 2 {
		t.Fatalf("TotalBooks = %d, want 2", report.TotalBooks)
	}
	if report.ByType[IssueCritical] != 0 {
		t.Errorf("clean books produced %d critical issues", report.ByType[IssueCritical])
	}
	if report.QualityScore != 100 {
		t.Errorf("QualityScore = %.1f, want 100", report.QualityScore)
	}
}

func TestAuditFlagsNearDuplicates(t *testing.T) {
	a := enhancedBook("1", "Sapiens", "Yuval Noah Harari")
	b := enhancedBook("2", "Sapiens: A Brief History", "Yuval Noah Harai")

	report := Audit([]books.Book{a, b})

	found := false
	for _, issue := range report.Issues {
		if issue.Category == CategoryConsistency && issue.Type == IssueWarning {
			found = true
		}
	}
	if !found {
		t.Error("near-duplicate authors were not flagged as a consistency issue")
	}
}

func TestAuditMissingFields(t *testing.T) {
	b := books.Book{ID: "1", EnhancementStatus: books.EnhancementPending}

	report := Audit([]books.Book{b})

	if got := report.ByType[IssueCritical]; got != 2 {
		t.Errorf("missing title and author produced %d criticals, want 2", got)
	}
	if report.ByCategory[CategoryCompleteness] == 0 {
		t.Error("expected completeness issues for an empty record")
	}
}

func TestAuditIntegrityChecks(t *testing.T) {
	b := enhancedBook("1", "Steve Jobs", "Walter Isaacson")
	b.ISBN = "not-real"
	b.EpisodeDate = "sometime last week"
	b.ExtractedLinks = []string{"https://example.com/ok", "not a url"}
	b.AverageRating = 7.5
	b.PageCount = -3

	report := Audit([]books.Book{b})

	if got := report.ByCategory[CategoryIntegrity]; got != 5 {
		t.Errorf("integrity issues = %d, want 5", got)
	}
	if got := report.ByType[IssueCritical]; got != 1 {
		t.Errorf("criticals = %d, want 1 (unparseable date)", got)
	}
}

func TestAuditAccuracyChecks(t *testing.T) {
	b := enhancedBook("1", "Mystery Book", "Unknown")
	b.EnhancementStatus = books.EnhancementNotFound

	report := Audit([]books.Book{b})

	if got := report.ByCategory[CategoryAccuracy]; got != 2 {
		t.Errorf("accuracy issues = %d, want 2", got)
	}
}

func TestAuditUniformCasing(t *testing.T) {
	b := enhancedBook("1", "SAPIENS", "yuval noah harari")

	report := Audit([]books.Book{b})

	casing := 0
	for _, issue := range report.Issues {
		if issue.Category == CategoryConsistency && issue.Type == IssueInfo {
			casing++
		}
	}
	if casing != 2 {
		t.Errorf("casing issues = %d, want 2", casing)
	}
}

func TestQualityScoreBounds(t *testing.T) {
	sets := [][]books.Book{
		nil,
		{enhancedBook("1", "Steve Jobs", "Walter Isaacson")},
		{{ID: "1"}, {ID: "2"}, {ID: "3"}},
		{
			{ID: "1", EpisodeDate: "bad"},
			{ID: "2", EpisodeDate: "worse"},
			{ID: "3", Title: "X", Author: "Unknown", AverageRating: 99},
		},
	}
	for i, set := range sets {
		report := Audit(set)
		if report.QualityScore < 0 || report.QualityScore > 100 {
			t.Errorf("set %d: score %.1f out of [0, 100]", i, report.QualityScore)
		}
	}

	if got := Audit(nil).QualityScore; got != 0 {
		t.Errorf("empty store score = %.1f, want 0", got)
	}
}

type fakeStore struct {
	all []books.Book
}

func (f *fakeStore) GetAll(_ context.Context) ([]books.Book, error) {
	return f.all, nil
}

func TestGenerateReport(t *testing.T) {
	store := &fakeStore{all: []books.Book{enhancedBook("1", "Steve Jobs", "Walter Isaacson")}}
	auditor := New(store, slog.Default())

	report, err := auditor.GenerateReport(context.Background())
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if report.TotalBooks != 1 {
		t.Errorf("TotalBooks = %d, want 1", report.TotalBooks)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}
