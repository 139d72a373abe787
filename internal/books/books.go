// Package books provides the shared book domain types used across the
// extraction, enrichment, and maintenance packages.
// This package has no dependencies on other podshelf packages to avoid import cycles.
package books

import (
	"strings"
	"time"
)

// EnhancementStatus tracks the outcome of metadata enrichment for a book.
type EnhancementStatus string

const (
	// EnhancementPending means no enrichment attempt has completed yet.
	EnhancementPending EnhancementStatus = "pending"
	// EnhancementEnhanced means catalog metadata was found and applied.
	EnhancementEnhanced EnhancementStatus = "enhanced"
	// EnhancementFailed means the enrichment attempt errored.
	EnhancementFailed EnhancementStatus = "failed"
	// EnhancementNotFound means the catalog had no match for the book.
	EnhancementNotFound EnhancementStatus = "not_found"
)

// ParseEnhancementStatus converts a string to an EnhancementStatus.
// Returns EnhancementPending if the string is not recognized.
func ParseEnhancementStatus(s string) EnhancementStatus {
	switch s {
	case "enhanced":
		return EnhancementEnhanced
	case "failed":
		return EnhancementFailed
	case "not_found":
		return EnhancementNotFound
	default:
		return EnhancementPending
	}
}

// Book is the persisted record for a single extracted book mention.
// Identity for duplicate detection is the normalized (title, author) pair;
// see Key.
type Book struct {
	ID string `json:"id"`

	// Extraction fields
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	EpisodeID      string   `json:"episode_id,omitempty"`
	EpisodeTitle   string   `json:"episode_title,omitempty"`
	EpisodeDate    string   `json:"episode_date,omitempty"`
	ExtractedLinks []string `json:"extracted_links,omitempty"`
	Context        string   `json:"context,omitempty"`

	// Enrichment fields (populated by the metadata enricher)
	ISBN          string   `json:"isbn,omitempty"`
	ISBN13        string   `json:"isbn13,omitempty"`
	ISBN10        string   `json:"isbn10,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	Description   string   `json:"description,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	AverageRating float64  `json:"average_rating,omitempty"`
	RatingsCount  int      `json:"ratings_count,omitempty"`
	Language      string   `json:"language,omitempty"`
	CoverImage    string   `json:"cover_image,omitempty"`

	EnhancementStatus EnhancementStatus `json:"enhancement_status"`
	Confidence        float64           `json:"confidence"`
	NeedsReview       bool              `json:"needs_review"`
	DateAdded         time.Time         `json:"date_added"`
}

// Key returns the normalized duplicate-detection key for a (title, author)
// pair: lowercased, trimmed, joined with "|". Every duplicate check in the
// system uses this key.
func Key(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(author))
}

// DedupeKey returns the book's own duplicate-detection key.
func (b *Book) DedupeKey() string {
	return Key(b.Title, b.Author)
}

// Candidate is a book mention produced by a single extraction pass.
// Candidates are immutable once a pass completes; the next pass produces
// new candidates rather than mutating these.
type Candidate struct {
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Links      []string `json:"links,omitempty"`
	Context    string   `json:"context,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// Valid reports whether the candidate passes basic sanity checks.
// Invalid candidates are filtered out of pass results, never fatal.
func (c *Candidate) Valid() bool {
	title := strings.TrimSpace(c.Title)
	author := strings.TrimSpace(c.Author)
	if title == "" || author == "" {
		return false
	}
	return len(title) <= 500 && len(author) <= 500
}
