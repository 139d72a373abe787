// Package clean applies deterministic normalization rules to stored book
// records: casing, prefixes, ISBN format, URL validity, date format, and
// category hygiene. Cleaning is idempotent and only runs when invoked
// explicitly, never as a side effect of extraction.
package clean

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/podshelf/podshelf/internal/books"
)

// Mode selects which rule set a cleaning run applies.
type Mode string

const (
	// ModeLowRisk applies only whitespace trimming and URL deduplication.
	// Safe for automatic application.
	ModeLowRisk Mode = "low_risk"
	// ModeFull applies the complete rule set, including casing changes,
	// ISBN and date rewriting, and category normalization.
	ModeFull Mode = "full"
)

// FieldChange records a single before/after fix applied to one field.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Result describes the outcome of cleaning a single book.
type Result struct {
	BookID  string        `json:"book_id"`
	Changes []FieldChange `json:"changes,omitempty"`
	Errors  []string      `json:"errors,omitempty"`
}

// Changed reports whether any field was modified.
func (r *Result) Changed() bool { return len(r.Changes) > 0 }

// BulkResult aggregates a cleaning run over the whole store.
type BulkResult struct {
	Mode         Mode     `json:"mode"`
	BooksScanned int      `json:"books_scanned"`
	BooksChanged int      `json:"books_changed"`
	Results      []Result `json:"results,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Store is the persistence surface bulk cleaning needs.
type Store interface {
	GetAll(ctx context.Context) ([]books.Book, error)
	Update(ctx context.Context, b *books.Book) error
}

// smallWords are not capitalized in title case unless first or last.
var smallWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "but": true, "or": true, "for": true, "nor": true,
	"on": true, "at": true, "to": true, "from": true, "by": true,
	"of": true, "in": true,
}

var (
	spaceRun       = regexp.MustCompile(`\s+`)
	titlePrefix    = regexp.MustCompile(`(?i)^(book|title)\s*:\s*`)
	authorPrefix   = regexp.MustCompile(`(?i)^(by|author)\s*:\s*`)
	bookSuffix     = regexp.MustCompile(`(?i)\s*\(book\)\s*$`)
	authorSuffix   = regexp.MustCompile(`(?i)\s*\(author\)\s*$`)
	lastFirst      = regexp.MustCompile(`^([A-Z][\p{L}'-]+),\s+([A-Z][\p{L}'. -]*[\p{L}.])$`)
	nonISBNChar    = regexp.MustCompile(`[^0-9Xx]`)
	embeddedDigits = regexp.MustCompile(`\d{13}|\d{10}`)

	slashDate = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	dashDate  = regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`)
)

// Cleaner normalizes book records in place.
type Cleaner struct {
	store  Store
	logger *slog.Logger
}

// New returns a Cleaner writing through store.
func New(store Store, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{store: store, logger: logger}
}

// CleanBook applies the selected rule set to b in place and returns the
// changes made. Applying the same mode twice yields no further changes.
func CleanBook(b *books.Book, mode Mode) Result {
	res := Result{BookID: b.ID}

	apply := func(field, before, after string) string {
		if after != before {
			res.Changes = append(res.Changes, FieldChange{Field: field, Before: before, After: after})
		}
		return after
	}

	if mode == ModeLowRisk {
		b.Title = apply("title", b.Title, strings.TrimSpace(b.Title))
		b.Author = apply("author", b.Author, strings.TrimSpace(b.Author))
		links, changed := CleanURLs(b.ExtractedLinks)
		if changed {
			res.Changes = append(res.Changes, FieldChange{
				Field:  "extracted_links",
				Before: strings.Join(b.ExtractedLinks, ", "),
				After:  strings.Join(links, ", "),
			})
			b.ExtractedLinks = links
		}
		return res
	}

	b.Title = apply("title", b.Title, CleanTitle(b.Title))
	b.Author = apply("author", b.Author, CleanAuthor(b.Author))
	b.ISBN = apply("isbn", b.ISBN, CleanISBN(b.ISBN))
	b.ISBN10 = apply("isbn10", b.ISBN10, CleanISBN(b.ISBN10))
	b.ISBN13 = apply("isbn13", b.ISBN13, CleanISBN(b.ISBN13))

	links, changed := CleanURLs(b.ExtractedLinks)
	if changed {
		res.Changes = append(res.Changes, FieldChange{
			Field:  "extracted_links",
			Before: strings.Join(b.ExtractedLinks, ", "),
			After:  strings.Join(links, ", "),
		})
		b.ExtractedLinks = links
	}

	if b.EpisodeDate != "" {
		fixed, ok := NormalizeDate(b.EpisodeDate)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("episode date %q could not be repaired", b.EpisodeDate))
		} else {
			b.EpisodeDate = apply("episode_date", b.EpisodeDate, fixed)
		}
	}

	cats, changed := CleanCategories(b.Categories)
	if changed {
		res.Changes = append(res.Changes, FieldChange{
			Field:  "categories",
			Before: strings.Join(b.Categories, ", "),
			After:  strings.Join(cats, ", "),
		})
		b.Categories = cats
	}

	return res
}

// BulkClean fetches every stored book, cleans it, and writes back the ones
// that changed. Per-record storage failures are collected, never fatal.
func (c *Cleaner) BulkClean(ctx context.Context, mode Mode) (*BulkResult, error) {
	all, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("clean: fetching books: %w", err)
	}

	out := &BulkResult{Mode: mode, BooksScanned: len(all)}
	for i := range all {
		b := &all[i]
		res := CleanBook(b, mode)
		if len(res.Errors) > 0 {
			out.Results = append(out.Results, res)
		}
		if !res.Changed() {
			continue
		}
		if err := c.store.Update(ctx, b); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("book %s: %v", b.ID, err))
			c.logger.Warn("failed to persist cleaned book", "id", b.ID, "error", err)
			continue
		}
		out.BooksChanged++
		if len(res.Errors) == 0 {
			out.Results = append(out.Results, res)
		}
		c.logger.Debug("cleaned book", "id", b.ID, "changes", len(res.Changes))
	}

	c.logger.Info("bulk clean complete",
		"mode", mode,
		"scanned", out.BooksScanned,
		"changed", out.BooksChanged,
		"errors", len(out.Errors))
	return out, nil
}

// CleanTitle normalizes a title: trims, strips "book:"/"title:" prefixes
// and a "(book)" suffix, collapses whitespace, and title-cases strings
// that are uniformly upper- or lower-case.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = titlePrefix.ReplaceAllString(s, "")
	s = bookSuffix.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if uniformCase(s) {
		s = titleCase(s)
	}
	return s
}

// CleanAuthor normalizes an author name like CleanTitle, plus reflowing a
// "Last, First" form into "First Last".
func CleanAuthor(s string) string {
	s = strings.TrimSpace(s)
	s = authorPrefix.ReplaceAllString(s, "")
	s = authorSuffix.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if uniformCase(s) {
		s = titleCase(s)
	}
	if m := lastFirst.FindStringSubmatch(s); m != nil {
		s = m[2] + " " + m[1]
	}
	return s
}

// CleanISBN strips separators from an ISBN. If the stripped form is 10 or
// 13 characters it is returned; otherwise an embedded 10- or 13-digit run
// is extracted if present; otherwise the input is returned unchanged.
func CleanISBN(s string) string {
	if s == "" {
		return s
	}
	stripped := strings.ToUpper(nonISBNChar.ReplaceAllString(s, ""))
	if len(stripped) == 10 || len(stripped) == 13 {
		return stripped
	}
	if run := embeddedDigits.FindString(s); run != "" {
		return run
	}
	return s
}

// CleanURLs trims each link, drops malformed ones, and deduplicates
// preserving first occurrence. Reports whether anything changed.
func CleanURLs(links []string) ([]string, bool) {
	if len(links) == 0 {
		return links, false
	}
	seen := make(map[string]bool, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		trimmed := strings.TrimSpace(link)
		if !validURL(trimmed) || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}

	if len(out) == len(links) {
		same := true
		for i := range out {
			if out[i] != links[i] {
				same = false
				break
			}
		}
		if same {
			return links, false
		}
	}
	return out, true
}

// NormalizeDate re-normalizes a date string to an ISO timestamp. Already
// parseable values and YYYY-MM-DD, MM/DD/YYYY, MM-DD-YYYY forms are
// accepted; anything else reports false.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.RFC3339), true
	}

	layouts := []string{"2006-01-02", "1/2/2006", "1-2-2006", time.RFC1123Z, time.RFC1123}
	for i, layout := range layouts {
		switch i {
		case 1:
			if !slashDate.MatchString(s) {
				continue
			}
		case 2:
			if !dashDate.MatchString(s) {
				continue
			}
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), true
		}
	}
	return "", false
}

// CleanCategories trims, drops empties, title-cases, deduplicates, and
// sorts category labels.
func CleanCategories(cats []string) ([]string, bool) {
	if len(cats) == 0 {
		return cats, false
	}
	seen := make(map[string]bool, len(cats))
	out := make([]string, 0, len(cats))
	for _, cat := range cats {
		c := spaceRun.ReplaceAllString(strings.TrimSpace(cat), " ")
		if c == "" {
			continue
		}
		c = titleCase(strings.ToLower(c))
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sortStrings(out)

	if len(out) == len(cats) {
		same := true
		for i := range out {
			if out[i] != cats[i] {
				same = false
				break
			}
		}
		if same {
			return cats, false
		}
	}
	return out, true
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func validURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func uniformCase(s string) bool {
	if s == "" {
		return false
	}
	hasLetter := strings.IndexFunc(s, func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
	}) >= 0
	if !hasLetter {
		return false
	}
	return s == strings.ToUpper(s) || s == strings.ToLower(s)
}

// titleCase capitalizes each word, always capitalizing the first and last
// word and skipping the small-word list elsewhere.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if i != 0 && i != len(words)-1 && smallWords[w] {
			continue
		}
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
