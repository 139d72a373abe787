// Package dedupe canonicalizes extracted books by their normalized
// (title, author) key and merges duplicate records.
package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/podshelf/podshelf/internal/books"
)

// Merge folds a candidate list into one record per normalized (title, author)
// key. Links are unioned first-seen-first, distinct contexts are joined with
// " | ", and the earlier episode date wins. The episode ID and title of the
// first-seen record are retained; later episodes' identities are dropped
// (known lossy behavior, pinned by tests).
//
// Merge is idempotent: merging an already-merged list changes nothing.
func Merge(candidates []books.Book) []books.Book {
	merged := make([]books.Book, 0, len(candidates))
	index := make(map[string]int, len(candidates))

	for _, c := range candidates {
		key := c.DedupeKey()
		at, seen := index[key]
		if !seen {
			b := c
			b.ExtractedLinks = dedupeLinks(b.ExtractedLinks)
			index[key] = len(merged)
			merged = append(merged, b)
			continue
		}

		existing := &merged[at]
		existing.ExtractedLinks = unionLinks(existing.ExtractedLinks, c.ExtractedLinks)
		existing.Context = joinContexts(existing.Context, c.Context)
		existing.EpisodeDate = earlierDate(existing.EpisodeDate, c.EpisodeDate)
	}

	return merged
}

// Store is the subset of the persistence layer the stored-duplicate merge
// needs.
type Store interface {
	GetAll(ctx context.Context) ([]books.Book, error)
	Update(ctx context.Context, b *books.Book) error
	Delete(ctx context.Context, id string) error
}

// MergeReport summarizes a stored-duplicate merge run.
type MergeReport struct {
	GroupsMerged   int      `json:"groups_merged"`
	RecordsDeleted int      `json:"records_deleted"`
	Details        []string `json:"details,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

// MergeStoredDuplicates finds groups of stored records sharing a dedupe key,
// folds the extras into the group's first record, and deletes the rest.
// This is destructive and non-reversible; it must only run as an explicit
// maintenance action, never implicitly during extraction.
func MergeStoredDuplicates(ctx context.Context, store Store, logger *slog.Logger) (*MergeReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load books: %w", err)
	}

	groups := make(map[string][]books.Book)
	order := make([]string, 0)
	for _, b := range all {
		key := b.DedupeKey()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], b)
	}

	report := &MergeReport{}
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		primary := group[0]
		for _, extra := range group[1:] {
			primary.ExtractedLinks = unionLinks(primary.ExtractedLinks, extra.ExtractedLinks)
			primary.Context = joinContexts(primary.Context, extra.Context)
			primary.EpisodeDate = earlierDate(primary.EpisodeDate, extra.EpisodeDate)
		}

		if err := store.Update(ctx, &primary); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("update %s: %v", primary.ID, err))
			continue
		}

		deleted := 0
		for _, extra := range group[1:] {
			if err := store.Delete(ctx, extra.ID); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("delete %s: %v", extra.ID, err))
				continue
			}
			deleted++
		}

		report.GroupsMerged++
		report.RecordsDeleted += deleted
		report.Details = append(report.Details,
			fmt.Sprintf("merged %d record(s) into %q by %q", deleted, primary.Title, primary.Author))
		logger.Info("merged duplicate books",
			"title", primary.Title,
			"author", primary.Author,
			"deleted", deleted)
	}

	return report, nil
}

// unionLinks merges two link lists, preserving first-seen order.
func unionLinks(a, b []string) []string {
	out := dedupeLinks(a)
	seen := make(map[string]struct{}, len(out))
	for _, l := range out {
		seen[l] = struct{}{}
	}
	for _, l := range b {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func dedupeLinks(links []string) []string {
	out := make([]string, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// joinContexts concatenates distinct non-empty contexts with " | ",
// skipping a context already contained in the other.
func joinContexts(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case strings.Contains(a, b):
		return a
	case strings.Contains(b, a):
		return b
	default:
		return a + " | " + b
	}
}

// earlierDate returns the earlier of two date strings. Both are compared
// chronologically when parseable, lexically otherwise.
func earlierDate(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}

	ta, errA := parseDate(a)
	tb, errB := parseDate(b)
	if errA == nil && errB == nil {
		if tb.Before(ta) {
			return b
		}
		return a
	}

	if b < a {
		return b
	}
	return a
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
