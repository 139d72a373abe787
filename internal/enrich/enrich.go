// Package enrich fills in catalog metadata for extracted books using the
// Google Books volumes API. Enrichment never runs inline during
// extraction; it is a separate step over already-stored records.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/podshelf/podshelf/internal/books"
)

// DefaultBaseURL is the Google Books volumes endpoint.
const DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// DefaultTimeout bounds a single catalog lookup.
const DefaultTimeout = 15 * time.Second

// Store is the persistence surface batch enrichment needs.
type Store interface {
	GetAll(ctx context.Context) ([]books.Book, error)
	Update(ctx context.Context, b *books.Book) error
}

// MetadataEnricher looks up catalog metadata for a single book.
type MetadataEnricher interface {
	Enhance(ctx context.Context, b *books.Book) error
}

// Config holds configuration for New.
type Config struct {
	BaseURL    string
	APIKey     string // optional; raises quota when set
	HTTPClient *http.Client
	Logger     *slog.Logger
	Retries    uint
}

// Enricher queries Google Books and applies results to book records.
type Enricher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	retries    uint
}

// New returns an Enricher.
func New(cfg Config) *Enricher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	return &Enricher{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		retries:    cfg.Retries,
	}
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string       `json:"title"`
	Authors             []string     `json:"authors"`
	Publisher           string       `json:"publisher"`
	PublishedDate       string       `json:"publishedDate"`
	Description         string       `json:"description"`
	PageCount           int          `json:"pageCount"`
	Categories          []string     `json:"categories"`
	AverageRating       float64      `json:"averageRating"`
	RatingsCount        int          `json:"ratingsCount"`
	Language            string       `json:"language"`
	ImageLinks          imageLinks   `json:"imageLinks"`
	IndustryIdentifiers []identifier `json:"industryIdentifiers"`
}

type imageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

type identifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// Enhance looks up b by title and author and applies the best match in
// place, setting EnhancementStatus to enhanced, not_found, or failed.
func (e *Enricher) Enhance(ctx context.Context, b *books.Book) error {
	info, found, err := e.lookup(ctx, b.Title, b.Author)
	if err != nil {
		b.EnhancementStatus = books.EnhancementFailed
		return fmt.Errorf("enrich: looking up %q: %w", b.Title, err)
	}
	if !found {
		b.EnhancementStatus = books.EnhancementNotFound
		return nil
	}

	apply(b, info)
	b.EnhancementStatus = books.EnhancementEnhanced
	return nil
}

// lookup queries the volumes API with retries. Transient failures are
// retried; a clean empty result is not.
func (e *Enricher) lookup(ctx context.Context, title, author string) (*volumeInfo, bool, error) {
	query := fmt.Sprintf("intitle:%s", strings.TrimSpace(title))
	if strings.TrimSpace(author) != "" {
		query += fmt.Sprintf("+inauthor:%s", strings.TrimSpace(author))
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", "5")
	if e.apiKey != "" {
		params.Set("key", e.apiKey)
	}
	reqURL := e.baseURL + "?" + params.Encode()

	var result volumesResponse
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := e.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			switch {
			case resp.StatusCode == http.StatusOK:
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("status %d", resp.StatusCode)
			default:
				return retry.Unrecoverable(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
			}
			return json.Unmarshal(body, &result)
		},
		retry.Attempts(e.retries),
		retry.Context(ctx),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, false, err
	}

	if result.TotalItems == 0 || len(result.Items) == 0 {
		return nil, false, nil
	}
	return &result.Items[0].VolumeInfo, true, nil
}

// apply copies catalog metadata onto b, only filling fields the catalog
// actually returned.
func apply(b *books.Book, info *volumeInfo) {
	b.Publisher = info.Publisher
	b.PublishedDate = info.PublishedDate
	if info.Description != "" {
		b.Description = info.Description
	}
	b.PageCount = info.PageCount
	if len(info.Categories) > 0 {
		b.Categories = info.Categories
	}
	b.AverageRating = info.AverageRating
	b.RatingsCount = info.RatingsCount
	b.Language = info.Language
	if info.ImageLinks.Thumbnail != "" {
		b.CoverImage = info.ImageLinks.Thumbnail
	} else if info.ImageLinks.SmallThumbnail != "" {
		b.CoverImage = info.ImageLinks.SmallThumbnail
	}

	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			b.ISBN13 = id.Identifier
		case "ISBN_10":
			b.ISBN10 = id.Identifier
		}
	}
	if b.ISBN == "" {
		if b.ISBN13 != "" {
			b.ISBN = b.ISBN13
		} else if b.ISBN10 != "" {
			b.ISBN = b.ISBN10
		}
	}
}

// BatchResult summarizes an EnrichAll run.
type BatchResult struct {
	Scanned  int      `json:"scanned"`
	Enhanced int      `json:"enhanced"`
	NotFound int      `json:"not_found"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// EnrichAll enriches every stored book whose status is pending or failed
// and writes results back. Per-book failures are collected, never fatal.
func EnrichAll(ctx context.Context, enricher MetadataEnricher, store Store, logger *slog.Logger) (*BatchResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("enrich: fetching books: %w", err)
	}

	out := &BatchResult{}
	for i := range all {
		b := &all[i]
		if b.EnhancementStatus == books.EnhancementEnhanced || b.EnhancementStatus == books.EnhancementNotFound {
			continue
		}
		out.Scanned++

		if err := enricher.Enhance(ctx, b); err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("book %s: %v", b.ID, err))
			logger.Warn("enrichment failed", "id", b.ID, "title", b.Title, "error", err)
		} else if b.EnhancementStatus == books.EnhancementNotFound {
			out.NotFound++
		} else {
			out.Enhanced++
		}

		if err := store.Update(ctx, b); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("book %s: persisting: %v", b.ID, err))
			logger.Warn("failed to persist enriched book", "id", b.ID, "error", err)
		}
	}

	logger.Info("enrichment run complete",
		"scanned", out.Scanned,
		"enhanced", out.Enhanced,
		"not_found", out.NotFound,
		"failed", out.Failed)
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
