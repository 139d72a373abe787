package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/podshelf/podshelf/internal/books"
)

const volumeJSON = `{
	"totalItems": 1,
	"items": [{
		"volumeInfo": {
			"title": "Steve Jobs",
			"authors": ["Walter Isaacson"],
			"publisher": "Simon & Schuster",
			"publishedDate": "2011-10-24",
			"description": "The biography of Steve Jobs.",
			"pageCount": 656,
			"categories": ["Biography & Autobiography"],
			"averageRating": 4.5,
			"ratingsCount": 1200,
			"language": "en",
			"imageLinks": {"thumbnail": "https://example.com/cover.jpg"},
			"industryIdentifiers": [
				{"type": "ISBN_13", "identifier": "9781451648539"},
				{"type": "ISBN_10", "identifier": "1451648537"}
			]
		}
	}]
}`

func newEnricher(srv *httptest.Server) *Enricher {
	return New(Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Retries:    2,
	})
}

func TestEnhanceAppliesMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if !strings.Contains(q, "intitle:Steve Jobs") || !strings.Contains(q, "inauthor:Walter Isaacson") {
			t.Errorf("query = %q", q)
		}
		w.Write([]byte(volumeJSON))
	}))
	defer srv.Close()

	b := &books.Book{Title: "Steve Jobs", Author: "Walter Isaacson"}
	if err := newEnricher(srv).Enhance(context.Background(), b); err != nil {
		t.Fatalf("Enhance: %v", err)
	}

	if b.EnhancementStatus != books.EnhancementEnhanced {
		t.Errorf("status = %q", b.EnhancementStatus)
	}
	if b.ISBN13 != "9781451648539" || b.ISBN10 != "1451648537" || b.ISBN != "9781451648539" {
		t.Errorf("isbns = %q / %q / %q", b.ISBN, b.ISBN13, b.ISBN10)
	}
	if b.Publisher != "Simon & Schuster" || b.PageCount != 656 {
		t.Errorf("publisher = %q, pages = %d", b.Publisher, b.PageCount)
	}
	if b.CoverImage != "https://example.com/cover.jpg" {
		t.Errorf("cover = %q", b.CoverImage)
	}
}

func TestEnhanceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalItems": 0}`))
	}))
	defer srv.Close()

	b := &books.Book{Title: "Nonexistent", Author: "Nobody"}
	if err := newEnricher(srv).Enhance(context.Background(), b); err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if b.EnhancementStatus != books.EnhancementNotFound {
		t.Errorf("status = %q, want not_found", b.EnhancementStatus)
	}
}

func TestEnhanceRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(volumeJSON))
	}))
	defer srv.Close()

	b := &books.Book{Title: "Steve Jobs", Author: "Walter Isaacson"}
	if err := newEnricher(srv).Enhance(context.Background(), b); err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	if b.EnhancementStatus != books.EnhancementEnhanced {
		t.Errorf("status = %q", b.EnhancementStatus)
	}
}

func TestEnhanceClientErrorAborts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	b := &books.Book{Title: "Steve Jobs", Author: "Walter Isaacson"}
	err := newEnricher(srv).Enhance(context.Background(), b)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 403)", got)
	}
	if b.EnhancementStatus != books.EnhancementFailed {
		t.Errorf("status = %q, want failed", b.EnhancementStatus)
	}
}

type fakeEnricher struct {
	status map[string]books.EnhancementStatus
	err    map[string]error
}

func (f *fakeEnricher) Enhance(_ context.Context, b *books.Book) error {
	if err := f.err[b.ID]; err != nil {
		b.EnhancementStatus = books.EnhancementFailed
		return err
	}
	b.EnhancementStatus = f.status[b.ID]
	return nil
}

type fakeStore struct {
	all     []books.Book
	updated []string
}

func (f *fakeStore) GetAll(_ context.Context) ([]books.Book, error) {
	out := make([]books.Book, len(f.all))
	copy(out, f.all)
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, b *books.Book) error {
	f.updated = append(f.updated, b.ID)
	return nil
}

func TestEnrichAll(t *testing.T) {
	store := &fakeStore{all: []books.Book{
		{ID: "1", Title: "A", EnhancementStatus: books.EnhancementPending},
		{ID: "2", Title: "B", EnhancementStatus: books.EnhancementEnhanced},
		{ID: "3", Title: "C", EnhancementStatus: books.EnhancementFailed},
		{ID: "4", Title: "D", EnhancementStatus: books.EnhancementPending},
	}}
	enricher := &fakeEnricher{
		status: map[string]books.EnhancementStatus{
			"1": books.EnhancementEnhanced,
			"3": books.EnhancementNotFound,
		},
		err: map[string]error{"4": errors.New("api down")},
	}

	res, err := EnrichAll(context.Background(), enricher, store, nil)
	if err != nil {
		t.Fatalf("EnrichAll: %v", err)
	}

	if res.Scanned != 3 {
		t.Errorf("Scanned = %d, want 3 (enhanced records skipped)", res.Scanned)
	}
	if res.Enhanced != 1 || res.NotFound != 1 || res.Failed != 1 {
		t.Errorf("counts = %+v", res)
	}
	if len(store.updated) != 3 {
		t.Errorf("updated = %v, want all scanned books written back", store.updated)
	}
}
