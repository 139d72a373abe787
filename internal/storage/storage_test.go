package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/podshelf/podshelf/internal/books"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleBook() *books.Book {
	return &books.Book{
		Title:          "Steve Jobs",
		Author:         "Walter Isaacson",
		EpisodeID:      "ep-42",
		EpisodeTitle:   "Founders #42",
		EpisodeDate:    "2025-08-14",
		ExtractedLinks: []string{"https://example.com/steve-jobs"},
		Context:        "Episode based entirely on the biography.",
		Categories:     []string{"Biography"},
		Confidence:     0.9,
	}
}

func TestInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := sampleBook()
	if err := s.Insert(ctx, b); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if b.ID == "" {
		t.Fatal("Insert did not assign an ID")
	}
	if b.DateAdded.IsZero() {
		t.Fatal("Insert did not set DateAdded")
	}
	if b.EnhancementStatus != books.EnhancementPending {
		t.Errorf("EnhancementStatus = %q, want pending default", b.EnhancementStatus)
	}

	got, err := s.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != b.Title || got.Author != b.Author {
		t.Errorf("got %q / %q", got.Title, got.Author)
	}
	if !reflect.DeepEqual(got.ExtractedLinks, b.ExtractedLinks) {
		t.Errorf("links = %v, want %v", got.ExtractedLinks, b.ExtractedLinks)
	}
	if !reflect.DeepEqual(got.Categories, b.Categories) {
		t.Errorf("categories = %v, want %v", got.Categories, b.Categories)
	}
	if got.Confidence != 0.9 {
		t.Errorf("confidence = %v", got.Confidence)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := sampleBook()
	if err := s.Insert(ctx, b); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	b.EnhancementStatus = books.EnhancementEnhanced
	b.ISBN13 = "9781451648539"
	b.NeedsReview = true
	if err := s.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.EnhancementStatus != books.EnhancementEnhanced {
		t.Errorf("status = %q", got.EnhancementStatus)
	}
	if got.ISBN13 != "9781451648539" {
		t.Errorf("isbn13 = %q", got.ISBN13)
	}
	if !got.NeedsReview {
		t.Error("needs_review not persisted")
	}
}

func TestUpdateMissingBook(t *testing.T) {
	s := newTestStore(t)

	b := sampleBook()
	b.ID = "missing"
	if err := s.Update(context.Background(), b); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := sampleBook()
	if err := s.Insert(ctx, b); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestGetAllOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"First", "Second", "Third"} {
		b := sampleBook()
		b.Title = title
		b.DateAdded = base.Add(time.Duration(i) * time.Hour)
		if err := s.Insert(ctx, b); err != nil {
			t.Fatalf("Insert %q: %v", title, err)
		}
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if all[i].Title != want {
			t.Errorf("all[%d].Title = %q, want %q", i, all[i].Title, want)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}
