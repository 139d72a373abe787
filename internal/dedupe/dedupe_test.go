package dedupe

import (
	"context"
	"reflect"
	"testing"

	"github.com/podshelf/podshelf/internal/books"
)

func TestMerge_CaseAndWhitespaceInsensitiveKey(t *testing.T) {
	in := []books.Book{
		{Title: "Sapiens", Author: "Yuval Noah Harari", EpisodeID: "ep-1"},
		{Title: " sapiens ", Author: "YUVAL NOAH HARARI", EpisodeID: "ep-2"},
	}

	out := Merge(in)
	if len(out) != 1 {
		t.Fatalf("Merge() produced %d records, want 1", len(out))
	}
	// First-seen episode identity is retained; the second's is dropped.
	if out[0].EpisodeID != "ep-1" {
		t.Errorf("EpisodeID = %q, want first-seen ep-1", out[0].EpisodeID)
	}
}

func TestMerge_UnionsLinksAndContexts(t *testing.T) {
	in := []books.Book{
		{
			Title: "Titan", Author: "Ron Chernow",
			ExtractedLinks: []string{"https://a.example", "https://b.example"},
			Context:        "Covered in the Rockefeller episode",
			EpisodeDate:    "2024-03-01",
		},
		{
			Title: "titan", Author: "ron chernow",
			ExtractedLinks: []string{"https://b.example", "https://c.example"},
			Context:        "Mentioned again in the follow-up",
			EpisodeDate:    "2024-01-15",
		},
	}

	out := Merge(in)
	if len(out) != 1 {
		t.Fatalf("Merge() produced %d records, want 1", len(out))
	}

	wantLinks := []string{"https://a.example", "https://b.example", "https://c.example"}
	if !reflect.DeepEqual(out[0].ExtractedLinks, wantLinks) {
		t.Errorf("ExtractedLinks = %v, want %v", out[0].ExtractedLinks, wantLinks)
	}
	wantContext := "Covered in the Rockefeller episode | Mentioned again in the follow-up"
	if out[0].Context != wantContext {
		t.Errorf("Context = %q, want %q", out[0].Context, wantContext)
	}
	if out[0].EpisodeDate != "2024-01-15" {
		t.Errorf("EpisodeDate = %q, want earlier date", out[0].EpisodeDate)
	}
}

func TestMerge_SkipsContainedContext(t *testing.T) {
	in := []books.Book{
		{Title: "A", Author: "B", Context: "The full discussion of the book"},
		{Title: "A", Author: "B", Context: "discussion of the book"},
	}
	out := Merge(in)
	if out[0].Context != "The full discussion of the book" {
		t.Errorf("Context = %q, contained context should not be appended", out[0].Context)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	in := []books.Book{
		{Title: "Sapiens", Author: "Yuval Noah Harari", ExtractedLinks: []string{"https://a.example"}, Context: "first", EpisodeDate: "2024-02-01"},
		{Title: " sapiens ", Author: "YUVAL NOAH HARARI", ExtractedLinks: []string{"https://b.example"}, Context: "second", EpisodeDate: "2024-01-01"},
		{Title: "Shoe Dog", Author: "Phil Knight"},
	}

	once := Merge(in)
	twice := Merge(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_EmptyInput(t *testing.T) {
	if out := Merge(nil); len(out) != 0 {
		t.Errorf("Merge(nil) = %v, want empty", out)
	}
}

// fakeStore is an in-memory Store for merge tests.
type fakeStore struct {
	books   []books.Book
	updated []string
	deleted []string
}

func (s *fakeStore) GetAll(ctx context.Context) ([]books.Book, error) {
	return append([]books.Book(nil), s.books...), nil
}

func (s *fakeStore) Update(ctx context.Context, b *books.Book) error {
	s.updated = append(s.updated, b.ID)
	for i := range s.books {
		if s.books[i].ID == b.ID {
			s.books[i] = *b
		}
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	for i := range s.books {
		if s.books[i].ID == id {
			s.books = append(s.books[:i], s.books[i+1:]...)
			break
		}
	}
	return nil
}

func TestMergeStoredDuplicates(t *testing.T) {
	store := &fakeStore{
		books: []books.Book{
			{ID: "1", Title: "Sapiens", Author: "Yuval Noah Harari", ExtractedLinks: []string{"https://a.example"}, EpisodeDate: "2024-02-01"},
			{ID: "2", Title: "Shoe Dog", Author: "Phil Knight"},
			{ID: "3", Title: "SAPIENS", Author: "yuval noah harari", ExtractedLinks: []string{"https://b.example"}, EpisodeDate: "2024-01-01"},
		},
	}

	report, err := MergeStoredDuplicates(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("MergeStoredDuplicates() error = %v", err)
	}
	if report.GroupsMerged != 1 {
		t.Errorf("GroupsMerged = %d, want 1", report.GroupsMerged)
	}
	if report.RecordsDeleted != 1 {
		t.Errorf("RecordsDeleted = %d, want 1", report.RecordsDeleted)
	}
	if !reflect.DeepEqual(store.deleted, []string{"3"}) {
		t.Errorf("deleted = %v, want [3]", store.deleted)
	}

	// The surviving record absorbed the duplicate's links and earlier date.
	var survivor *books.Book
	for i := range store.books {
		if store.books[i].ID == "1" {
			survivor = &store.books[i]
		}
	}
	if survivor == nil {
		t.Fatal("record 1 missing after merge")
	}
	wantLinks := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(survivor.ExtractedLinks, wantLinks) {
		t.Errorf("links = %v, want %v", survivor.ExtractedLinks, wantLinks)
	}
	if survivor.EpisodeDate != "2024-01-01" {
		t.Errorf("EpisodeDate = %q, want earlier date", survivor.EpisodeDate)
	}
}

func TestMergeStoredDuplicates_NoDuplicates(t *testing.T) {
	store := &fakeStore{
		books: []books.Book{
			{ID: "1", Title: "A", Author: "X"},
			{ID: "2", Title: "B", Author: "Y"},
		},
	}
	report, err := MergeStoredDuplicates(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if report.GroupsMerged != 0 || report.RecordsDeleted != 0 {
		t.Errorf("report = %+v, want no merges", report)
	}
	if len(store.deleted) != 0 {
		t.Errorf("deleted = %v, want none", store.deleted)
	}
}
