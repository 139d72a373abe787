// Package storage provides the SQLite persistence layer for extracted
// books. All records live in a single database file; list-valued fields
// (links, categories) are stored as JSON text columns.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/podshelf/podshelf/internal/books"
)

// ErrNotFound is returned when a book ID does not exist.
var ErrNotFound = errors.New("storage: book not found")

// Config holds configuration for New.
type Config struct {
	// DBPath is the database file location. Pass ":memory:" for tests.
	DBPath string
}

// SQLiteStore persists books in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// New opens (creating if needed) the books database at cfg.DBPath.
func New(cfg Config) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("storage: db path is required")
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	author             TEXT NOT NULL,
	episode_id         TEXT NOT NULL DEFAULT '',
	episode_title      TEXT NOT NULL DEFAULT '',
	episode_date       TEXT NOT NULL DEFAULT '',
	extracted_links    TEXT NOT NULL DEFAULT '[]',
	context            TEXT NOT NULL DEFAULT '',
	isbn               TEXT NOT NULL DEFAULT '',
	isbn13             TEXT NOT NULL DEFAULT '',
	isbn10             TEXT NOT NULL DEFAULT '',
	publisher          TEXT NOT NULL DEFAULT '',
	published_date     TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	page_count         INTEGER NOT NULL DEFAULT 0,
	categories         TEXT NOT NULL DEFAULT '[]',
	average_rating     REAL NOT NULL DEFAULT 0,
	ratings_count      INTEGER NOT NULL DEFAULT 0,
	language           TEXT NOT NULL DEFAULT '',
	cover_image        TEXT NOT NULL DEFAULT '',
	enhancement_status TEXT NOT NULL DEFAULT 'pending',
	confidence         REAL NOT NULL DEFAULT 0,
	needs_review       INTEGER NOT NULL DEFAULT 0,
	date_added         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_books_title_author ON books(title, author);
CREATE INDEX IF NOT EXISTS idx_books_episode ON books(episode_id);
CREATE INDEX IF NOT EXISTS idx_books_status ON books(enhancement_status);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const bookColumns = `id, title, author, episode_id, episode_title, episode_date,
	extracted_links, context, isbn, isbn13, isbn10, publisher, published_date,
	description, page_count, categories, average_rating, ratings_count,
	language, cover_image, enhancement_status, confidence, needs_review, date_added`

// Insert stores a new book. A missing ID gets a fresh UUID; a zero
// DateAdded gets the current time.
func (s *SQLiteStore) Insert(ctx context.Context, b *books.Book) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.DateAdded.IsZero() {
		b.DateAdded = time.Now().UTC()
	}
	if b.EnhancementStatus == "" {
		b.EnhancementStatus = books.EnhancementPending
	}

	links, err := encodeList(b.ExtractedLinks)
	if err != nil {
		return fmt.Errorf("encoding links: %w", err)
	}
	cats, err := encodeList(b.Categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Author, b.EpisodeID, b.EpisodeTitle, b.EpisodeDate,
		links, b.Context, b.ISBN, b.ISBN13, b.ISBN10, b.Publisher, b.PublishedDate,
		b.Description, b.PageCount, cats, b.AverageRating, b.RatingsCount,
		b.Language, b.CoverImage, string(b.EnhancementStatus), b.Confidence,
		boolInt(b.NeedsReview), b.DateAdded.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting book %s: %w", b.ID, err)
	}
	return nil
}

// Update replaces the full stored record for b.ID.
func (s *SQLiteStore) Update(ctx context.Context, b *books.Book) error {
	links, err := encodeList(b.ExtractedLinks)
	if err != nil {
		return fmt.Errorf("encoding links: %w", err)
	}
	cats, err := encodeList(b.Categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE books SET
		title = ?, author = ?, episode_id = ?, episode_title = ?, episode_date = ?,
		extracted_links = ?, context = ?, isbn = ?, isbn13 = ?, isbn10 = ?,
		publisher = ?, published_date = ?, description = ?, page_count = ?,
		categories = ?, average_rating = ?, ratings_count = ?, language = ?,
		cover_image = ?, enhancement_status = ?, confidence = ?, needs_review = ?,
		date_added = ?
		WHERE id = ?`,
		b.Title, b.Author, b.EpisodeID, b.EpisodeTitle, b.EpisodeDate,
		links, b.Context, b.ISBN, b.ISBN13, b.ISBN10,
		b.Publisher, b.PublishedDate, b.Description, b.PageCount,
		cats, b.AverageRating, b.RatingsCount, b.Language,
		b.CoverImage, string(b.EnhancementStatus), b.Confidence, boolInt(b.NeedsReview),
		b.DateAdded.Format(time.RFC3339), b.ID)
	if err != nil {
		return fmt.Errorf("updating book %s: %w", b.ID, err)
	}
	return requireRow(res, b.ID)
}

// Delete removes a book by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting book %s: %w", id, err)
	}
	return requireRow(res, id)
}

// GetByID fetches a single book.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*books.Book, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching book %s: %w", id, err)
	}
	return b, nil
}

// GetAll returns every stored book ordered by insertion date.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]books.Book, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+bookColumns+" FROM books ORDER BY date_added, id")
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	var out []books.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Count returns the number of stored books.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting books: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*books.Book, error) {
	var (
		b           books.Book
		links, cats string
		status      string
		needsReview int
		dateAdded   string
	)
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.EpisodeID, &b.EpisodeTitle, &b.EpisodeDate,
		&links, &b.Context, &b.ISBN, &b.ISBN13, &b.ISBN10, &b.Publisher, &b.PublishedDate,
		&b.Description, &b.PageCount, &cats, &b.AverageRating, &b.RatingsCount,
		&b.Language, &b.CoverImage, &status, &b.Confidence, &needsReview, &dateAdded)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(links), &b.ExtractedLinks); err != nil {
		return nil, fmt.Errorf("decoding links: %w", err)
	}
	if err := json.Unmarshal([]byte(cats), &b.Categories); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}
	if len(b.ExtractedLinks) == 0 {
		b.ExtractedLinks = nil
	}
	if len(b.Categories) == 0 {
		b.Categories = nil
	}
	b.EnhancementStatus = books.ParseEnhancementStatus(status)
	b.NeedsReview = needsReview != 0
	if t, err := time.Parse(time.RFC3339, dateAdded); err == nil {
		b.DateAdded = t
	}
	return &b, nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
