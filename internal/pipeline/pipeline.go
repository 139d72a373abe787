// Package pipeline wires the feed, extractor, scorer, deduplicator, and
// store into the episode processing run. Episodes are processed in small
// concurrent batches; one episode's failure never aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/podshelf/podshelf/internal/books"
	"github.com/podshelf/podshelf/internal/dedupe"
	"github.com/podshelf/podshelf/internal/extract"
	"github.com/podshelf/podshelf/internal/feed"
	"github.com/podshelf/podshelf/internal/score"
)

const (
	// DefaultBatchSize is how many episodes extract concurrently.
	DefaultBatchSize = 5

	// DefaultBatchDelay separates batches to smooth burst load on the LLM
	// API. Complementary to the rate limiter's admission control, which
	// bounds total request volume rather than burstiness.
	DefaultBatchDelay = 1 * time.Second
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetAll(ctx context.Context) ([]books.Book, error)
	Insert(ctx context.Context, b *books.Book) error
	Update(ctx context.Context, b *books.Book) error
}

// Config holds configuration for New.
type Config struct {
	Extractor  *extract.Extractor
	Store      Store
	Logger     *slog.Logger
	BatchSize  int
	BatchDelay time.Duration
}

// Service runs episode batches through extraction and persistence.
type Service struct {
	extractor  *extract.Extractor
	store      Store
	logger     *slog.Logger
	batchSize  int
	batchDelay time.Duration

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// New returns a pipeline Service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	return &Service{
		extractor:  cfg.Extractor,
		store:      cfg.Store,
		logger:     cfg.Logger,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
		sleep:      sleepCtx,
	}
}

// RunResult summarizes one ProcessEpisodes invocation.
type RunResult struct {
	EpisodesProcessed int      `json:"episodes_processed"`
	EpisodesSkipped   int      `json:"episodes_skipped"`
	BooksExtracted    int      `json:"books_extracted"`
	BooksInserted     int      `json:"books_inserted"`
	BooksMerged       int      `json:"books_merged"`
	Errors            []string `json:"errors,omitempty"`
}

// ProcessEpisodes extracts books from every episode and persists the
// deduplicated results. Episodes run in batches of the configured size
// with a fixed delay between batches. The returned error covers only
// store-snapshot failures; per-episode and per-record problems are
// collected in the result.
func (s *Service) ProcessEpisodes(ctx context.Context, episodes []feed.Episode) (*RunResult, error) {
	result := &RunResult{}
	var extracted []books.Book

	for start := 0; start < len(episodes); start += s.batchSize {
		if start > 0 {
			s.sleep(ctx, s.batchDelay)
		}
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("run cancelled: %v", ctx.Err()))
			break
		}

		end := start + s.batchSize
		if end > len(episodes) {
			end = len(episodes)
		}
		batch := episodes[start:end]

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for i := range batch {
			ep := batch[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				found, skipped := s.processEpisode(ctx, ep)

				mu.Lock()
				defer mu.Unlock()
				if skipped {
					result.EpisodesSkipped++
					return
				}
				result.EpisodesProcessed++
				result.BooksExtracted += len(found)
				extracted = append(extracted, found...)
			}()
		}
		wg.Wait()
	}

	if len(extracted) > 0 {
		if err := s.persist(ctx, extracted, result); err != nil {
			return result, err
		}
	}

	s.logger.Info("episode run complete",
		"processed", result.EpisodesProcessed,
		"skipped", result.EpisodesSkipped,
		"extracted", result.BooksExtracted,
		"inserted", result.BooksInserted,
		"merged", result.BooksMerged,
		"errors", len(result.Errors))
	return result, nil
}

// processEpisode extracts and scores one episode's books. Extraction
// itself never fails; an empty description skips the episode.
func (s *Service) processEpisode(ctx context.Context, ep feed.Episode) ([]books.Book, bool) {
	if strings.TrimSpace(ep.Description) == "" {
		s.logger.Debug("skipping episode with empty description", "episode", ep.ID)
		return nil, true
	}

	res := s.extractor.ExtractBooksFromEpisode(ctx, ep.Description, extract.Options{
		EpisodeID:        ep.ID,
		PreservedContext: s.extractor.PreservedContext(ep.ID),
	})

	method := score.MethodSimple
	if res.MultiPass {
		method = score.MethodMultiPass
	}

	now := time.Now().UTC()
	out := make([]books.Book, 0, len(res.FinalBooks))
	for _, cand := range res.FinalBooks {
		sc := score.Calculate(score.Input{
			Title:         cand.Title,
			Author:        cand.Author,
			Context:       cand.Context,
			Links:         cand.Links,
			LLMConfidence: cand.Confidence,
			Method:        method,
		})
		out = append(out, books.Book{
			Title:             strings.TrimSpace(cand.Title),
			Author:            strings.TrimSpace(cand.Author),
			EpisodeID:         ep.ID,
			EpisodeTitle:      ep.Title,
			EpisodeDate:       ep.PubDate,
			ExtractedLinks:    cand.Links,
			Context:           cand.Context,
			EnhancementStatus: books.EnhancementPending,
			Confidence:        sc.Score,
			NeedsReview:       sc.NeedsReview,
			DateAdded:         now,
		})
	}

	s.logger.Debug("episode extracted",
		"episode", ep.ID,
		"books", len(out),
		"multi_pass", res.MultiPass,
		"confidence", res.OverallConfidence)
	return out, false
}

// persist folds the new books into the store. Existing records are listed
// first so a duplicate merges into the stored record rather than a fresh
// one; survivors with IDs are updated, the rest inserted.
func (s *Service) persist(ctx context.Context, extracted []books.Book, result *RunResult) error {
	existing, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: fetching stored books: %w", err)
	}

	existingIDs := make(map[string]bool, len(existing))
	for _, b := range existing {
		existingIDs[b.ID] = true
	}
	touched := make(map[string]bool, len(extracted))
	for _, b := range extracted {
		touched[b.DedupeKey()] = true
	}

	merged := dedupe.Merge(append(existing, extracted...))
	for i := range merged {
		b := &merged[i]
		if b.ID != "" && existingIDs[b.ID] {
			// Stored record untouched by this run, nothing to write.
			if !touched[b.DedupeKey()] {
				continue
			}
			if err := s.store.Update(ctx, b); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("book %s: %v", b.ID, err))
				continue
			}
			result.BooksMerged++
			continue
		}
		if err := s.store.Insert(ctx, b); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("book %q: %v", b.Title, err))
			continue
		}
		result.BooksInserted++
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
