package extract

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultContextTTL is how long a preserved-context summary stays cached.
const DefaultContextTTL = 24 * time.Hour

// ContextStore caches contextPreserved summaries keyed by episode ID so a
// later extraction for a related episode can reuse them. The summaries are
// advisory prompt text; a miss never blocks extraction.
type ContextStore interface {
	Get(episodeID string) (string, bool)
	Set(episodeID, preserved string)
}

// TTLContextStore is a ContextStore with per-entry expiry, so preserved
// context does not accumulate for the process lifetime.
type TTLContextStore struct {
	cache *gocache.Cache
}

// NewTTLContextStore creates a context store with the given TTL.
// ttl <= 0 uses the default.
func NewTTLContextStore(ttl time.Duration) *TTLContextStore {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &TTLContextStore{
		cache: gocache.New(ttl, ttl/2),
	}
}

// Get returns the preserved context for an episode, if cached.
func (s *TTLContextStore) Get(episodeID string) (string, bool) {
	if episodeID == "" {
		return "", false
	}
	v, ok := s.cache.Get(episodeID)
	if !ok {
		return "", false
	}
	preserved, ok := v.(string)
	return preserved, ok
}

// Set caches the preserved context for an episode, overwriting any prior value.
func (s *TTLContextStore) Set(episodeID, preserved string) {
	if episodeID == "" || preserved == "" {
		return
	}
	s.cache.SetDefault(episodeID, preserved)
}

var _ ContextStore = (*TTLContextStore)(nil)
