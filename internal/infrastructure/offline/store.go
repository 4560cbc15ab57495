// Package offline implements the offline cache gateway: a caching reverse
// proxy in front of the application server that keeps serving cached
// responses when the upstream is unreachable. Cached entries are grouped
// into named generations so a deploy can atomically retire stale content.
package offline

import (
	"net/http"
	"sync"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
)

// CachedResponse is one stored upstream response
type CachedResponse struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Store is a generation-keyed response cache
type Store struct {
	generations map[string]map[string]*CachedResponse // generation -> cacheKey -> response
	mu          sync.RWMutex
	logger      *logging.ChanneledLogger
}

// NewStore creates an empty response store
func NewStore(logger *logging.ChanneledLogger) *Store {
	return &Store{
		generations: make(map[string]map[string]*CachedResponse),
		logger:      logger,
	}
}

// Put stores a response under a generation and cache key
func (s *Store) Put(generation, key string, resp *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[generation] == nil {
		s.generations[generation] = make(map[string]*CachedResponse)
	}
	s.generations[generation][key] = resp
	s.logger.Offline().Debug("Response cached", "generation", generation, "key", key, "bytes", len(resp.Body))
}

// Get returns the cached response for a key within a generation
func (s *Store) Get(generation, key string) (*CachedResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.generations[generation]
	if !ok {
		return nil, false
	}
	resp, ok := entries[key]
	return resp, ok
}

// PurgeExcept deletes every generation other than the one named. Returns
// the names of the purged generations.
func (s *Store) PurgeExcept(keep string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged []string
	for generation := range s.generations {
		if generation != keep {
			delete(s.generations, generation)
			purged = append(purged, generation)
		}
	}
	if len(purged) > 0 {
		s.logger.Offline().Info("Stale cache generations purged", "kept", keep, "purged", purged)
	}
	return purged
}

// Generations lists the generation names currently held
func (s *Store) Generations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.generations))
	for generation := range s.generations {
		names = append(names, generation)
	}
	return names
}

// Len returns the entry count within a generation
func (s *Store) Len(generation string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.generations[generation])
}
