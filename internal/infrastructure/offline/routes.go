package offline

import (
	"net/http"
	"strings"
)

// Strategy selects how a request is served relative to the cache
type Strategy string

const (
	// CacheFirst serves from cache when present, fetching only on a miss
	CacheFirst Strategy = "cache-first"
	// NetworkFirst fetches upstream, falling back to cache on failure
	NetworkFirst Strategy = "network-first"
	// NetworkOnly always passes through without touching the cache
	NetworkOnly Strategy = "network-only"
)

// Route maps a request predicate to a caching strategy. The first matching
// route wins.
type Route struct {
	Match    func(r *http.Request) bool
	Strategy Strategy
}

// DefaultRoutes returns the standard routing table: mutations and realtime
// streams pass through untouched, API reads are network-first, and static
// assets are cache-first.
func DefaultRoutes() []Route {
	return []Route{
		{
			// Mutations must reach the real server or fail
			Match:    func(r *http.Request) bool { return r.Method != http.MethodGet },
			Strategy: NetworkOnly,
		},
		{
			// Long-lived streams cannot be cached
			Match: func(r *http.Request) bool {
				return strings.Contains(r.URL.Path, "/sse") || strings.Contains(r.URL.Path, "/stream")
			},
			Strategy: NetworkOnly,
		},
		{
			Match:    func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/api/") },
			Strategy: NetworkFirst,
		},
		{
			Match:    func(r *http.Request) bool { return true },
			Strategy: CacheFirst,
		},
	}
}

// resolveStrategy walks the routing table for a request
func resolveStrategy(routes []Route, r *http.Request) Strategy {
	for _, route := range routes {
		if route.Match(r) {
			return route.Strategy
		}
	}
	return NetworkOnly
}

// cacheKey identifies a request in the store. Query strings participate so
// parameterized API reads cache independently.
func cacheKey(r *http.Request) string {
	if r.URL.RawQuery != "" {
		return r.URL.Path + "?" + r.URL.RawQuery
	}
	return r.URL.Path
}
