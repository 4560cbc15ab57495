package offline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
)

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = false
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger
}

// flakyFetcher wraps a real client and fails every request when down
type flakyFetcher struct {
	client *http.Client
	down   atomic.Bool
}

func (f *flakyFetcher) Do(req *http.Request) (*http.Response, error) {
	if f.down.Load() {
		return nil, errors.New("connection refused")
	}
	return f.client.Do(req)
}

func newTestGateway(t *testing.T) (*Gateway, *flakyFetcher, *httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/"):
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true,"path":"` + r.URL.Path + `"}`))
		default:
			w.Write([]byte("static:" + r.URL.Path))
		}
	}))
	t.Cleanup(upstream.Close)

	fetcher := &flakyFetcher{client: upstream.Client()}
	store := NewStore(testLogger(t))
	gw := NewGatewayWithUpstream(upstream.URL, "test-gen-v2", store, fetcher, testLogger(t))
	return gw, fetcher, upstream, &hits
}

func TestInstallWarmsCache(t *testing.T) {
	gw, _, _, _ := newTestGateway(t)

	if err := gw.Install(context.Background(), []string{"/", "/app.css"}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if n := gw.store.Len("test-gen-v2"); n != 2 {
		t.Fatalf("warmed entries = %d, want 2", n)
	}
}

func TestActivatePurgesOldGenerations(t *testing.T) {
	gw, _, _, _ := newTestGateway(t)

	gw.store.Put("test-gen-v1", "/", &CachedResponse{Status: 200})
	gw.store.Put("test-gen-v2", "/", &CachedResponse{Status: 200})

	gw.Activate()

	generations := gw.store.Generations()
	if len(generations) != 1 || generations[0] != "test-gen-v2" {
		t.Fatalf("generations after activate = %v, want [test-gen-v2]", generations)
	}
}

func TestCacheFirstServesFromCacheWithoutUpstream(t *testing.T) {
	gw, fetcher, _, hits := newTestGateway(t)

	// First request populates the cache
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	firstHits := hits.Load()

	// Second request must not touch the upstream, even when it is down
	fetcher.down.Store(true)
	rec = httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cached request status = %d", rec.Code)
	}
	if rec.Body.String() != "static:/app.css" {
		t.Fatalf("cached body = %q", rec.Body.String())
	}
	if hits.Load() != firstHits {
		t.Fatal("cache-first hit the upstream on a warm cache")
	}
}

func TestNetworkFirstPrefersUpstream(t *testing.T) {
	gw, _, _, hits := newTestGateway(t)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	rec = httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if hits.Load() != 2 {
		t.Fatalf("upstream hits = %d, want 2 (network-first must always try upstream)", hits.Load())
	}
}

func TestNetworkFirstFallsBackToCacheWhenDown(t *testing.T) {
	gw, fetcher, _, _ := newTestGateway(t)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	want := rec.Body.String()

	fetcher.down.Store(true)
	rec = httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != want {
		t.Fatalf("fallback response = %d %q, want cached %q", rec.Code, rec.Body.String(), want)
	}
}

func TestOfflineSynthesizedResponse(t *testing.T) {
	gw, fetcher, _, _ := newTestGateway(t)
	fetcher.down.Store(true)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/never-cached", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("offline body is not JSON: %v", err)
	}
	if body["status"] != "offline" {
		t.Fatalf("offline body = %v", body)
	}
}

func TestMutationsNeverServedFromCache(t *testing.T) {
	gw, fetcher, _, _ := newTestGateway(t)

	// Warm the same path with a GET
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/user/data", nil))

	fetcher.down.Store(true)
	rec = httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/user/data", strings.NewReader(`{}`)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("POST while offline = %d, want 503 (mutations must not be cached)", rec.Code)
	}
}

func TestStreamsBypassCache(t *testing.T) {
	gw, _, _, _ := newTestGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/sse", nil)
	if got := resolveStrategy(gw.routes, req); got != NetworkOnly {
		t.Fatalf("sse strategy = %s, want network-only", got)
	}
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	a := httptest.NewRequest(http.MethodGet, "/api/v1/stats?range=7d", nil)
	b := httptest.NewRequest(http.MethodGet, "/api/v1/stats?range=30d", nil)
	if cacheKey(a) == cacheKey(b) {
		t.Fatal("different query strings must cache independently")
	}
}
