package offline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

// Fetcher performs upstream requests. *http.Client satisfies it; tests
// substitute a stub to simulate outages.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway is the offline cache worker. It proxies requests to the upstream
// application server, caching per the routing table, and degrades to cached
// or synthesized responses when the upstream is down.
type Gateway struct {
	upstream   string
	generation string
	store      *Store
	routes     []Route
	fetcher    Fetcher
	logger     *logging.ChanneledLogger
	activated  bool
}

// NewGateway creates a gateway from configuration
func NewGateway(store *Store, fetcher Fetcher, logger *logging.ChanneledLogger) *Gateway {
	if fetcher == nil {
		fetcher = &http.Client{Timeout: 30 * time.Second}
	}
	return &Gateway{
		upstream:   config.OfflineUpstreamURL,
		generation: config.OfflineCacheGeneration,
		store:      store,
		routes:     DefaultRoutes(),
		fetcher:    fetcher,
		logger:     logger,
	}
}

// NewGatewayWithUpstream creates a gateway against an explicit upstream and
// generation, used by tests
func NewGatewayWithUpstream(upstream, generation string, store *Store, fetcher Fetcher, logger *logging.ChanneledLogger) *Gateway {
	g := NewGateway(store, fetcher, logger)
	g.upstream = upstream
	g.generation = generation
	return g
}

// Install warms the cache with the given static paths. Failures on
// individual paths are logged and skipped so one missing asset cannot block
// installation.
func (g *Gateway) Install(ctx context.Context, precachePaths []string) error {
	start := time.Now()
	g.logger.Offline().Info("Gateway install started", "generation", g.generation, "paths", len(precachePaths))

	warmed := 0
	for _, path := range precachePaths {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.upstream+path, nil)
		if err != nil {
			return err
		}
		cached, err := g.fetchAndCache(req, path)
		if err != nil || cached == nil {
			g.logger.Offline().Warn("Precache fetch failed", "path", path, "error", errString(err))
			continue
		}
		warmed++
	}

	g.logger.Offline().Info("Gateway install complete", "generation", g.generation, "warmed", warmed, "duration", time.Since(start))
	return nil
}

// Activate purges every generation except the current one and starts
// serving. Mirrors the install/activate split so an aborted install never
// destroys the previous generation.
func (g *Gateway) Activate() {
	purged := g.store.PurgeExcept(g.generation)
	g.activated = true
	g.logger.Offline().Info("Gateway activated", "generation", g.generation, "purgedGenerations", len(purged))
}

// ServeHTTP applies the routing table to an incoming request
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	strategy := resolveStrategy(g.routes, r)
	key := cacheKey(r)

	switch strategy {
	case CacheFirst:
		g.serveCacheFirst(w, r, key)
	case NetworkFirst:
		g.serveNetworkFirst(w, r, key)
	default:
		g.servePassthrough(w, r)
	}
}

func (g *Gateway) serveCacheFirst(w http.ResponseWriter, r *http.Request, key string) {
	if cached, ok := g.store.Get(g.generation, key); ok {
		g.logger.Offline().Debug("Cache hit", "key", key, "strategy", string(CacheFirst))
		writeCached(w, cached)
		return
	}

	req, err := g.upstreamRequest(r)
	if err != nil {
		g.writeOffline(w, key)
		return
	}
	cached, err := g.fetchAndCache(req, key)
	if err != nil {
		g.writeOffline(w, key)
		return
	}
	writeCached(w, cached)
}

func (g *Gateway) serveNetworkFirst(w http.ResponseWriter, r *http.Request, key string) {
	req, err := g.upstreamRequest(r)
	if err == nil {
		if cached, ferr := g.fetchAndCache(req, key); ferr == nil {
			writeCached(w, cached)
			return
		}
	}

	// Upstream unreachable, fall back to the last good response
	if cached, ok := g.store.Get(g.generation, key); ok {
		g.logger.Offline().Info("Serving stale response, upstream unreachable", "key", key)
		writeCached(w, cached)
		return
	}
	g.writeOffline(w, key)
}

func (g *Gateway) servePassthrough(w http.ResponseWriter, r *http.Request) {
	req, err := g.upstreamRequest(r)
	if err != nil {
		g.writeOffline(w, r.URL.Path)
		return
	}
	resp, err := g.fetcher.Do(req)
	if err != nil {
		g.logger.Offline().Warn("Passthrough failed, upstream unreachable", "path", r.URL.Path, "error", err.Error())
		g.writeOffline(w, r.URL.Path)
		return
	}
	defer resp.Body.Close()

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// fetchAndCache performs an upstream fetch and stores successful responses.
// Non-200 responses are returned but never cached.
func (g *Gateway) fetchAndCache(req *http.Request, key string) (*CachedResponse, error) {
	resp, err := g.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	cached := &CachedResponse{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now(),
	}
	if resp.StatusCode == http.StatusOK {
		g.store.Put(g.generation, key, cached)
	}
	return cached, nil
}

// upstreamRequest rebuilds an incoming request against the upstream origin
func (g *Gateway) upstreamRequest(r *http.Request) (*http.Request, error) {
	target := g.upstream + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	return req, nil
}

// writeOffline emits the synthesized offline response
func (g *Gateway) writeOffline(w http.ResponseWriter, key string) {
	g.logger.Offline().Info("Synthesizing offline response", "key", key)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte(`{"status":"offline"}`))
}

// Run serves the gateway on the configured port until the context ends
func (g *Gateway) Run(ctx context.Context, addr string, precachePaths []string) error {
	if err := g.Install(ctx, precachePaths); err != nil {
		return err
	}
	g.Activate()

	server := &http.Server{
		Addr:         addr,
		Handler:      g,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Offline().Info("Offline gateway listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeCached(w http.ResponseWriter, cached *CachedResponse) {
	copyHeader(w.Header(), cached.Header)
	w.WriteHeader(cached.Status)
	w.Write(cached.Body)
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "non-200 response"
	}
	return err.Error()
}
