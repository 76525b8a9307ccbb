// Package shellcache is an offline-first caching gateway for the
// SpedBusMD web application. It intercepts every request a page would
// send to the origin and applies one of two policies per request class:
// cache-first for app-shell documents and static assets, network-first
// with cache fallback for dynamic API routes. Cached responses live in
// a durable, versioned store so previously seen pages and data remain
// available when the origin is unreachable.
package shellcache

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spedbusmd/shellcache/cache"

	"github.com/rs/zerolog"
)

type Config struct {
	// Storage for cached responses.
	Store cache.Store
	// URL of the origin server (backend API and static assets).
	// Origins with paths are not supported.
	OriginURL url.URL
	// AppName and Version name the active cache generation
	// ("<AppName>-<Version>"). Bumping Version is the sole mechanism
	// for invalidating the shell cache.
	AppName string
	Version string
	// Manifest is the set of app-shell paths precached at install time.
	Manifest []string
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

// Worker intercepts requests bound for the origin and resolves each one
// from the network, from the durable cache, or as a failure. It is an
// http.Handler; the generation name it serves from is fixed at creation
// and superseded wholesale by deploying with a new version.
type Worker struct {
	store      cache.Store
	origin     url.URL
	generation string
	manifest   []string
	client     http.Client
	log        zerolog.Logger
	started    time.Time
}

// CreateWorker initializes the gateway worker for the configured origin
// and cache generation. It does not populate the cache; call Install and
// Activate before serving to precache the shell and purge stale
// generations.
func CreateWorker(config Config) *Worker {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	generation := config.AppName + "-" + config.Version
	logger = logger.With().
		Str("origin", config.OriginURL.String()).
		Str("generation", generation).
		Logger()

	return &Worker{
		store:      config.Store,
		origin:     config.OriginURL,
		generation: generation,
		manifest:   config.Manifest,
		client: http.Client{
			// do not follow redirects
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log:     logger,
		started: time.Now(),
	}
}

// Generation returns the name of the active cache generation.
func (wk *Worker) Generation() string {
	return wk.generation
}

// ServeHTTP implements the http.Handler interface.
// It is the interception point for all client traffic.
func (wk *Worker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !isRetrieval(r.Method) {
		wk.passThrough(w, r)
		return
	}
	switch Classify(r.URL.Path) {
	case CategoryAPI:
		wk.networkFirst(w, r)
	default:
		wk.cacheFirst(w, r)
	}
}

// isRetrieval reports whether the request is a simple retrieval that the
// strategies apply to. Mutating methods bypass caching entirely.
func isRetrieval(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// networkFirst serves api-like requests: live data is always preferred,
// including origin error responses, since those carry application state.
// The cache is consulted only when the transport fails outright.
func (wk *Worker) networkFirst(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(r)
	entry, err := wk.fetchEntry(r)
	if err != nil {
		wk.log.Debug().Err(err).Str("key", key).Msg("Origin unreachable, trying cache")
		cached, cerr := wk.store.Get(r.Context(), wk.generation, key)
		if cerr != nil {
			if !errors.Is(cerr, cache.ErrNotFound) {
				wk.log.Error().Err(cerr).Str("key", key).Msg("Could not read from cache")
			}
			wk.logRequest(r, CategoryAPI, outcomeFailed)
			http.Error(w, "origin unreachable", http.StatusBadGateway)
			return
		}
		writeEntry(w, cached)
		wk.logRequest(r, CategoryAPI, outcomeCache)
		return
	}
	if r.Method == http.MethodGet && entry.Status >= 200 && entry.Status < 300 {
		if perr := wk.store.Put(r.Context(), wk.generation, key, entry); perr != nil {
			wk.log.Warn().Err(perr).Str("key", key).Msg("Could not write to cache")
		}
	}
	writeEntry(w, entry)
	wk.logRequest(r, CategoryAPI, outcomeNetwork)
}

// cacheFirst serves static-like requests: the stored copy wins, trading
// freshness for instant, offline-capable loads. Freshness is handled by
// bumping the version constant, not by per-request revalidation. A miss
// falls through to a live fetch with no write-back; only Install
// populates the store for shell routes.
func (wk *Worker) cacheFirst(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(r)
	entry, err := wk.store.Get(r.Context(), wk.generation, key)
	if err == nil {
		writeEntry(w, entry)
		wk.logRequest(r, CategoryStatic, outcomeCache)
		return
	}
	if !errors.Is(err, cache.ErrNotFound) {
		wk.log.Error().Err(err).Str("key", key).Msg("Could not read from cache")
	}
	res, ferr := wk.fetch(r)
	if ferr != nil {
		wk.logRequest(r, CategoryStatic, outcomeFailed)
		http.Error(w, "origin unreachable", http.StatusBadGateway)
		return
	}
	defer res.Body.Close()
	copyHeader(w.Header(), res.Header)
	w.WriteHeader(res.StatusCode)
	if _, err := io.Copy(w, res.Body); err != nil {
		wk.log.Error().Err(err).Msg("Could not write response body to client")
	}
	wk.logRequest(r, CategoryStatic, outcomeNetwork)
}

// passThrough relays a mutating request to the origin verbatim,
// strategy decision skipped.
func (wk *Worker) passThrough(w http.ResponseWriter, r *http.Request) {
	res, err := wk.fetch(r)
	if err != nil {
		wk.log.Debug().Err(err).Str("url", r.URL.String()).Msg("Bypass fetch failed")
		http.Error(w, "origin unreachable", http.StatusBadGateway)
		return
	}
	defer res.Body.Close()
	copyHeader(w.Header(), res.Header)
	w.WriteHeader(res.StatusCode)
	if _, err := io.Copy(w, res.Body); err != nil {
		wk.log.Error().Err(err).Msg("Could not write response body to client")
	}
	wk.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Msg("Bypassed cache for mutating request")
}

// fetch forwards the request to the origin.
func (wk *Worker) fetch(r *http.Request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(
		r.Context(), r.Method, wk.origin.String()+r.URL.RequestURI(), r.Body)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	req.Host = wk.origin.Host
	return wk.client.Do(req)
}

// fetchEntry fetches from the origin and reads the whole response into
// a storable entry.
func (wk *Worker) fetchEntry(r *http.Request) (*cache.Entry, error) {
	res, err := wk.fetch(r)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	entry := &cache.Entry{
		Status:   res.StatusCode,
		Header:   cloneHeader(res.Header),
		Body:     body,
		StoredAt: time.Now(),
	}
	// the stored body is served as-is, so a stale length would be wrong
	entry.Header.Del("Content-Length")
	return entry, nil
}

type outcome string

const (
	outcomeNetwork outcome = "network"
	outcomeCache   outcome = "cache"
	outcomeFailed  outcome = "failed"
)

func (wk *Worker) logRequest(r *http.Request, c Category, o outcome) {
	isHit := 0
	if o == outcomeCache {
		isHit = 1
	}
	wk.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("policy", c.String()).
		Str("outcome", string(o)).
		Int("hit", isHit).
		Msg("Sending response to client")
}

func writeEntry(w http.ResponseWriter, e *cache.Entry) {
	copyHeader(w.Header(), e.Header)
	w.WriteHeader(e.Status)
	_, _ = w.Write(e.Body)
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		cp := make([]string, len(vv))
		copy(cp, vv)
		out[k] = cp
	}
	return out
}
