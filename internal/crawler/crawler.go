// Package crawler deep-fetches the catalog: it follows every same-origin
// link found in JSON payloads, fetches each URL once per session and keeps
// the results in a cache.Cache.
package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pders01/planr/internal/cache"
	"github.com/pders01/planr/internal/config"
	"github.com/pders01/planr/internal/debuglog"
	"github.com/pders01/planr/internal/graph"
	"github.com/pders01/planr/internal/validation"
)

// ErrAllSeedsFailed is returned together with the partial result when no
// seed produced any data.
var ErrAllSeedsFailed = errors.New("crawl: no seed could be fetched")

type Options struct {
	// BaseURL limits the crawl to links under it. Empty means the origin
	// of the first seed.
	BaseURL            string
	MaxConcurrency     int
	FetchTimeout       time.Duration
	EstimateProbeLimit int
	EstimateTotalCap   int
}

func DefaultOptions() Options {
	return Options{
		MaxConcurrency:     16,
		FetchTimeout:       20 * time.Second,
		EstimateProbeLimit: 1000,
		EstimateTotalCap:   2000,
	}
}

func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.BaseURL = cfg.API.BaseURL
	if cfg.Crawl.MaxConcurrency > 0 {
		opts.MaxConcurrency = cfg.Crawl.MaxConcurrency
	}
	if cfg.Crawl.FetchTimeout > 0 {
		opts.FetchTimeout = cfg.Crawl.FetchTimeout
	}
	if cfg.Crawl.EstimateProbeLimit > 0 {
		opts.EstimateProbeLimit = cfg.Crawl.EstimateProbeLimit
	}
	if cfg.Crawl.EstimateTotalCap > 0 {
		opts.EstimateTotalCap = cfg.Crawl.EstimateTotalCap
	}
	return opts
}

// CrawlOptions tune a single CrawlAll call.
type CrawlOptions struct {
	// PersistKey restores a snapshot before and saves one after the crawl.
	PersistKey string
	// ReuseCache skips the restore when the cache already holds entries.
	ReuseCache bool
	// KeepProcessed keeps the visited set of a previous crawl.
	KeepProcessed bool
}

// ProgressFunc is called after every visited URL. visited only grows.
type ProgressFunc func(visited, estimated int, url string)

type Result struct {
	SessionID uuid.UUID
	// Grouped holds the payload of every seed that produced data.
	Grouped map[string]json.RawMessage
	// AllData holds every payload reached in this crawl, keyed by URL.
	AllData   map[string]json.RawMessage
	Estimated int
	Stats     Stats
}

type Crawler struct {
	opts      Options
	cache     *cache.Cache
	fetcher   Fetcher
	persister cache.Persister
	sem       *semaphore.Weighted
}

func New(opts Options, c *cache.Cache, f Fetcher, p cache.Persister) *Crawler {
	def := DefaultOptions()
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = def.MaxConcurrency
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = def.FetchTimeout
	}
	if opts.EstimateProbeLimit <= 0 {
		opts.EstimateProbeLimit = def.EstimateProbeLimit
	}
	if opts.EstimateTotalCap <= 0 {
		opts.EstimateTotalCap = def.EstimateTotalCap
	}
	return &Crawler{
		opts:      opts,
		cache:     c,
		fetcher:   f,
		persister: p,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrency)),
	}
}

// Cache returns the cache the crawler fills.
func (c *Crawler) Cache() *cache.Cache { return c.cache }

// session is the state of one CrawlAll call.
type session struct {
	c         *Crawler
	base      string
	log       *debuglog.FieldLogger
	stats     *tracker
	estimated int
	onProg    ProgressFunc

	mu        sync.Mutex
	visited   int
	attempted map[string]struct{}
	reached   map[string]struct{}
}

func (c *Crawler) CrawlAll(ctx context.Context, seeds []string, onProgress ProgressFunc, opts CrawlOptions) (*Result, error) {
	id := uuid.New()
	s := &session{
		c:       c,
		base:    c.opts.BaseURL,
		log:     debuglog.WithFields(map[string]interface{}{"session": id.String()}),
		stats:   newTracker(),
		onProg:    onProgress,
		attempted: make(map[string]struct{}),
		reached:   make(map[string]struct{}),
	}
	if s.base == "" && len(seeds) > 0 {
		s.base = origin(seeds[0])
	}

	if opts.PersistKey != "" && (!opts.ReuseCache || c.cache.Len() == 0) {
		c.cache.Restore(c.persister, opts.PersistKey)
	}
	if !opts.KeepProcessed {
		c.cache.ClearVisited()
	}

	s.estimated = s.estimate(ctx, seeds)
	s.log.Infof("crawl: %d seeds, estimated %d documents", len(seeds), s.estimated)

	g, gctx := errgroup.WithContext(ctx)
	for _, seed := range seeds {
		g.Go(func() error { return s.visit(gctx, seed) })
	}
	err := g.Wait()

	if err == nil {
		err = s.sweep(ctx, seeds)
	}

	res := s.result(id, seeds)
	if opts.PersistKey != "" {
		c.cache.Snapshot(c.persister, opts.PersistKey)
	}
	s.log.Infof("crawl: done, %s", res.Stats)

	if err != nil {
		return res, fmt.Errorf("crawl: %w", err)
	}
	if len(seeds) > 0 && len(res.Grouped) == 0 {
		return res, ErrAllSeedsFailed
	}
	return res, nil
}

// visit fetches rawURL unless it was already visited, then visits its
// unvisited same-origin children in parallel. Only context errors are
// returned; everything else is logged and turns the node into a dead end.
func (s *session) visit(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.c.cache.MarkVisited(rawURL) {
		return nil
	}

	data, err := s.load(ctx, rawURL)
	s.progress(rawURL, err == nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.stats.failed()
		s.log.WithField("url", rawURL).Warnf("crawl: %v", err)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, link := range s.children(rawURL, data, true) {
		if s.c.cache.Visited(link) {
			continue
		}
		g.Go(func() error { return s.visit(gctx, link) })
	}
	return g.Wait()
}

// sweep rescans the seed payloads for links the recursive walk did not
// reach.
func (s *session) sweep(ctx context.Context, seeds []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, seed := range seeds {
		e, ok := s.c.cache.Get(seed)
		if !ok {
			continue
		}
		for _, link := range s.children(seed, e.Data, false) {
			if _, cached := s.c.cache.Get(link); cached || s.c.cache.Visited(link) {
				continue
			}
			s.log.WithField("url", link).Debugf("crawl: sweep picked up missed link")
			g.Go(func() error { return s.visit(gctx, link) })
		}
	}
	return g.Wait()
}

// load serves a fresh cache entry or fetches the document.
func (s *session) load(ctx context.Context, rawURL string) ([]byte, error) {
	if e, ok := s.c.cache.Fresh(rawURL); ok {
		s.stats.cacheHit()
		return e.Data, nil
	}
	return s.fetch(ctx, rawURL)
}

// fetch runs one bounded, time-limited network request and caches the
// payload.
func (s *session) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := s.c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.c.sem.Release(1)

	fctx, cancel := context.WithTimeout(ctx, s.c.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	data, err := s.c.fetcher.Fetch(fctx, rawURL)
	if err != nil {
		return nil, err
	}
	s.stats.fetched(time.Since(start))
	s.c.cache.Put(rawURL, data)
	return data, nil
}

// children returns the absolute same-origin links of a payload. Link
// counts are recorded only when count is set.
func (s *session) children(docURL string, data []byte, count bool) []string {
	links, err := graph.ExtractLinksJSON(data)
	if err != nil {
		s.log.WithField("url", docURL).Warnf("crawl: decoding payload: %v", err)
		return nil
	}
	out := make([]string, 0, len(links))
	external := 0
	for _, l := range links {
		abs, err := validation.Resolve(docURL, l)
		if err != nil || !validation.SameOrigin(s.base, abs) {
			external++
			continue
		}
		out = append(out, abs)
	}
	if count {
		s.stats.links(len(links), external)
	}
	return out
}

func (s *session) progress(rawURL string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited++
	s.attempted[rawURL] = struct{}{}
	if ok {
		s.reached[rawURL] = struct{}{}
	}
	if s.onProg != nil {
		s.onProg(s.visited, max(s.estimated, s.visited), rawURL)
	}
}

func (s *session) result(id uuid.UUID, seeds []string) *Result {
	res := &Result{
		SessionID: id,
		Grouped:   make(map[string]json.RawMessage),
		AllData:   make(map[string]json.RawMessage),
		Estimated: s.estimated,
		Stats:     s.stats.snapshot(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.c.cache.VisitedURLs() {
		if e, ok := s.usable(u); ok {
			res.AllData[u] = e.Data
		}
	}
	for _, seed := range seeds {
		if e, ok := s.usable(seed); ok {
			res.Grouped[seed] = e.Data
			res.AllData[seed] = e.Data
		}
	}
	return res
}

// usable returns the payload of rawURL as this crawl knows it: what it
// reached itself, or a fresh entry processed by an earlier crawl and left
// alone. A URL that failed in this crawl has none, whatever the cache
// still holds. s.mu must be held.
func (s *session) usable(rawURL string) (cache.Entry, bool) {
	if _, ok := s.reached[rawURL]; ok {
		return s.c.cache.Get(rawURL)
	}
	if _, ok := s.attempted[rawURL]; ok {
		return cache.Entry{}, false
	}
	return s.c.cache.Fresh(rawURL)
}

func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
