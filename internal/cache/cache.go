// Package cache holds fetched catalog documents for a planning session.
package cache

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// DefaultTTL is how long deep-fetched documents stay fresh.
const DefaultTTL = 30 * 24 * time.Hour

// Entry is one fetched document, keyed by its original URL.
type Entry struct {
	URL       string          `json:"url"`
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Cache maps URLs to fetched documents and tracks which URLs the current
// crawl has already attempted. It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Entry
	visited map[string]struct{}
}

type Option func(*Cache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry),
		visited: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) Get(url string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[url]
	return e, ok
}

// Put stores data under url, replacing any previous entry.
func (c *Cache) Put(url string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = Entry{
		URL:       url,
		Data:      append(json.RawMessage(nil), data...),
		FetchedAt: c.now(),
	}
}

func (c *Cache) IsFresh(e Entry) bool {
	return c.now().Sub(e.FetchedAt) < c.ttl
}

// Fresh returns the entry for url only if it has not expired.
func (c *Cache) Fresh(url string) (Entry, bool) {
	e, ok := c.Get(url)
	if !ok || !c.IsFresh(e) {
		return Entry{}, false
	}
	return e, true
}

// MarkVisited records url as attempted. It returns false if url was already
// marked, which lets concurrent crawl branches claim a URL exactly once.
func (c *Cache) MarkVisited(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.visited[url]; seen {
		return false
	}
	c.visited[url] = struct{}{}
	return true
}

func (c *Cache) Visited(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.visited[url]
	return ok
}

func (c *Cache) VisitedURLs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	urls := make([]string, 0, len(c.visited))
	for u := range c.visited {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func (c *Cache) ClearVisited() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visited = make(map[string]struct{})
}

// Clear drops every entry and the visited set.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.visited = make(map[string]struct{})
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a copy of all entries sorted by URL.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

func (c *Cache) replace(entries []Entry, visited []string) {
	em := make(map[string]Entry, len(entries))
	for _, e := range entries {
		em[e.URL] = e
	}
	vm := make(map[string]struct{}, len(visited))
	for _, u := range visited {
		vm[u] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = em
	c.visited = vm
}
