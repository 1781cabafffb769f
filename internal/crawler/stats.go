package crawler

import (
	"fmt"
	"sync"
	"time"
)

// Stats summarizes one crawl.
type Stats struct {
	Probed     int           `json:"probed"`
	Fetched    int           `json:"fetched"`
	Failed     int           `json:"failed"`
	CacheHits  int           `json:"cache_hits"`
	LinksFound int           `json:"links_found"`
	External   int           `json:"external"`
	AvgFetch   time.Duration `json:"avg_fetch"`
	Duration   time.Duration `json:"duration"`
}

func (s Stats) String() string {
	return fmt.Sprintf("fetched=%d failed=%d cache_hits=%d links=%d external=%d in %s",
		s.Fetched, s.Failed, s.CacheHits, s.LinksFound, s.External, s.Duration.Round(time.Millisecond))
}

type tracker struct {
	mu         sync.Mutex
	stats      Stats
	start      time.Time
	fetchTotal time.Duration
}

func newTracker() *tracker {
	return &tracker{start: time.Now()}
}

func (t *tracker) probed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Probed++
}

func (t *tracker) fetched(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Fetched++
	t.fetchTotal += d
}

func (t *tracker) failed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Failed++
}

func (t *tracker) cacheHit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.CacheHits++
}

func (t *tracker) links(found, external int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.LinksFound += found
	t.stats.External += external
}

func (t *tracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stats
	if s.Fetched > 0 {
		s.AvgFetch = t.fetchTotal / time.Duration(s.Fetched)
	}
	s.Duration = time.Since(t.start)
	return s
}
