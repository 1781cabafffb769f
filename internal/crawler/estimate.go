package crawler

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// estimate walks the link graph breadth-first to size the progress bar.
// Probes go through the cache so the real crawl reuses whatever they
// fetched. Failures are ignored; the number is only a denominator.
func (s *session) estimate(ctx context.Context, seeds []string) int {
	limit := s.c.opts.EstimateProbeLimit
	totalCap := s.c.opts.EstimateTotalCap

	seen := make(map[string]struct{}, len(seeds))
	level := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		if _, ok := seen[seed]; !ok {
			seen[seed] = struct{}{}
			level = append(level, seed)
		}
	}

	probes := 0
	for len(level) > 0 && probes < limit && len(seen) < totalCap {
		if ctx.Err() != nil {
			break
		}
		if room := limit - probes; len(level) > room {
			level = level[:room]
		}
		probes += len(level)

		var mu sync.Mutex
		var next []string
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.c.opts.MaxConcurrency)
		for _, u := range level {
			g.Go(func() error {
				s.stats.probed()
				var data []byte
				if e, ok := s.c.cache.Fresh(u); ok {
					data = e.Data
				} else {
					var err error
					if data, err = s.fetch(gctx, u); err != nil {
						s.log.WithField("url", u).Debugf("estimate: %v", err)
						return nil
					}
				}
				links := s.children(u, data, false)
				mu.Lock()
				for _, l := range links {
					if _, ok := seen[l]; !ok {
						seen[l] = struct{}{}
						next = append(next, l)
					}
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		level = next
	}

	return min(len(seen), totalCap)
}
