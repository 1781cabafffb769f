// Package planner wires the crawler, the catalog client, stored
// selections and the course index together for the CLI and the TUI.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pders01/planr/internal/cache"
	"github.com/pders01/planr/internal/catalog"
	"github.com/pders01/planr/internal/config"
	"github.com/pders01/planr/internal/crawler"
	"github.com/pders01/planr/internal/debuglog"
	"github.com/pders01/planr/internal/schedule"
	"github.com/pders01/planr/internal/search"
	"github.com/pders01/planr/internal/storage"
)

// ErrNoTermStart is returned by Export when schedule.term_start is unset.
var ErrNoTermStart = errors.New("schedule.term_start is not set")

type Manager struct {
	config  *config.Config
	store   *storage.Store
	cache   *cache.Cache
	crawler *crawler.Crawler
	catalog *catalog.Client
	index   search.CourseIndex
	local   *cache.Local

	mu      sync.Mutex
	program string
}

// NewManager builds the planner on top of store. index may be nil, in which
// case an in-memory search engine is used.
func NewManager(store *storage.Store, cfg *config.Config, index search.CourseIndex) *Manager {
	fetcher := crawler.NewFetcher(cfg)
	if cfg.API.RelayURL != "" {
		fetcher.SetRelay(cfg.API.RelayURL)
	}
	if index == nil {
		index = search.NewEngine(nil)
	}

	deep := cache.New(cfg.Crawl.CacheTTL)
	var persister cache.Persister
	var local *cache.Local
	if store != nil {
		persister = store
		local = cache.NewLocal(store)
	}

	return &Manager{
		config:  cfg,
		store:   store,
		cache:   deep,
		crawler: crawler.New(crawler.OptionsFromConfig(cfg), deep, fetcher, persister),
		catalog: catalog.NewClient(catalog.NewClientConfig(cfg), deep, local, fetcher),
		index:   index,
		local:   local,
	}
}

func (m *Manager) Catalog() *catalog.Client { return m.catalog }
func (m *Manager) Search() search.Searcher  { return m.index }
func (m *Manager) Cache() *cache.Cache      { return m.cache }

// SnapshotKey is the persistence key of a crawl scope: the whole catalog
// or a single program.
func (m *Manager) SnapshotKey(program string) string {
	if program == "" {
		return m.config.Crawl.CatalogKey
	}
	return "program:" + strings.ToUpper(program)
}

// scope switches the in-memory cache to program, clearing it when the
// scope changes.
func (m *Manager) scope(program string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !strings.EqualFold(m.program, program) {
		m.cache.Clear()
		m.program = program
	}
}

// Warm loads the last snapshot of the scope into the in-memory cache so
// catalog reads can be served without fetching.
func (m *Manager) Warm(program string) bool {
	m.scope(program)
	if m.store == nil {
		return false
	}
	return m.cache.Restore(m.store, m.SnapshotKey(program))
}

type CrawlOptions struct {
	Program       string
	Reuse         bool
	KeepProcessed bool
}

// Crawl walks the catalog, or one program's subtree, and refreshes the
// course index from the result.
func (m *Manager) Crawl(ctx context.Context, opts CrawlOptions, progress crawler.ProgressFunc) (*crawler.Result, error) {
	m.scope(opts.Program)

	seeds, err := m.seeds(ctx, opts.Program)
	if err != nil {
		return nil, err
	}
	debuglog.WithFields(map[string]interface{}{
		"program": opts.Program,
		"seeds":   len(seeds),
	}).Infof("crawl starting")

	res, err := m.crawler.CrawlAll(ctx, seeds, progress, crawler.CrawlOptions{
		PersistKey:    m.SnapshotKey(opts.Program),
		ReuseCache:    opts.Reuse,
		KeepProcessed: opts.KeepProcessed,
	})
	if err != nil {
		return res, err
	}

	if n, ierr := m.Reindex(ctx, opts.Program); ierr != nil {
		debuglog.Warnf("planner: indexing courses: %v", ierr)
	} else {
		debuglog.Infof("planner: indexed %d courses", n)
	}
	return res, nil
}

func (m *Manager) seeds(ctx context.Context, program string) ([]string, error) {
	if program != "" {
		return []string{m.catalog.ProgramDetailURL(ctx, program), m.catalog.SectionsURL()}, nil
	}
	seeds, err := m.config.ResolveSeeds()
	if err != nil {
		return nil, fmt.Errorf("resolving seeds: %w", err)
	}
	if len(seeds) == 0 {
		seeds = m.catalog.Seeds()
	}
	return seeds, nil
}

// Courses lists the catalog's courses, or those of one program.
func (m *Manager) Courses(ctx context.Context, program string) ([]catalog.CourseSummary, error) {
	if program != "" {
		return m.catalog.CoursesForProgram(ctx, program)
	}
	return m.catalog.Courses(ctx)
}

// Sections lists the sections offered for a course.
func (m *Manager) Sections(ctx context.Context, course string) ([]catalog.Section, error) {
	return m.catalog.SectionsByCourseCode(ctx, course)
}

func (m *Manager) CourseDetail(ctx context.Context, code string) (*catalog.CourseDetail, error) {
	return m.catalog.CourseDetail(ctx, code)
}

// Reindex replaces the course index with the courses of the scope.
func (m *Manager) Reindex(ctx context.Context, program string) (int, error) {
	courses, err := m.Courses(ctx, program)
	if err != nil {
		return 0, err
	}
	if err := m.index.IndexCourses(courses); err != nil {
		return 0, err
	}
	return len(courses), nil
}

// FindSection looks a section up by id, within course when given.
func (m *Manager) FindSection(ctx context.Context, id, course string) (*catalog.Section, error) {
	var (
		sections []catalog.Section
		err      error
	)
	if course != "" {
		sections, err = m.catalog.SectionsByCourseCode(ctx, course)
	} else {
		sections, err = m.catalog.Sections(ctx)
	}
	if err != nil {
		return nil, err
	}
	for i := range sections {
		if strings.EqualFold(sections[i].ID, id) {
			return &sections[i], nil
		}
	}
	return nil, fmt.Errorf("section %q: %w", id, catalog.ErrNotFound)
}

// LoadSelection returns the saved selection called name, empty if none
// was saved yet.
func (m *Manager) LoadSelection(name string) (*schedule.Selection, error) {
	if m.store == nil {
		return schedule.NewSelection(), nil
	}
	rec, err := m.store.LoadSelection(name)
	if errors.Is(err, storage.ErrNotFound) {
		return schedule.NewSelection(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading selection: %w", err)
	}
	sections, err := catalog.DecodeSections(rec.Sections)
	if err != nil {
		return nil, fmt.Errorf("decoding selection %q: %w", name, err)
	}
	items := make([]schedule.Item, len(sections))
	for i := range sections {
		items[i] = sections[i]
	}
	return schedule.NewSelection(items...), nil
}

func (m *Manager) SaveSelection(name string, sel *schedule.Selection) error {
	if m.store == nil {
		return nil
	}
	sections := make([]catalog.Section, 0, sel.Len())
	for _, it := range sel.Items() {
		s, ok := it.(catalog.Section)
		if !ok {
			return fmt.Errorf("selection %q: unexpected item %T", name, it)
		}
		sections = append(sections, s)
	}
	data, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encoding selection: %w", err)
	}
	if err := m.store.SaveSelection(name, data); err != nil {
		return fmt.Errorf("saving selection: %w", err)
	}
	return nil
}

// Toggle adds section to the named selection or removes it, and reports
// the conflicts it has with the rest of the selection once added.
func (m *Manager) Toggle(name string, section catalog.Section) (bool, []schedule.Conflict, error) {
	sel, err := m.LoadSelection(name)
	if err != nil {
		return false, nil, err
	}
	selected := sel.Toggle(section)
	if err := m.SaveSelection(name, sel); err != nil {
		return false, nil, err
	}
	if !selected {
		return false, nil, nil
	}
	return true, sel.Conflicts(section), nil
}

// Export writes the named selection as an iCalendar file.
func (m *Manager) Export(w io.Writer, name string) error {
	if m.config.Schedule.TermStart == "" {
		return ErrNoTermStart
	}
	start, err := time.ParseInLocation(time.DateOnly, m.config.Schedule.TermStart, time.Local)
	if err != nil {
		return fmt.Errorf("parsing schedule.term_start: %w", err)
	}
	sel, err := m.LoadSelection(name)
	if err != nil {
		return err
	}
	return schedule.ExportICS(w, sel.Items(), schedule.ICSOptions{
		TermStart: start,
		Weeks:     m.config.Schedule.Weeks,
		Name:      m.config.Schedule.Calendar,
	})
}

// CacheInfo summarizes what is cached in memory and on disk.
type CacheInfo struct {
	Entries   int
	Visited   int
	Snapshots []storage.SnapshotInfo
}

func (m *Manager) CacheInfo() (CacheInfo, error) {
	info := CacheInfo{Entries: m.cache.Len(), Visited: len(m.cache.VisitedURLs())}
	if m.store == nil {
		return info, nil
	}
	snaps, err := m.store.ListSnapshots()
	if err != nil {
		return info, fmt.Errorf("listing snapshots: %w", err)
	}
	info.Snapshots = snaps
	return info, nil
}

// PurgeExpired removes expired records from the local cache.
func (m *Manager) PurgeExpired() (int, error) {
	return m.local.Purge()
}

// ClearCache drops the in-memory cache, every snapshot and the local
// cache. Saved selections are kept.
func (m *Manager) ClearCache() error {
	m.cache.Clear()
	if m.store == nil {
		return nil
	}
	snaps, err := m.store.ListSnapshots()
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}
	for _, s := range snaps {
		if err := m.store.DeleteSnapshot(s.Key); err != nil {
			return fmt.Errorf("deleting snapshot %q: %w", s.Key, err)
		}
	}
	if err := m.store.ClearLocal(); err != nil {
		return fmt.Errorf("clearing local cache: %w", err)
	}
	return nil
}
