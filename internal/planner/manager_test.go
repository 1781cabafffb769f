package planner

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/planr/internal/catalog"
	"github.com/pders01/planr/internal/config"
	"github.com/pders01/planr/internal/crawler"
	"github.com/pders01/planr/internal/storage"
)

type apiServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits int
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	docs := map[string]string{
		"/api/programs.json": `[{"code": "CS", "name": "Computer Science", "detail_url": "{{base}}/programs/cs.json"}]`,
		"/api/programs/cs.json": `{"code": "CS", "name": "Computer Science",
			"courses": [{"code": "MAT1", "name": "Calculus", "sections_url": "{{base}}/sections/MAT1.json"}]}`,
		"/api/courses.json": `[
			{"code": "MAT1", "name": "Calculus", "sections_url": "{{base}}/sections/MAT1.json"},
			{"code": "CS1", "name": "Programming"}
		]`,
		"/api/sections/MAT1.json": `[{"id": "MAT1-A", "course_code": "MAT1", "schedule_code": "24M12"}]`,
		"/api/sections.json": `[
			{"id": "MAT1-A", "course_code": "MAT1", "schedule_code": "24M12"},
			{"id": "CS1-A", "course_code": "CS1", "schedule_code": "2M2"},
			{"id": "CS1-B", "course_code": "CS1", "schedule_code": "3T1"}
		]`,
	}
	s := &apiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits++
		s.mu.Unlock()
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(strings.ReplaceAll(doc, "{{base}}", s.URL+"/api")))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

func newTestManager(t *testing.T, srv *apiServer, dbPath string) (*Manager, *config.Config) {
	t.Helper()
	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL + "/api"
	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "planr.db")
	}
	store, err := storage.NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewManager(store, cfg, nil), cfg
}

func TestManager_CrawlIndexesCourses(t *testing.T) {
	srv := newAPIServer(t)
	m, _ := newTestManager(t, srv, "")

	var last int
	res, err := m.Crawl(context.Background(), CrawlOptions{}, func(visited, _ int, _ string) { last = visited })
	require.NoError(t, err)
	assert.Len(t, res.Grouped, 3)
	assert.Contains(t, res.AllData, srv.URL+"/api/sections/MAT1.json")
	assert.Greater(t, last, 0)

	results, err := m.Search().Search("calculus", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "MAT1", results[0].Course.Code)

	info, err := m.CacheInfo()
	require.NoError(t, err)
	require.Len(t, info.Snapshots, 1)
	assert.Equal(t, "catalog", info.Snapshots[0].Key)
	assert.Equal(t, len(res.AllData), info.Entries)
}

func TestManager_WarmServesFromSnapshot(t *testing.T) {
	srv := newAPIServer(t)
	dbPath := filepath.Join(t.TempDir(), "planr.db")

	m, _ := newTestManager(t, srv, dbPath)
	_, err := m.Crawl(context.Background(), CrawlOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.store.Close())

	again, _ := newTestManager(t, srv, dbPath)
	require.True(t, again.Warm(""))
	before := srv.count()

	courses, err := again.Courses(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.Equal(t, before, srv.count(), "courses come from the restored snapshot")
}

func TestManager_ProgramScope(t *testing.T) {
	srv := newAPIServer(t)
	m, _ := newTestManager(t, srv, "")

	assert.Equal(t, "catalog", m.SnapshotKey(""))
	assert.Equal(t, "program:CS", m.SnapshotKey("cs"))

	_, err := m.Crawl(context.Background(), CrawlOptions{}, nil)
	require.NoError(t, err)
	require.Greater(t, m.Cache().Len(), 0)

	res, err := m.Crawl(context.Background(), CrawlOptions{Program: "CS"}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Grouped, srv.URL+"/api/programs/cs.json")
	_, ok := m.Cache().Get(srv.URL + "/api/courses.json")
	assert.False(t, ok, "switching program clears the cache")

	courses, err := m.Courses(context.Background(), "CS")
	require.NoError(t, err)
	require.Len(t, courses, 1)
}

func TestManager_SelectionLifecycle(t *testing.T) {
	srv := newAPIServer(t)
	m, cfg := newTestManager(t, srv, "")
	ctx := context.Background()

	sel, err := m.LoadSelection("default")
	require.NoError(t, err)
	assert.Equal(t, 0, sel.Len())

	mat, err := m.FindSection(ctx, "mat1-a", "MAT1")
	require.NoError(t, err)
	cs, err := m.FindSection(ctx, "CS1-A", "")
	require.NoError(t, err)
	_, err = m.FindSection(ctx, "NOPE", "")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	added, conflicts, err := m.Toggle("default", *mat)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Empty(t, conflicts)

	added, conflicts, err = m.Toggle("default", *cs)
	require.NoError(t, err)
	assert.True(t, added)
	require.Len(t, conflicts, 1, "conflicts are reported, not refused")
	assert.Equal(t, "MAT1-A", conflicts[0].Section.Key())

	sel, err = m.LoadSelection("default")
	require.NoError(t, err)
	require.Equal(t, 2, sel.Len())
	assert.Equal(t, "Monday", sel.Items()[0].(catalog.Section).Schedule[0].Day)

	var buf bytes.Buffer
	assert.True(t, errors.Is(m.Export(&buf, "default"), ErrNoTermStart))

	cfg.Schedule.TermStart = "2026-03-02"
	require.NoError(t, m.Export(&buf, "default"))
	assert.Contains(t, buf.String(), "BEGIN:VEVENT")
	assert.Contains(t, buf.String(), "FREQ=WEEKLY;COUNT=15")

	added, _, err = m.Toggle("default", *mat)
	require.NoError(t, err)
	assert.False(t, added)
	sel, _ = m.LoadSelection("default")
	assert.Equal(t, 1, sel.Len())
}

func TestManager_ClearCache(t *testing.T) {
	srv := newAPIServer(t)
	m, _ := newTestManager(t, srv, "")

	_, err := m.Crawl(context.Background(), CrawlOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.ClearCache())

	info, err := m.CacheInfo()
	require.NoError(t, err)
	assert.Empty(t, info.Snapshots)
	assert.Equal(t, 0, info.Entries)
	assert.False(t, m.Warm(""))
}

func TestManager_CrawlAllSeedsFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL + "/api"
	m := NewManager(nil, cfg, nil)

	_, err := m.Crawl(context.Background(), CrawlOptions{}, nil)
	assert.ErrorIs(t, err, crawler.ErrAllSeedsFailed)
}

func TestManager_PurgeExpiredKeepsFreshRecords(t *testing.T) {
	srv := newAPIServer(t)
	m, _ := newTestManager(t, srv, "")

	_, err := m.Catalog().Programs(context.Background())
	require.NoError(t, err)

	n, err := m.PurgeExpired()
	require.NoError(t, err)
	assert.Zero(t, n)

	before := srv.count()
	_, err = m.Catalog().Programs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, srv.count(), "fresh local records survive a purge")

	n, err = NewManager(nil, config.TestConfig(), nil).PurgeExpired()
	require.NoError(t, err)
	assert.Zero(t, n)
}
