package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/planr/internal/catalog"
	"github.com/pders01/planr/internal/debuglog"
)

// BleveEngine searches courses through a bleve index.
type BleveEngine struct {
	idx bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath.
func NewBleveEngine(indexPath string) (*BleveEngine, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	// Try open first
	idx, err := bleve.Open(indexPath)
	if err != nil {
		debuglog.Debugf("creating search index at %s: %v", indexPath, err)
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating search index: %w", err)
		}
	}
	return &BleveEngine{idx: idx}, nil
}

// NewMemBleveEngine keeps the index in memory only.
func NewMemBleveEngine() (*BleveEngine, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &BleveEngine{idx: idx}, nil
}

// Open returns the on-disk index at path, falling back to the in-memory
// engine when the index cannot be opened (another process may hold it).
func Open(path string) CourseIndex {
	if path != "" {
		be, err := NewBleveEngine(path)
		if err == nil {
			return be
		}
		debuglog.Warnf("search index unavailable, using in-memory search: %v", err)
	}
	return NewEngine(nil)
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	code := bleve.NewTextFieldMapping()
	code.Analyzer = standard.Name
	code.Store = true
	code.IncludeTermVectors = true

	name := bleve.NewTextFieldMapping()
	name.Analyzer = standard.Name
	name.Store = true
	name.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = true
	desc.IncludeTermVectors = false

	// URLs are kept for rebuilding results, not searched.
	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true

	dm.AddFieldMappingsAt("code", code)
	dm.AddFieldMappingsAt("name", name)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("detail_url", stored)
	dm.AddFieldMappingsAt("sections_url", stored)

	im.DefaultMapping = dm
	return im
}

// IndexCourses replaces every indexed course with courses.
func (b *BleveEngine) IndexCourses(courses []catalog.CourseSummary) error {
	keep := make(map[string]bool, len(courses))
	batch := b.idx.NewBatch()
	for _, c := range courses {
		id := docIDForCourse(c.Code)
		keep[id] = true
		if err := batch.Index(id, map[string]any{
			"code":         c.Code,
			"name":         c.Name,
			"description":  c.Description,
			"detail_url":   c.DetailURL,
			"sections_url": c.SectionsURL,
		}); err != nil {
			return fmt.Errorf("indexing %s: %w", c.Code, err)
		}
	}

	stale, err := b.allIDs()
	if err != nil {
		return err
	}
	for _, id := range stale {
		if !keep[id] {
			batch.Delete(id)
		}
	}
	return b.idx.Batch(batch)
}

func (b *BleveEngine) allIDs() ([]string, error) {
	var ids []string
	from := 0
	size := 1000
	for {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), size, from, false)
		req.Fields = []string{}
		res, err := b.idx.Search(req)
		if err != nil {
			return nil, err
		}
		for _, h := range res.Hits {
			ids = append(ids, h.ID)
		}
		if len(res.Hits) < size {
			return ids, nil
		}
		from += size
	}
}

func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	// OR of per-term matches across the fields, boosted code > name > description
	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qs = append(qs, fieldQueries(tok, "code", codeWeight)...)
		qs = append(qs, fieldQueries(tok, "name", nameWeight)...)
		qs = append(qs, fieldQueries(tok, "description", descriptionWeight)...)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"code", "name", "description", "detail_url", "sections_url"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		c := catalog.CourseSummary{Code: strings.TrimPrefix(h.ID, "course:")}
		if v, ok := h.Fields["code"].(string); ok {
			c.Code = v
		}
		if v, ok := h.Fields["name"].(string); ok {
			c.Name = v
		}
		if v, ok := h.Fields["description"].(string); ok {
			c.Description = v
		}
		if v, ok := h.Fields["detail_url"].(string); ok {
			c.DetailURL = v
		}
		if v, ok := h.Fields["sections_url"].(string); ok {
			c.SectionsURL = v
		}
		out = append(out, &Result{Course: c, Score: h.Score})
	}
	return out, nil
}

func fieldQueries(tok, field string, boost float64) []bleveQuery.Query {
	m := bleve.NewMatchQuery(tok)
	m.SetField(field)
	m.SetBoost(boost)
	p := bleve.NewPrefixQuery(strings.ToLower(tok))
	p.SetField(field)
	p.SetBoost(boost * 0.85)
	return []bleveQuery.Query{m, p}
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *BleveEngine) Close() error { return b.idx.Close() }

func docIDForCourse(code string) string { return "course:" + code }
