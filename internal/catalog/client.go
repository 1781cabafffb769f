// Package catalog serves typed, schema-checked catalog records. Reads go
// to the deep-fetch cache first, then the short-TTL local cache, and only
// then to the network.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pders01/planr/internal/cache"
	"github.com/pders01/planr/internal/config"
	"github.com/pders01/planr/internal/debuglog"
	"github.com/pders01/planr/internal/validation"
)

// Fetcher retrieves one JSON document.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type ClientConfig struct {
	BaseURL     string
	ProgramsTTL time.Duration
	CoursesTTL  time.Duration
	DetailTTL   time.Duration
	SectionsTTL time.Duration
}

func NewClientConfig(cfg *config.Config) ClientConfig {
	return ClientConfig{
		BaseURL:     cfg.API.BaseURL,
		ProgramsTTL: cfg.Catalog.ProgramsTTL,
		CoursesTTL:  cfg.Catalog.CoursesTTL,
		DetailTTL:   cfg.Catalog.DetailTTL,
		SectionsTTL: cfg.Catalog.SectionsTTL,
	}
}

type Client struct {
	cfg     ClientConfig
	deep    *cache.Cache
	local   *cache.Local
	fetcher Fetcher
	group   singleflight.Group
}

// NewClient builds a client. deep and local may be nil.
func NewClient(cfg ClientConfig, deep *cache.Cache, local *cache.Local, f Fetcher) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, deep: deep, local: local, fetcher: f}
}

func (c *Client) ProgramsURL() string { return c.cfg.BaseURL + "/programs.json" }
func (c *Client) CoursesURL() string  { return c.cfg.BaseURL + "/courses.json" }
func (c *Client) SectionsURL() string { return c.cfg.BaseURL + "/sections.json" }

// Seeds are the catalog-wide crawl roots.
func (c *Client) Seeds() []string {
	return []string{c.ProgramsURL(), c.CoursesURL(), c.SectionsURL()}
}

// resolve runs the three-step lookup for one document. Bad cached payloads
// are skipped; a bad network payload is returned as a *ValidationError.
func resolve[T any](ctx context.Context, c *Client, resource, docURL string, ttl time.Duration, decode func(resource, url string, data []byte) (T, error)) (T, error) {
	log := debuglog.WithFields(map[string]interface{}{"resource": resource, "url": docURL})

	if c.deep != nil {
		if e, ok := c.deep.Fresh(docURL); ok {
			v, err := decode(resource, docURL, e.Data)
			if err == nil {
				return v, nil
			}
			log.Warnf("catalog: ignoring cached payload: %v", err)
		}
	}

	if data, ok := c.local.Get(docURL); ok {
		v, err := decode(resource, docURL, data)
		if err == nil {
			return v, nil
		}
		log.Warnf("catalog: dropping local payload: %v", err)
		c.local.Delete(docURL)
	}

	var zero T
	res, err, _ := c.group.Do(docURL, func() (interface{}, error) {
		return c.fetcher.Fetch(ctx, docURL)
	})
	if err != nil {
		return zero, fmt.Errorf("fetching %s: %w", resource, err)
	}
	data := res.([]byte)

	v, err := decode(resource, docURL, data)
	if err != nil {
		return zero, err
	}
	c.local.Set(docURL, data, ttl)
	return v, nil
}

func (c *Client) Programs(ctx context.Context) ([]Program, error) {
	return resolve(ctx, c, "programs", c.ProgramsURL(), c.cfg.ProgramsTTL, decodeList[Program, *Program])
}

func (c *Client) Courses(ctx context.Context) ([]CourseSummary, error) {
	return resolve(ctx, c, "courses", c.CoursesURL(), c.cfg.CoursesTTL, decodeList[CourseSummary, *CourseSummary])
}

func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	return resolve(ctx, c, "sections", c.SectionsURL(), c.cfg.SectionsTTL, decodeList[Section, *Section])
}

// ProgramDetailURL finds the detail document of a program, falling back
// to the conventional path when the program list cannot tell.
func (c *Client) ProgramDetailURL(ctx context.Context, code string) string {
	if programs, err := c.Programs(ctx); err == nil {
		for _, p := range programs {
			if strings.EqualFold(p.Code, code) && p.DetailURL != "" {
				if abs, err := validation.Resolve(c.ProgramsURL(), p.DetailURL); err == nil {
					return abs
				}
			}
		}
	}
	return c.cfg.BaseURL + "/programs/" + url.PathEscape(code) + ".json"
}

func (c *Client) ProgramDetail(ctx context.Context, code string) (*ProgramDetail, error) {
	u := c.ProgramDetailURL(ctx, code)
	p, err := resolve(ctx, c, "program detail", u, c.cfg.DetailTTL, decodeOne[ProgramDetail, *ProgramDetail])
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CoursesForProgram lists the courses a program references.
func (c *Client) CoursesForProgram(ctx context.Context, code string) ([]CourseSummary, error) {
	p, err := c.ProgramDetail(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.Courses, nil
}

// Course looks a course up in the course list.
func (c *Client) Course(ctx context.Context, code string) (*CourseSummary, error) {
	courses, err := c.Courses(ctx)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		if strings.EqualFold(courses[i].Code, code) {
			return &courses[i], nil
		}
	}
	return nil, fmt.Errorf("course %q: %w", code, ErrNotFound)
}

func (c *Client) CourseDetail(ctx context.Context, code string) (*CourseDetail, error) {
	u := c.cfg.BaseURL + "/courses/" + url.PathEscape(code) + ".json"
	if course, err := c.Course(ctx, code); err == nil && course.DetailURL != "" {
		if abs, err := validation.Resolve(c.CoursesURL(), course.DetailURL); err == nil {
			u = abs
		}
	}
	d, err := resolve(ctx, c, "course detail", u, c.cfg.DetailTTL, decodeOne[CourseDetail, *CourseDetail])
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SectionsByCourseCode follows the course's sections_url. Only when the
// course or its URL is unknown does it scan the full section list.
func (c *Client) SectionsByCourseCode(ctx context.Context, code string) ([]Section, error) {
	course, err := c.Course(ctx, code)
	if err == nil && course.SectionsURL != "" {
		u, rerr := validation.Resolve(c.CoursesURL(), course.SectionsURL)
		if rerr == nil {
			return resolve(ctx, c, "course sections", u, c.cfg.SectionsTTL, decodeList[Section, *Section])
		}
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		debuglog.Debugf("catalog: course %q unresolved, scanning sections: %v", code, err)
	}

	all, err := c.Sections(ctx)
	if err != nil {
		return nil, err
	}
	var out []Section
	for _, s := range all {
		if strings.EqualFold(s.CourseCode, code) {
			out = append(out, s)
		}
	}
	return out, nil
}
