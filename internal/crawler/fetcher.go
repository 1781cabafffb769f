package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pders01/planr/internal/config"
)

const (
	defaultUserAgent = "planr/1.0 (course planner; github.com/pders01/planr)"
	defaultTimeout   = 30 * time.Second
	defaultMaxBody   = 16 << 20
)

var (
	ErrBodyTooLarge = errors.New("response body too large")
	ErrNotJSON      = errors.New("response is not valid JSON")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// Fetcher retrieves one JSON document.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPFetcher fetches catalog documents over HTTP, optionally through a
// relay that takes the original path as a query parameter.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	relayURL  string
	maxBody   int64
}

func NewFetcher(cfg *config.Config) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		maxBody:   defaultMaxBody,
	}
	if cfg == nil {
		return f
	}
	if cfg.API.HTTPTimeout > 0 {
		f.client.Timeout = cfg.API.HTTPTimeout
	}
	if cfg.API.UserAgent != "" {
		f.userAgent = cfg.API.UserAgent
	}
	if cfg.API.MaxBodyBytes > 0 {
		f.maxBody = cfg.API.MaxBodyBytes
	}
	f.relayURL = cfg.API.RelayURL
	return f
}

// SetRelay routes every request through relayURL; an empty string turns
// relaying off.
func (f *HTTPFetcher) SetRelay(relayURL string) {
	f.relayURL = relayURL
}

// requestURL maps a catalog URL to the URL actually requested.
func (f *HTTPFetcher) requestURL(rawURL string) (string, error) {
	if f.relayURL == "" {
		return rawURL, nil
	}
	orig, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	relay, err := url.Parse(f.relayURL)
	if err != nil {
		return "", fmt.Errorf("parsing relay url: %w", err)
	}
	path := orig.EscapedPath()
	if orig.RawQuery != "" {
		path += "?" + orig.RawQuery
	}
	q := relay.Query()
	q.Set("path", path)
	relay.RawQuery = q.Encode()
	return relay.String(), nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := f.requestURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", rawURL, ErrBodyTooLarge, f.maxBody)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNotJSON)
	}
	return body, nil
}
