package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/planr/internal/config"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		switch r.URL.Path {
		case "/api/programs.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"code":"CS"}]`))
		case "/api/html":
			_, _ = w.Write([]byte(`<html></html>`))
		case "/api/big.json":
			_, _ = w.Write([]byte(`"` + strings.Repeat("x", 2048) + `"`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.TestConfig()
	cfg.API.MaxBodyBytes = 1024
	f := NewFetcher(cfg)

	data, err := f.Fetch(context.Background(), srv.URL+"/api/programs.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"code":"CS"}]`, string(data))
	assert.Equal(t, "planr-test/1.0", gotUA)
	assert.Equal(t, "application/json", gotAccept)

	_, err = f.Fetch(context.Background(), srv.URL+"/api/missing.json")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "404")

	_, err = f.Fetch(context.Background(), srv.URL+"/api/html")
	assert.ErrorIs(t, err, ErrNotJSON)

	_, err = f.Fetch(context.Background(), srv.URL+"/api/big.json")
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestHTTPFetcher_Relay(t *testing.T) {
	var gotPath string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Query().Get("path")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer relay.Close()

	f := NewFetcher(nil)
	f.SetRelay(relay.URL + "/relay")

	data, err := f.Fetch(context.Background(), "https://catalog.uni.edu/api/courses/MAT1.json?v=2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, "/api/courses/MAT1.json?v=2", gotPath)
}

func TestHTTPFetcher_ContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(nil).Fetch(ctx, srv.URL+"/api/x.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
