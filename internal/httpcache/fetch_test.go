package httpcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRevalidatesWithETag(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	ctx := context.Background()

	first, err := f.Get(ctx, srv.URL+"/feed", "")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(first.Body))
	assert.False(t, first.FromCache)

	second, err := f.Get(ctx, srv.URL+"/feed", "")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(second.Body))
	assert.True(t, second.FromCache)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetFallsBackToCacheOnServerError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("good"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	ctx := context.Background()

	_, err := f.Get(ctx, srv.URL, "")
	require.NoError(t, err)

	fail.Store(true)
	res, err := f.Get(ctx, srv.URL, "")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, "good", string(res.Body))
}

func TestGetErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	_, err := f.Get(context.Background(), srv.URL, "")
	assert.ErrorContains(t, err, "404")
}

func TestGetNotModifiedWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	_, err := f.Get(context.Background(), srv.URL, "")
	assert.ErrorIs(t, err, ErrNotModifiedWithoutCache)
}

func TestGetSendsAccept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Accept")))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	res, err := f.Get(context.Background(), srv.URL, "text/calendar")
	require.NoError(t, err)
	assert.Equal(t, "text/calendar", string(res.Body))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", RedactURL("https://example.com/private.ics?token=abcd"))
	assert.Equal(t, "url://...(redacted)", RedactURL("not a url"))
}
