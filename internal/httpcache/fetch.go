// Package httpcache fetches HTTP resources with conditional requests
// (ETag / Last-Modified) and keeps the last good body on disk so a flaky
// backend degrades to slightly stale data instead of an empty calendar.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "ratskal/internal/log"
)

// ErrNotModifiedWithoutCache is returned when the server answers 304 but no
// body was cached for the URL.
var ErrNotModifiedWithoutCache = errors.New("httpcache: 304 Not Modified but no cached body available")

// Result contains the outcome of a single fetch.
type Result struct {
	URL       string
	Body      []byte
	FromCache bool // true if the cached body was reused (304 or fallback)
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher performs cached GET requests.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher storing per-URL cache directories under
// cacheDir, e.g. "/var/lib/ratskal/http-cache". A nil client gets a 15s
// timeout default.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/http-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// Get fetches rawURL. accept is sent as the Accept header when non-empty.
//
// On network errors and non-2xx statuses the last cached body is returned
// when one exists; otherwise the error is returned.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) (Result, error) {
	if rawURL == "" {
		return Result{}, errors.New("httpcache: url is empty")
	}

	cachePath := f.cachePathForURL(rawURL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return Result{}, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := loadCacheBody(cachePath)
	// Validators are only useful when we can serve the body on 304.
	if len(cachedBody) == 0 {
		meta = cacheEntry{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("http fetch start", "url", RedactURL(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("http fetch network error, using cached body", err, "url", RedactURL(rawURL))
			return Result{URL: rawURL, Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if len(cachedBody) == 0 {
			return Result{}, ErrNotModifiedWithoutCache
		}
		appLog.Debug("http fetch not modified; using cache", "url", RedactURL(rawURL))
		return Result{URL: rawURL, Body: cachedBody, FromCache: true}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return Result{}, readErr
		}
		newMeta := cacheEntry{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("http cache save failed", err, "url", RedactURL(rawURL))
		}
		appLog.Info("http fetch success", "url", RedactURL(rawURL), "status", resp.StatusCode, "bytes", len(body))
		return Result{URL: rawURL, Body: body}, nil

	default:
		statusErr := fmt.Errorf("httpcache: unexpected status %s", resp.Status)
		if len(cachedBody) > 0 {
			appLog.Error("http fetch non-OK, using cached body", statusErr, "url", RedactURL(rawURL), "status", resp.StatusCode)
			return Result{URL: rawURL, Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, statusErr
	}
}

func (f *Fetcher) cachePathForURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body"))
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// RedactURL keeps scheme and host only, so tokens in paths or query strings
// never reach the logs.
//
//	https://example.com/private.ics?token=abcd -> https://example.com/...(redacted)
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "url://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
