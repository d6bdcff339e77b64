package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratskal/internal/calendar"
	"ratskal/internal/config"
)

func TestPageURL(t *testing.T) {
	c := calendar.Cursor{Year: 2025, Month: time.March}
	tests := map[string]string{
		"127.0.0.1:8080": "http://127.0.0.1:8080/kalender?month=2025-03",
		":8080":          "http://127.0.0.1:8080/kalender?month=2025-03",
		"0.0.0.0:80":     "http://127.0.0.1:80/kalender?month=2025-03",
		"[::]:8080":      "http://127.0.0.1:8080/kalender?month=2025-03",
		"rat.local":      "http://rat.local/kalender?month=2025-03",
	}
	for listen, want := range tests {
		assert.Equal(t, want, PageURL(listen, c), listen)
	}
}

func TestSnapshotValidatesOptions(t *testing.T) {
	err := Snapshot(context.Background(), Options{OutputPath: "x.png"})
	assert.ErrorContains(t, err, "URL is required")

	err = Snapshot(context.Background(), Options{URL: "http://127.0.0.1/kalender"})
	assert.ErrorContains(t, err, "OutputPath is required")
}

func TestOptionDefaults(t *testing.T) {
	o, err := Options{URL: "u", OutputPath: "p"}.validate()
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "preview.png")
	require.NoError(t, writeFileAtomic(path, []byte("first")))
	require.NoError(t, writeFileAtomic(path, []byte("second")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRequestHeaders(t *testing.T) {
	assert.Nil(t, requestHeaders(nil))
	assert.Nil(t, requestHeaders(&config.BasicAuthConfig{Username: "rat"}))

	headers := requestHeaders(&config.BasicAuthConfig{Username: "rat", Password: "geheim"})
	require.Len(t, headers, 1)
	auth, ok := headers["Authorization"].(string)
	require.True(t, ok)
	assert.Equal(t, "Basic cmF0OmdlaGVpbQ==", auth)

	// The value must be what the server's basic auth check decodes.
	req := httptest.NewRequest(http.MethodGet, "/kalender", nil)
	req.Header.Set("Authorization", auth)
	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "rat", user)
	assert.Equal(t, "geheim", pass)
}
