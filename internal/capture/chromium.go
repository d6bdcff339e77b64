// Package capture renders the calendar page to a PNG with headless Chromium,
// for kiosk displays and printed notice boards.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"ratskal/internal/calendar"
	"ratskal/internal/config"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 960
	DefaultTimeout = 30 * time.Second

	// ReadySelector matches the page root once the grid has been rendered.
	ReadySelector = `[data-ready="true"]`
)

// Options defines a single capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/kalender?month=2025-03".
	URL string

	// OutputPath receives the PNG. It is replaced atomically.
	OutputPath string

	// Width and Height are the viewport size; zero means the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture; zero means DefaultTimeout.
	Timeout time.Duration

	// BasicAuth is sent with every request when the page is protected.
	BasicAuth *config.BasicAuthConfig
}

func (o Options) validate() (Options, error) {
	if o.URL == "" {
		return o, errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return o, errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o, nil
}

// PageURL returns the local URL of the month page served on listen.
// An empty host (":8080") or a wildcard host is reached via loopback.
func PageURL(listen string, c calendar.Cursor) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = listen, ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}
	u := url.URL{
		Scheme:   "http",
		Host:     host,
		Path:     "/kalender",
		RawQuery: url.Values{"month": {c.String()}}.Encode(),
	}
	return u.String()
}

// Snapshot navigates headless Chromium to opts.URL, waits until the page
// root carries data-ready="true" and writes a full-page PNG.
func Snapshot(parent context.Context, opts Options) error {
	opts, err := opts.validate()
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if headers := requestHeaders(opts.BasicAuth); len(headers) > 0 {
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return writeFileAtomic(opts.OutputPath, png)
}

// requestHeaders returns the extra headers for every page request. It is nil
// unless both username and password are set, as the server requires.
func requestHeaders(auth *config.BasicAuthConfig) network.Headers {
	if auth == nil || auth.Username == "" || auth.Password == "" {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
	return network.Headers{"Authorization": "Basic " + token}
}

// writeFileAtomic keeps /preview.png readers from ever seeing a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.png")
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
