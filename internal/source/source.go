package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/stationuptime/stationuptime/internal/config"
)

// Open returns a reader over the (decompressed) export. The caller must
// close it.
func Open(ctx context.Context, in config.Input) (io.ReadCloser, error) {
	if in.Location == "" {
		return nil, fmt.Errorf("source: no input location")
	}

	var (
		rc  io.ReadCloser
		err error
	)
	if in.IsRemote() {
		rc, err = fetch(ctx, in)
	} else {
		rc, err = os.Open(in.Location)
	}
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", in.Location, err)
	}

	if !compressed(in) {
		return rc, nil
	}
	dec, err := zstd.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("source: zstd reader for %q: %w", in.Location, err)
	}
	slog.Debug("source: decoding zstd input", "location", in.Location)
	return &zstdReadCloser{dec: dec, under: rc}, nil
}

// compressed decides whether to decode zstd.
func compressed(in config.Input) bool {
	switch in.Compression {
	case "zstd":
		return true
	case "none":
		return false
	default:
		loc := in.Location
		if in.IsRemote() {
			// Ignore the query string when sniffing the extension.
			if i := strings.IndexAny(loc, "?#"); i >= 0 {
				loc = loc[:i]
			}
		}
		return strings.HasSuffix(loc, ".zst") || strings.HasSuffix(loc, ".zstd")
	}
}

type zstdReadCloser struct {
	dec   *zstd.Decoder
	under io.Closer
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.under.Close()
}

// fetch performs the HTTP GET for a remote export.
func fetch(ctx context.Context, in config.Input) (io.ReadCloser, error) {
	client := buildHTTPClient(in)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.Location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	slog.Debug("source: fetched remote export",
		"location", in.Location, "content_length", resp.ContentLength)
	return resp.Body, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the input's auth and TLS settings.
func buildHTTPClient(in config.Input) *http.Client {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: in.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg, Proxy: http.ProxyFromEnvironment},
			auth: in.Auth,
		},
		Timeout: in.Timeout,
	}
}
