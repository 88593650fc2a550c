// Package httpcache keeps successful HTTP answers on disk for a period of
// time, so that price providers with a small daily allowance are queried at
// most once a day for the same request.
package httpcache

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/whatif/date"
	"github.com/rs/zerolog"
)

// Transport implements http.RoundTripper. It checks for a cached response on
// disk first. If a fresh cached response is not found, it proceeds with the
// actual HTTP request and caches the new response if it's successful.
//
// Entries expire at the end of the day.
type Transport struct {
	Base   http.RoundTripper // http.DefaultTransport if nil
	Dir    string            // os.TempDir() if empty
	Prefix string            // prepended to file names, e.g. the provider name
	Today  func() date.Date  // date.Today if nil
	Logger zerolog.Logger

	// Cacheable tells whether a successful answer can be stored. Every 2xx
	// answer is stored if nil.
	Cacheable func(resp *http.Response, body []byte) bool
}

func (t *Transport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	key := t.key(req)

	cachedResp, err := t.get(key, req)
	if err == nil {
		t.Logger.Debug().Str("path", req.URL.Path).Msg("cache hit")
		return cachedResp, nil
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err = base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.Logger.Debug().Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Str("status", resp.Status).Msg("round trip")
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if t.Cacheable != nil {
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		if !t.Cacheable(resp, body) {
			t.Logger.Debug().Str("path", req.URL.Path).Msg("answer not cached")
			return resp, nil
		}
	}
	if err := t.put(key, resp); err != nil {
		t.Logger.Warn().Err(err).Msg("cache write failed (ignored)")
	}
	return resp, nil
}

// key is unique per request and per day.
func (t *Transport) key(req *http.Request) string {
	today := date.Today
	if t.Today != nil {
		today = t.Today
	}
	rangeID := date.NewRange(today(), date.Daily).Identifier()
	key := fmt.Sprintf("%s %s %s", rangeID, req.Method, req.URL.String())
	key = fmt.Sprintf("%s-%x", rangeID, sha1.Sum([]byte(key)))
	if t.Prefix != "" {
		key = t.Prefix + "-" + key
	}
	return key
}

func (t *Transport) dir() string {
	if t.Dir == "" {
		return os.TempDir()
	}
	return t.Dir
}

// get retrieves a cached response from disk
func (t *Transport) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(t.dir(), key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores resp on disk. DumpResponse leaves resp's body readable.
func (t *Transport) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(t.dir(), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(t.dir(), key), content, 0o644)
}
