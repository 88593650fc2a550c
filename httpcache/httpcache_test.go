package httpcache

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/etnz/whatif/date"
)

func TestTransport(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/fail" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, "hello %s", r.URL.Query().Get("name"))
	}))
	defer server.Close()

	today := date.New(2024, 3, 14)
	dir := t.TempDir()
	client := &http.Client{Transport: &Transport{Dir: dir, Prefix: "test", Today: func() date.Date { return today }}}

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := client.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		return resp.StatusCode, string(body)
	}

	for i := range 2 {
		if _, body := get("/?name=bob"); body != "hello bob" {
			t.Errorf("call #%d: got body %q, want %q", i, body, "hello bob")
		}
	}
	if hits.Load() != 1 {
		t.Errorf("got %d hits, want 1: the second call must be served from the cache", hits.Load())
	}

	// another url is another entry
	if _, body := get("/?name=alice"); body != "hello alice" {
		t.Errorf("got body %q, want %q", body, "hello alice")
	}
	if hits.Load() != 2 {
		t.Errorf("got %d hits, want 2", hits.Load())
	}

	// errors are not cached
	for range 2 {
		if status, _ := get("/fail"); status != http.StatusBadGateway {
			t.Errorf("got status %d, want %d", status, http.StatusBadGateway)
		}
	}
	if hits.Load() != 4 {
		t.Errorf("got %d hits, want 4", hits.Load())
	}

	// entries expire the next day
	today = today.Add(1)
	get("/?name=bob")
	if hits.Load() != 5 {
		t.Errorf("got %d hits, want 5: yesterday's entry must not be used", hits.Load())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d cache files, want 3", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "test-") {
			t.Errorf("cache file %q does not start with the prefix", e.Name())
		}
	}
}

func TestTransport_Key(t *testing.T) {
	today := date.New(2024, 3, 14)
	tr := &Transport{Prefix: "p", Today: func() date.Date { return today }}
	req := httptest.NewRequest(http.MethodGet, "http://example.com/x", nil)
	other := httptest.NewRequest(http.MethodGet, "http://example.com/y", nil)

	k1 := tr.key(req)
	if !strings.HasPrefix(k1, "p-2024-03-14-") {
		t.Errorf("key %q does not start with the prefix and the day", k1)
	}
	if k1 != tr.key(req) {
		t.Errorf("keys of the same request must be stable")
	}
	if k1 == tr.key(other) {
		t.Errorf("different urls got the same key %q", k1)
	}
	today = today.Add(1)
	if k2 := tr.key(req); k1 == k2 {
		t.Errorf("keys must change every day, got %q twice", k1)
	}
}

func TestTransport_Cacheable(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			fmt.Fprint(w, "busy")
			return
		}
		fmt.Fprint(w, "done")
	}))
	defer server.Close()

	dir := t.TempDir()
	client := &http.Client{Transport: &Transport{
		Dir:       dir,
		Cacheable: func(_ *http.Response, body []byte) bool { return string(body) != "busy" },
	}}

	want := []string{"busy", "done", "done"}
	for i, w := range want {
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("call #%d: %v", i, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("call #%d: reading: %v", i, err)
		}
		if string(body) != w {
			t.Errorf("call #%d: got body %q, want %q", i, body, w)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("got %d hits, want 2: the rejected answer must not be kept", hits.Load())
	}
}
