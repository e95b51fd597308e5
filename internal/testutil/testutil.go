// Package testutil contains common utility functions for unit tests.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// FakeClient returns an HTTP client that replies to requests for the
// URLs in pages with the mapped body, and with 404 to anything else.
func FakeClient(pages map[string][]byte) *http.Client {
	return &http.Client{Transport: &FakeTransport{Pages: pages}}
}

// FakeTransport is the round tripper behind FakeClient. It records the
// requests it receives.
type FakeTransport struct {
	Pages map[string][]byte

	mu       sync.Mutex
	requests []*http.Request
}

func (r *FakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	rsp := &http.Response{Header: make(http.Header), Request: req}
	if body, ok := r.Pages[req.URL.String()]; ok {
		rsp.StatusCode = http.StatusOK
		rsp.Body = io.NopCloser(bytes.NewReader(body))
	} else {
		rsp.StatusCode = http.StatusNotFound
		rsp.Body = io.NopCloser(strings.NewReader("404 not found"))
	}
	return rsp, nil
}

// Requests returns the requests received so far.
func (r *FakeTransport) Requests() []*http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*http.Request(nil), r.requests...)
}

// WriteFiles writes files, keyed by slash-separated relative path, into
// a fresh temp directory and returns the directory.
func WriteFiles(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
