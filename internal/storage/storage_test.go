package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/lexreview/internal/errcode"
)

func TestFetchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contract.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(Config{AllowedRoots: []string{dir}})
	data, err := c.Fetch(context.Background(), "file://"+filepath.ToSlash(path))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("Fetch() = %q", data)
	}
}

func TestFetchFileErrors(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{AllowedRoots: []string{dir}})

	_, err := c.Fetch(context.Background(), "file://"+filepath.ToSlash(filepath.Join(dir, "missing.pdf")))
	if !errors.Is(err, ErrNotFound) || !errcode.Has(err, errcode.FileLoadFailed) {
		t.Errorf("missing file error = %v, want ErrNotFound with C002", err)
	}

	_, err = c.Fetch(context.Background(), "file:///etc/passwd")
	if !errcode.Has(err, errcode.InvalidStoragePath) {
		t.Errorf("outside-root error = %v, want A002", err)
	}

	_, err = c.Fetch(context.Background(), "ftp://host/a.pdf")
	if !errcode.Has(err, errcode.InvalidStoragePath) {
		t.Errorf("scheme error = %v, want A002", err)
	}
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bucket/docs/a.pdf":
			w.Write([]byte("pdf-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(Config{S3Gateway: srv.URL + "/"})

	data, err := c.Fetch(context.Background(), srv.URL+"/bucket/docs/a.pdf")
	if err != nil || string(data) != "pdf-bytes" {
		t.Fatalf("Fetch(http) = %q, %v", data, err)
	}

	data, err = c.Fetch(context.Background(), "s3://bucket/docs/a.pdf")
	if err != nil || string(data) != "pdf-bytes" {
		t.Fatalf("Fetch(s3) = %q, %v", data, err)
	}

	_, err = c.Fetch(context.Background(), srv.URL+"/nope.pdf")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("404 error = %v, want ErrNotFound", err)
	}
}

func TestFetchS3WithoutGateway(t *testing.T) {
	_, err := New(Config{}).Fetch(context.Background(), "s3://bucket/a.pdf")
	if !errcode.Has(err, errcode.InvalidStoragePath) {
		t.Errorf("error = %v, want A002", err)
	}
}

func TestFetchHTTPRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Config{RetryDelay: time.Millisecond})
	data, err := c.Fetch(context.Background(), srv.URL+"/a.pdf")
	if err != nil || string(data) != "ok" {
		t.Fatalf("Fetch() = %q, %v", data, err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchHTTPExhaustion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{RetryDelay: time.Millisecond, MaxRetries: 2})
	_, err := c.Fetch(context.Background(), srv.URL+"/a.pdf")
	if !errcode.Has(err, errcode.StorageClientError) {
		t.Errorf("error = %v, want C003", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchMaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	_, err := New(Config{MaxBytes: 4}).Fetch(context.Background(), srv.URL+"/big.pdf")
	if !errcode.Has(err, errcode.ConvertToIOFailed) {
		t.Errorf("error = %v, want C004", err)
	}
}
