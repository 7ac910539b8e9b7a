// Package storage fetches documents by URI.
//
// Supported schemes are file://, http:// and https://. s3://bucket/key is
// served through an HTTP gateway when one is configured.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/lexreview/internal/errcode"
)

// ErrNotFound is returned when the object does not exist.
var ErrNotFound = errors.New("object not found")

const (
	defaultTimeout  = 60 * time.Second
	defaultMaxBytes = 64 << 20
	defaultRetries  = 3
)

// Config configures a Client.
type Config struct {
	HTTPClient *http.Client
	Timeout    time.Duration // per request, default 60s

	// AllowedRoots limits file:// reads to these directories. Empty allows
	// any absolute path.
	AllowedRoots []string

	// S3Gateway is an HTTP prefix that s3://bucket/key is mapped onto as
	// {S3Gateway}/bucket/key.
	S3Gateway string

	// MaxBytes caps how much of an object Fetch reads. Default 64 MiB.
	MaxBytes int64

	MaxRetries int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Client retrieves objects from local disk or over HTTP.
type Client struct {
	http       *http.Client
	roots      []string
	s3Gateway  string
	maxBytes   int64
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// New creates a storage client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	roots := make([]string, 0, len(cfg.AllowedRoots))
	for _, r := range cfg.AllowedRoots {
		if abs, err := filepath.Abs(r); err == nil {
			roots = append(roots, filepath.Clean(abs))
		}
	}

	return &Client{
		http:       cfg.HTTPClient,
		roots:      roots,
		s3Gateway:  strings.TrimRight(cfg.S3Gateway, "/"),
		maxBytes:   cfg.MaxBytes,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// Get opens the object at uri. The caller closes the reader.
func (c *Client) Get(ctx context.Context, uri string) (io.ReadCloser, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errcode.New(errcode.InvalidStoragePath, fmt.Errorf("failed to parse %q: %w", uri, err))
	}

	switch u.Scheme {
	case "file":
		return c.openFile(u)
	case "http", "https":
		return c.openHTTP(ctx, u.String())
	case "s3":
		if c.s3Gateway == "" {
			return nil, errcode.Newf(errcode.InvalidStoragePath, "s3 uri %q needs storage.s3_gateway", uri)
		}
		key := strings.TrimPrefix(u.Path, "/")
		return c.openHTTP(ctx, c.s3Gateway+"/"+u.Host+"/"+key)
	default:
		return nil, errcode.Newf(errcode.InvalidStoragePath, "unsupported scheme %q", u.Scheme)
	}
}

// Fetch reads the whole object at uri.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	rc, err := c.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, c.maxBytes+1))
	if err != nil {
		return nil, errcode.New(errcode.StreamReadFailed, fmt.Errorf("failed to read %s: %w", uri, err))
	}
	if int64(len(data)) > c.maxBytes {
		return nil, errcode.Newf(errcode.ConvertToIOFailed, "%s exceeds %d bytes", uri, c.maxBytes)
	}
	return data, nil
}

func (c *Client) openFile(u *url.URL) (io.ReadCloser, error) {
	p := u.Path
	if u.Host != "" && u.Host != "localhost" {
		return nil, errcode.Newf(errcode.InvalidStoragePath, "file uri with remote host %q", u.Host)
	}
	p = filepath.Clean(filepath.FromSlash(p))
	if !filepath.IsAbs(p) {
		return nil, errcode.Newf(errcode.InvalidStoragePath, "file path %q is not absolute", p)
	}
	if !c.allowed(p) {
		return nil, errcode.Newf(errcode.InvalidStoragePath, "file path %q is outside the allowed roots", p)
	}

	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errcode.New(errcode.FileLoadFailed, fmt.Errorf("%s: %w", p, ErrNotFound))
	}
	if err != nil {
		return nil, errcode.New(errcode.FileLoadFailed, fmt.Errorf("failed to open %s: %w", p, err))
	}
	return f, nil
}

func (c *Client) allowed(p string) bool {
	if len(c.roots) == 0 {
		return true
	}
	for _, root := range c.roots {
		if p == root || strings.HasPrefix(p, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

type statusError struct {
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("storage returned status %d", e.StatusCode)
}

// openHTTP GETs target, retrying transport errors and 5xx responses.
func (c *Client) openHTTP(ctx context.Context, target string) (io.ReadCloser, error) {
	body, err := retry.DoWithData(
		func() (io.ReadCloser, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode == http.StatusOK {
				return resp.Body, nil
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			serr := &statusError{StatusCode: resp.StatusCode}
			if resp.StatusCode >= 500 {
				return nil, serr
			}
			return nil, retry.Unrecoverable(serr)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying storage fetch", "url", target, "attempt", n+1, "error", err)
		}),
	)
	if err == nil {
		return body, nil
	}

	var serr *statusError
	if errors.As(err, &serr) {
		if serr.StatusCode == http.StatusNotFound {
			return nil, errcode.New(errcode.FileLoadFailed, fmt.Errorf("%s: %w", target, ErrNotFound))
		}
		if serr.StatusCode < 500 {
			return nil, errcode.New(errcode.FileLoadFailed, fmt.Errorf("%s: %w", target, err))
		}
	}
	return nil, errcode.New(errcode.StorageClientError, fmt.Errorf("failed to fetch %s: %w", target, err))
}
