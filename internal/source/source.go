// Package source obtains raw model bytes from disk, a URL or memory.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrNotPLY         = errors.New("not a .ply file")
	ErrTooLarge       = errors.New("download exceeds size limit")
	ErrBadStatus      = errors.New("unexpected HTTP status")
	ErrUnsupportedURL = errors.New("unsupported URL scheme")
)

// File is a named blob of model data.
type File struct {
	Name string
	Data []byte
}

// HasPLYExtension reports whether name ends in .ply, ignoring case.
func HasPLYExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".ply")
}

// FromPath reads a model from disk.
func FromPath(p string) (File, error) {
	if !HasPLYExtension(p) {
		return File{}, fmt.Errorf("%w: %s", ErrNotPLY, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return File{}, fmt.Errorf("reading model: %w", err)
	}
	return File{Name: filepath.Base(p), Data: data}, nil
}

// FromString wraps an in-memory document.
func FromString(name, s string) File {
	return File{Name: name, Data: []byte(s)}
}

// Fetcher downloads models over HTTP.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64 // zero means unlimited
}

// Fetch downloads rawURL. The file name is the last path segment.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (File, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return File{}, fmt.Errorf("parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return File{}, fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return File{}, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("fetching %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return File{}, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return File{}, fmt.Errorf("reading response: %w", err)
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		return File{}, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, f.MaxBytes)
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = u.Host
	}
	return File{Name: name, Data: data}, nil
}

// IsURL reports whether s looks like an http(s) URL rather than a path.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Open loads s as a URL when it looks like one and as a path otherwise.
func (f *Fetcher) Open(ctx context.Context, s string) (File, error) {
	if IsURL(s) {
		return f.Fetch(ctx, s)
	}
	return FromPath(s)
}
