// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package source fetches the raw bytes of a .DS_Store from a URL or a
// local path.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgryski/go-farm"
)

// MaxContainerSize bounds how much we are willing to read, before and
// after decompression.  Real .DS_Store files are a few KB to a few MB.
const MaxContainerSize int64 = 64 << 20

var ErrFetch = errors.New("fetch failed")

// Blob is a fetched container.
type Blob struct {
	Location string
	Data     []byte
	// Compression names the encoding the payload arrived in, or "" if
	// it was not compressed.
	Compression string
	// Fingerprint is a farmhash of Data, for telling leaked copies apart.
	Fingerprint uint64
}

// Fetcher retrieves containers.  The zero value is ready to use.
type Fetcher struct {
	Client *http.Client
	Logger *slog.Logger
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return f.Logger
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

// Fetch retrieves location with a zero-value Fetcher.
func Fetch(ctx context.Context, location string) (*Blob, error) {
	var f Fetcher
	return f.Fetch(ctx, location)
}

// Fetch retrieves location, which is an http(s) URL, a file URL or a
// plain path.  Every error wraps ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, location string) (*Blob, error) {
	raw, err := f.fetchRaw(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, location, err)
	}
	data, compression, err := decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, location, err)
	}

	blob := &Blob{
		Location:    location,
		Data:        data,
		Compression: compression,
		Fingerprint: farm.Fingerprint64(data),
	}
	f.logger().Debug("fetched container",
		"location", location,
		"bytes", len(data),
		"compression", compression,
		"fingerprint", fmt.Sprintf("%016x", blob.Fingerprint))
	return blob, nil
}

func (f *Fetcher) fetchRaw(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// a plain path (or a Windows drive letter)
		return ReadFile(location)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.get(ctx, u.String())
	case "file":
		return ReadFile(u.Path)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequest: %w", err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return readLimited(resp.Body)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxContainerSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxContainerSize {
		return nil, fmt.Errorf("container larger than %d bytes", MaxContainerSize)
	}
	return data, nil
}
