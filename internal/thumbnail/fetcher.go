// Package thumbnail fetches and decodes video thumbnails from the image host.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // thumbnails are served as JPEG
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/stwalsh4118/ytcollage/internal/logger"
	_ "golang.org/x/image/webp" // vi_webp thumbnails
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Fetcher loads one thumbnail image. Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// Options configures an HTTPFetcher
type Options struct {
	Timeout           time.Duration
	MaxBytes          int64
	RequestsPerSecond float64
	Burst             int
	BreakerThreshold  int
	BreakerReset      time.Duration
}

// DefaultOptions returns options suitable for img.youtube.com
func DefaultOptions() Options {
	return Options{
		Timeout:           10 * time.Second,
		MaxBytes:          2 << 20,
		RequestsPerSecond: 20,
		Burst:             9,
		BreakerThreshold:  5,
		BreakerReset:      30 * time.Second,
	}
}

// HTTPFetcher fetches thumbnails over HTTP. Concurrent requests for the same
// address share one download, outbound requests are rate limited, and a
// breaker fails fast while the host is unreachable.
type HTTPFetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *Breaker
	group    singleflight.Group
	timeout  time.Duration
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher; a nil client uses http.DefaultClient
func NewHTTPFetcher(client *http.Client, opts Options) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		breaker:  NewBreaker(opts.BreakerThreshold, opts.BreakerReset),
		timeout:  opts.Timeout,
		maxBytes: opts.MaxBytes,
	}
}

// Breaker exposes the fetcher's breaker for health reporting
func (f *HTTPFetcher) Breaker() *Breaker {
	return f.breaker
}

// Fetch downloads and decodes the image at url. The download itself is bound
// to the fetcher timeout, not to ctx, so callers sharing it are not failed by
// one caller giving up; ctx only bounds how long this caller waits.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	ch := f.group.DoChan(url, func() (interface{}, error) {
		return f.fetch(url)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(image.Image), nil
	}
}

func (f *HTTPFetcher) fetch(url string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var img image.Image
	err := f.breaker.Call(func() error {
		var getErr error
		img, getErr = f.get(ctx, url)
		return getErr
	}, countsAgainstHost)
	if err != nil {
		logger.Log.Debug().
			Err(err).
			Str("url", url).
			Str("breaker", f.breaker.State().String()).
			Msg("Thumbnail fetch failed")
		return nil, err
	}

	return img, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "image/webp,image/jpeg,image/png,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thumbnail request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("thumbnail host returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrThumbnailUnavailable)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrThumbnailTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %v: %w", err, ErrThumbnailUnavailable)
	}

	logger.Log.Debug().
		Str("url", url).
		Str("format", format).
		Int("bytes", len(data)).
		Msg("Thumbnail fetched")

	return img, nil
}

// countsAgainstHost reports whether err says something about the host rather
// than about one thumbnail
func countsAgainstHost(err error) bool {
	return !IsUnavailable(err) && !errors.Is(err, context.Canceled)
}
