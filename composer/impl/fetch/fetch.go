package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Image size limit for the Vision & OpenAI APIs is 20MB, and base images are forwarded to them.
// Ref: https://cloud.google.com/vision/quotas#limits
const MAX_IMAGE_BYTES = 20 * 1024 * 1024

// Fetcher loads encoded base image bytes from a location.
type Fetcher interface {
	// E.g., "https://cdn.example.com/campaign/hero.jpg", "testdata/hero.png"
	Fetch(ctx context.Context, location string) ([]byte, error)
}

type fetcher struct {
	httpClient *http.Client
	cache      *cache.Cache
	group      singleflight.Group
}

// New returns a fetcher that downloads http(s) URLs within timeout and reads anything else from
// the local filesystem. Results are kept for cacheTTL and concurrent fetches of one location
// share a single download.
func New(timeout time.Duration, cacheTTL time.Duration) Fetcher {
	return &fetcher{
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(cacheTTL, 2*cacheTTL),
	}
}

// Fetch returns the bytes at location. Concurrent callers share one load, which is detached
// from any single caller's cancellation and bounded by the client timeout instead; each caller
// still stops waiting when its own ctx is done.
func (f *fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if cached, ok := f.cache.Get(location); ok {
		return cached.([]byte), nil
	}

	resultChan := f.group.DoChan(location, func() (interface{}, error) {
		if cached, ok := f.cache.Get(location); ok {
			return cached, nil
		}
		data, err := f.load(context.WithoutCancel(ctx), location)
		if err != nil {
			return nil, err
		}
		f.cache.SetDefault(location, data)
		return data, nil
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to fetch %s: %w", location, ctx.Err())
	case result = <-resultChan:
	}
	if result.Err != nil {
		return nil, result.Err
	}

	data, ok := result.Val.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", result.Val)
	}
	return data, nil
}

func (f *fetcher) load(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", location, err)
		}
		return data, checkSize(location, len(data))
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	response, err := f.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", location, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", location, response.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, MAX_IMAGE_BYTES+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, checkSize(location, len(data))
}

func checkSize(location string, size int) error {
	if size > MAX_IMAGE_BYTES {
		return fmt.Errorf("image %s exceeds %d bytes", location, MAX_IMAGE_BYTES)
	}
	if size == 0 {
		return fmt.Errorf("image %s is empty", location)
	}
	return nil
}
