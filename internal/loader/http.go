package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the number of requests per second sent to one site.
	DefaultRateLimit = 5.0

	// MaxBodySize caps the size of a fetched data file.
	MaxBodySize = 8 << 20
)

// HTTPLoader fetches data files from a deployed copy of the site.
type HTTPLoader struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    *url.URL
}

// HTTPOption configures an HTTPLoader.
type HTTPOption func(*HTTPLoader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(l *HTTPLoader) {
		l.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit. Zero or negative
// disables limiting.
func WithRateLimit(rps float64) HTTPOption {
	return func(l *HTTPLoader) {
		if rps <= 0 {
			l.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewHTTPLoader creates a loader resolving page paths against siteURL.
func NewHTTPLoader(siteURL string, opts ...HTTPOption) (*HTTPLoader, error) {
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parsing site url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("site url %q must be absolute", siteURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	l := &HTTPLoader{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    base,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *HTTPLoader) Fetch(ctx context.Context, pagePath, rel string) ([]byte, error) {
	ref, err := url.Parse(strings.TrimPrefix(Resolve(pagePath, rel), "/"))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFetch, rel, err)
	}
	target := l.baseURL.ResolveReference(ref).String()

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFetch, target, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFetch, target, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFetch, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %s: status %d", ErrFetch, target, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFetch, target, err)
	}
	return data, nil
}
