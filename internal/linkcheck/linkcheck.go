// Package linkcheck verifies that the urls in works.json still resolve.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/subhylahiri/sitegen/internal/works"
)

const (
	// DefaultTimeout bounds each request.
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit is the overall requests per second.
	DefaultRateLimit = 2.0

	// DefaultWorkers is the number of links checked at once.
	DefaultWorkers = 4

	userAgent = "sitegen-linkcheck/1.0"
)

var (
	// ErrBroken indicates the server answered with a non-success status.
	ErrBroken = errors.New("broken link")

	// ErrUnreachable indicates the request itself failed.
	ErrUnreachable = errors.New("unreachable link")

	// ErrRelative indicates a site-relative url with no site url to
	// resolve it against.
	ErrRelative = errors.New("relative link without site url")
)

// Target is one url to check, with the work it came from.
type Target struct {
	Project string     `json:"project"`
	Kind    works.Kind `json:"type"`
	ID      string     `json:"id"`
	URL     string     `json:"url"`
}

// Result is the outcome of checking one target.
type Result struct {
	Target
	Resolved string `json:"resolved"`
	Status   int    `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`

	err error
}

// OK reports whether the link resolved.
func (r Result) OK() bool {
	return r.err == nil
}

// Err returns the check failure, wrapping ErrBroken, ErrUnreachable or
// ErrRelative.
func (r Result) Err() error {
	return r.err
}

// Targets lists every work url in the catalog, projects in file order.
func Targets(cat *works.Catalog) []Target {
	var out []Target
	for _, p := range cat.Projects {
		for _, k := range cat.Types.Kinds() {
			for _, w := range p.Of(k) {
				out = append(out, Target{Project: p.ID, Kind: k, ID: w.ID, URL: w.URL})
			}
		}
	}
	return out
}

// Checker is a rate-limited link checker.
type Checker struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	siteURL    *url.URL
	workers    int
	logger     *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the overall requests per second. Zero or less
// disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Checker) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithSiteURL resolves site-relative work urls (slides, posters) against
// the deployed site.
func WithSiteURL(u *url.URL) Option {
	return func(c *Checker) {
		c.siteURL = u
	}
}

// WithWorkers sets how many links are checked concurrently.
func WithWorkers(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) {
		c.logger = l
	}
}

// New creates a link checker.
func New(opts ...Option) *Checker {
	c := &Checker{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		workers:    DefaultWorkers,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check checks every target and returns results in target order. It
// returns an error only when ctx is done.
func (c *Checker) Check(ctx context.Context, targets []Target) ([]Result, error) {
	results := make([]Result, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, t := range targets {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			results[i] = c.checkOne(gctx, t)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("checking links: %w", err)
	}
	return results, nil
}

func (c *Checker) checkOne(ctx context.Context, t Target) Result {
	r := Result{Target: t}

	resolved, err := c.resolve(t.URL)
	if err != nil {
		r.err = err
		r.Error = err.Error()
		return r
	}
	r.Resolved = resolved

	status, err := c.status(ctx, http.MethodHead, resolved)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.status(ctx, http.MethodGet, resolved)
	}
	r.Status = status

	switch {
	case err != nil:
		r.err = fmt.Errorf("%w %s: %v", ErrUnreachable, resolved, err)
	case status < 200 || status >= 400:
		r.err = fmt.Errorf("%w %s: status %d", ErrBroken, resolved, status)
	}

	if r.err != nil {
		r.Error = r.err.Error()
		c.logger.Warn("link check failed",
			zap.String("project", t.Project),
			zap.String("id", t.ID),
			zap.Error(r.err))
	} else {
		c.logger.Debug("link ok", zap.String("url", resolved), zap.Int("status", status))
	}
	return r
}

func (c *Checker) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrBroken, raw, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if c.siteURL == nil {
		return "", fmt.Errorf("%w: %s", ErrRelative, raw)
	}
	return c.siteURL.ResolveReference(u).String(), nil
}

func (c *Checker) status(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Failed returns the results that did not resolve.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
