// Package site runs the configured render sections over each page.
package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/subhylahiri/sitegen/internal/cite"
	"github.com/subhylahiri/sitegen/internal/config"
	"github.com/subhylahiri/sitegen/internal/loader"
	"github.com/subhylahiri/sitegen/internal/nav"
	"github.com/subhylahiri/sitegen/internal/render"
	"github.com/subhylahiri/sitegen/internal/works"
)

// ErrOutputIsSource is returned when rendering would overwrite the pages
// being read.
var ErrOutputIsSource = errors.New("output would overwrite source pages")

// SectionResult reports what one section did to a page.
type SectionResult struct {
	Section  string `json:"section"`
	Inserted int    `json:"inserted"`
	Error    string `json:"error,omitempty"`
}

// PageResult reports the outcome of rendering one page.
type PageResult struct {
	Path     string          `json:"path"`
	Sections []SectionResult `json:"sections"`
}

// Failed reports whether any section of the page failed.
func (r PageResult) Failed() bool {
	for _, s := range r.Sections {
		if s.Error != "" {
			return true
		}
	}
	return false
}

// Renderer applies render sections to pages. It holds only read-only
// settings, so independent pages may be rendered concurrently.
type Renderer struct {
	cfg      *config.Config
	settings config.Settings
	loader   loader.Loader
	logger   *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// New creates a renderer fetching data through l.
func New(cfg *config.Config, settings config.Settings, l loader.Loader, opts ...Option) *Renderer {
	r := &Renderer{
		cfg:      cfg,
		settings: settings,
		loader:   l,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderDocument runs every section of page over doc. Sections are
// independent: a failing section is logged and recorded, and the others
// still run.
func (r *Renderer) RenderDocument(ctx context.Context, page config.Page, doc *html.Node) PageResult {
	result := PageResult{Path: page.Path}
	log := r.logger.With(zap.String("page", page.Path))

	for _, section := range page.SectionsFor() {
		n, err := r.renderSection(ctx, page, section, doc)
		sr := SectionResult{Section: section, Inserted: n}
		if err != nil {
			sr.Error = err.Error()
			logSectionError(log, section, err)
		} else {
			log.Debug("rendered section", zap.String("section", section), zap.Int("inserted", n))
		}
		result.Sections = append(result.Sections, sr)
	}

	return result
}

func logSectionError(log *zap.Logger, section string, err error) {
	fields := []zap.Field{zap.String("section", section), zap.Error(err)}
	switch {
	case errors.Is(err, works.ErrIntegrity), errors.Is(err, works.ErrUnknownKind):
		log.Error("broken data file, section skipped", fields...)
	default:
		log.Warn("section skipped", fields...)
	}
}

func (r *Renderer) renderSection(ctx context.Context, page config.Page, section string, doc *html.Node) (int, error) {
	base := r.cfg.BaseFor(page)
	opts := render.Options{Base: base}

	switch section {
	case config.SectionNav:
		var tabs []nav.Tab
		if err := loader.LoadJSON(ctx, r.loader, page.Path, dataPath(base, r.cfg.Data.Nav), &tabs); err != nil {
			return 0, err
		}
		if err := nav.Build(doc, tabs, page.Active, base); err != nil {
			return 0, err
		}
		return 1, nil

	case config.SectionFooter:
		if err := nav.AppendFooter(doc, r.cfg.Footer); err != nil {
			return 0, err
		}
		return 1, nil

	case config.SectionPublications:
		cat, err := r.loadCatalog(ctx, page, base)
		if err != nil {
			return 0, err
		}
		return render.Publications(doc, cat, cite.NewFormatter(r.settings.Self, cat))

	case config.SectionPresentations:
		cat, err := r.loadCatalog(ctx, page, base)
		if err != nil {
			return 0, err
		}
		return render.Presentations(doc, cat, opts), nil

	case config.SectionProjects:
		cat, err := r.loadCatalog(ctx, page, base)
		if err != nil {
			return 0, err
		}
		return render.ProjectLinks(doc, cat, opts), nil

	default:
		return 0, fmt.Errorf("unknown section %q", section)
	}
}

// LoadCatalog fetches and decodes works.json as seen from page.
func (r *Renderer) LoadCatalog(ctx context.Context, page config.Page) (*works.Catalog, error) {
	return r.loadCatalog(ctx, page, r.cfg.BaseFor(page))
}

func (r *Renderer) loadCatalog(ctx context.Context, page config.Page, base string) (*works.Catalog, error) {
	data, err := r.loader.Fetch(ctx, page.Path, dataPath(base, r.cfg.Data.Works))
	if err != nil {
		return nil, err
	}
	cat, err := works.Decode(data, r.settings.Types)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", loader.ErrDecode, err)
	}
	return cat, nil
}

// dataPath locates a data file from a page: through the page's relative
// base, or from the site root when the base is an absolute URL.
func dataPath(base, file string) string {
	if u, err := url.Parse(base); err == nil && u.Scheme != "" {
		return "/" + file
	}
	return base + file
}

// RenderPage parses a page from in, renders it and writes it to out.
func (r *Renderer) RenderPage(ctx context.Context, page config.Page, in io.Reader, out io.Writer) (PageResult, error) {
	doc, err := html.Parse(in)
	if err != nil {
		return PageResult{Path: page.Path}, fmt.Errorf("parsing %s: %w", page.Path, err)
	}

	result := r.RenderDocument(ctx, page, doc)

	if err := html.Render(out, doc); err != nil {
		return result, fmt.Errorf("writing %s: %w", page.Path, err)
	}
	return result, nil
}

// RenderSite renders every configured page under root into outDir,
// keeping each page's relative path.
// The output directory must not be root itself.
func (r *Renderer) RenderSite(ctx context.Context, root, outDir string) ([]PageResult, error) {
	if samePath(root, outDir) {
		return nil, fmt.Errorf("%w: output directory %s is the site root", ErrOutputIsSource, outDir)
	}

	var results []PageResult

	for _, page := range r.cfg.Pages {
		result, err := r.renderFile(ctx, page, root, outDir)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

func (r *Renderer) renderFile(ctx context.Context, page config.Page, root, outDir string) (PageResult, error) {
	src := filepath.Join(root, filepath.FromSlash(page.Path))
	dst := filepath.Join(outDir, filepath.FromSlash(page.Path))

	in, err := os.Open(src)
	if err != nil {
		return PageResult{Path: page.Path}, fmt.Errorf("opening page: %w", err)
	}
	defer in.Close()

	if samePath(src, dst) {
		return PageResult{Path: page.Path}, fmt.Errorf("%w: %s", ErrOutputIsSource, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return PageResult{Path: page.Path}, fmt.Errorf("creating output directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return PageResult{Path: page.Path}, fmt.Errorf("creating output page: %w", err)
	}

	result, err := r.RenderPage(ctx, page, in, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", dst, cerr)
	}
	return result, err
}

// samePath reports whether a and b name the same file or directory,
// following symlinks. Paths that do not exist yet are compared by name.
func samePath(a, b string) bool {
	ai, aerr := os.Stat(a)
	bi, berr := os.Stat(b)
	if aerr == nil && berr == nil {
		return os.SameFile(ai, bi)
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
