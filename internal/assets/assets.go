// Package assets checks the slides and posters hosted with the site.
package assets

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/subhylahiri/sitegen/internal/works"
)

var (
	// ErrMissing indicates a hosted file does not exist under the site root.
	ErrMissing = errors.New("hosted file not found")

	// ErrUnreadable indicates a hosted PDF cannot be parsed or has no pages.
	ErrUnreadable = errors.New("hosted PDF unreadable")

	// ErrOutsideRoot indicates a url that climbs out of the site root.
	ErrOutsideRoot = errors.New("hosted file outside site root")
)

// Report describes one hosted file.
type Report struct {
	Project string     `json:"project"`
	Kind    works.Kind `json:"type"`
	ID      string     `json:"id"`
	Path    string     `json:"path"`
	Pages   int        `json:"pages,omitempty"`
	Heading string     `json:"heading,omitempty"`
	Error   string     `json:"error,omitempty"`

	err error
}

// OK reports whether the file was found and, for PDFs, parsed.
func (r Report) OK() bool {
	return r.err == nil
}

// Err returns the failure, wrapping ErrMissing, ErrUnreadable or
// ErrOutsideRoot.
func (r Report) Err() error {
	return r.err
}

// Hosted reports whether a work url names a file served by the site
// itself rather than an external page.
func Hosted(w works.Work) bool {
	if w.IsPaper() || w.URL == "" {
		return false
	}
	u, err := url.Parse(w.URL)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// Check inspects every hosted slide and poster file of the catalog under
// the site root.
func Check(root string, cat *works.Catalog) []Report {
	var reports []Report
	for _, p := range cat.Projects {
		for _, k := range cat.Types.Kinds() {
			for _, w := range p.Of(k) {
				if !Hosted(w) {
					continue
				}
				r := CheckFile(root, w)
				r.Project = p.ID
				reports = append(reports, r)
			}
		}
	}
	return reports
}

// CheckFile inspects the file behind one hosted work.
func CheckFile(root string, w works.Work) Report {
	r := Report{Kind: w.Kind, ID: w.ID}

	fullPath, err := ResolvePath(root, w.URL)
	r.Path = fullPath
	if err == nil && strings.EqualFold(filepath.Ext(fullPath), ".pdf") {
		r.Pages, r.Heading, err = inspectPDF(fullPath)
	}

	if err != nil {
		r.err = err
		r.Error = err.Error()
	}
	return r
}

// ResolvePath maps a site-relative url to a file under root and checks it
// exists.
func ResolvePath(root, rel string) (string, error) {
	u, err := url.Parse(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMissing, rel, err)
	}
	clean := path.Clean("/" + u.Path)
	if strings.HasPrefix(path.Clean(u.Path), "..") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}

	fullPath := filepath.Join(root, filepath.FromSlash(clean))

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fullPath, fmt.Errorf("%w: %s", ErrMissing, fullPath)
		}
		return fullPath, fmt.Errorf("checking %s: %w", fullPath, err)
	}
	if info.IsDir() {
		return fullPath, fmt.Errorf("%w: %s is a directory", ErrMissing, fullPath)
	}

	return fullPath, nil
}

// inspectPDF opens a PDF, counts its pages and takes the first
// substantial line of the first page as its heading.
func inspectPDF(filePath string) (pages int, heading string, err error) {
	defer func() {
		// the parser panics on some malformed files
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrUnreadable, filePath, p)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %s: %v", ErrUnreadable, filePath, err)
	}
	defer f.Close()

	pages = r.NumPage()
	if pages < 1 {
		return 0, "", fmt.Errorf("%w: %s has no pages", ErrUnreadable, filePath)
	}

	page := r.Page(1)
	if page.V.IsNull() {
		return pages, "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return pages, "", nil
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); len(line) > 3 {
			return pages, line, nil
		}
	}
	return pages, "", nil
}

// Failed returns the reports with errors.
func Failed(reports []Report) []Report {
	var out []Report
	for _, r := range reports {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
