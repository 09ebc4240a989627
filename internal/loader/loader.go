// Package loader fetches JSON data files relative to the page being rendered.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

var (
	// ErrFetch indicates the data file could not be retrieved.
	ErrFetch = errors.New("fetching data file")

	// ErrDecode indicates the data file is not valid JSON for the target.
	ErrDecode = errors.New("decoding data file")
)

// Loader retrieves a data file named relative to a page.
type Loader interface {
	// Fetch returns the raw bytes of rel, resolved against the directory
	// of pagePath.
	Fetch(ctx context.Context, pagePath, rel string) ([]byte, error)
}

// Dir returns the directory part of a slash-separated page path,
// with a trailing slash. A page at the site root yields "".
func Dir(pagePath string) string {
	i := strings.LastIndex(pagePath, "/")
	if i < 0 {
		return ""
	}
	return pagePath[:i+1]
}

// Resolve joins rel onto the directory of pagePath and cleans the result.
func Resolve(pagePath, rel string) string {
	if strings.HasPrefix(rel, "/") {
		return path.Clean(rel)
	}
	return path.Clean(Dir(pagePath) + rel)
}

// LoadJSON fetches rel and decodes it into v.
func LoadJSON(ctx context.Context, l Loader, pagePath, rel string, v any) error {
	data, err := l.Fetch(ctx, pagePath, rel)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, Resolve(pagePath, rel), err)
	}
	return nil
}

// FSLoader reads data files from a file system rooted at the site root.
type FSLoader struct {
	FS fs.FS
}

// NewFSLoader creates a loader over fsys.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{FS: fsys}
}

func (l *FSLoader) Fetch(ctx context.Context, pagePath, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFetch, rel, err)
	}

	name := strings.TrimPrefix(Resolve(pagePath, rel), "/")
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w %s: path escapes site root", ErrFetch, name)
	}

	data, err := fs.ReadFile(l.FS, name)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFetch, name, err)
	}
	return data, nil
}
