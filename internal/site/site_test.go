package site

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/subhylahiri/sitegen/internal/config"
	"github.com/subhylahiri/sitegen/internal/loader"
	"github.com/subhylahiri/sitegen/internal/nav"
	"github.com/subhylahiri/sitegen/internal/works"
)

const testNav = `[
	{"id": "home", "name": "Home", "url": "index.html", "internal": true},
	{"id": "pubs", "name": "Publications", "url": "publications/index.html", "internal": true},
	{"id": "gh", "name": "GitHub", "url": "https://github.com/x", "internal": false}
]`

const testWorks = `{
	"syn": {"title": "Synapses",
		"article": [{"id": "a1", "url": "https://doi.org/a1", "title": "Memory", "author": "A. Bee, S. Lahiri", "ref": "Neuron 5 100", "year": 2020, "month": 3, "sameAs": "e1"}],
		"preprint": [
			{"id": "e1", "url": "https://arxiv.org/abs/1", "title": "Memory", "author": "A. Bee, S. Lahiri", "ref": "arXiv:1", "year": 2019},
			{"id": "e2", "url": "https://arxiv.org/abs/2", "title": "Forgetting", "author": "S. Lahiri", "ref": "arXiv:2", "year": 2021}
		],
		"slides": [{"id": "s1", "url": "slides/s1.pdf", "title": "Talk"}]
	}
}`

const pubsPage = `<html><head></head><body>
<div class="header">Publications</div>
<h2 id="articles">Articles</h2>
<h2 id="preprints">Preprints</h2>
</body></html>`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"data/works.json": {Data: []byte(testWorks)},
		"data/nav.json":   {Data: []byte(testNav)},
	}
}

func testConfig(pages ...config.Page) *config.Config {
	cfg, _ := config.Parse([]byte("{}"))
	cfg.Footer = nav.Footer{Author: "S. Lahiri", Contact: "me at x dot org"}
	cfg.Pages = pages
	return cfg
}

func testSettings() config.Settings {
	return config.Settings{
		Self:  regexp.MustCompile(`S[\w.]* Lahiri`),
		Types: works.NewTypeSet(),
	}
}

func TestRenderPage_AllSections(t *testing.T) {
	page := config.Page{
		Path:     "publications/index.html",
		Active:   "pubs",
		Sections: []string{config.SectionNav, config.SectionFooter, config.SectionPublications},
	}
	r := New(testConfig(page), testSettings(), loader.NewFSLoader(testFS()))

	var out bytes.Buffer
	result, err := r.RenderPage(context.Background(), page, strings.NewReader(pubsPage), &out)
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if result.Failed() {
		t.Fatalf("RenderPage() sections failed: %+v", result.Sections)
	}

	got := out.String()
	for _, want := range []string{
		`<li id="pubs" class="active"><a href="../publications/index.html">Publications</a></li>`,
		`<a href="https://github.com/x">GitHub</a>`,
		`<div class="header" style="padding-top: 0em">`,
		`<div class="footer"><address>S. Lahiri: <tt>me at x dot org</tt>. </address></div>`,
		`<a href="https://arxiv.org/abs/1"><span class="eprint">arXiv:1</span></a>`,
		`<span class="title">Forgetting</span>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered page missing %q:\n%s", want, got)
		}
	}

	// The linked preprint is cited inside the article only.
	if n := strings.Count(got, `<span class="title">Memory</span>`); n != 1 {
		t.Errorf("linked preprint title rendered %d times, want 1", n)
	}
}

func TestRenderDocument_FailedSectionSkipped(t *testing.T) {
	fsys := testFS()
	delete(fsys, "data/nav.json")

	page := config.Page{
		Path:     "index.html",
		Sections: []string{config.SectionNav, config.SectionFooter},
	}
	r := New(testConfig(page), testSettings(), loader.NewFSLoader(fsys))

	var out bytes.Buffer
	result, err := r.RenderPage(context.Background(), page, strings.NewReader(pubsPage), &out)
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if !result.Failed() {
		t.Fatal("missing nav.json should fail the nav section")
	}
	if result.Sections[0].Error == "" || result.Sections[1].Error != "" {
		t.Errorf("Sections = %+v, want only nav failed", result.Sections)
	}
	if !strings.Contains(out.String(), `class="footer"`) {
		t.Error("footer should still be rendered when nav fails")
	}
	if strings.Contains(out.String(), `class="nav"`) {
		t.Error("nav should not be rendered")
	}
}

func TestRenderDocument_BrokenCrossReference(t *testing.T) {
	fsys := testFS()
	fsys["data/works.json"] = &fstest.MapFile{Data: []byte(`{"p": {"title": "P",
		"article": [{"id": "a", "url": "/a", "title": "A", "ref": "J 1 1", "year": 2020, "sameAs": "gone"}],
		"preprint": [{"id": "e", "url": "/e", "title": "E", "ref": "arXiv:9", "year": 2019}]
	}}`)}

	page := config.Page{Path: "index.html", Sections: []string{config.SectionPublications}}
	r := New(testConfig(page), testSettings(), loader.NewFSLoader(fsys))

	var out bytes.Buffer
	result, err := r.RenderPage(context.Background(), page, strings.NewReader(pubsPage), &out)
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	sr := result.Sections[0]
	if sr.Error == "" || !strings.Contains(sr.Error, "gone") {
		t.Errorf("section error = %q, want missing preprint", sr.Error)
	}
	if sr.Inserted != 1 {
		t.Errorf("Inserted = %d, want the preprint list still inserted", sr.Inserted)
	}
}

func TestDataPath(t *testing.T) {
	tests := []struct {
		base, file, want string
	}{
		{"", "data/works.json", "data/works.json"},
		{"../", "data/works.json", "../data/works.json"},
		{"/", "data/nav.json", "/data/nav.json"},
		{"https://example.org/", "data/nav.json", "/data/nav.json"},
	}

	for _, tt := range tests {
		if got := dataPath(tt.base, tt.file); got != tt.want {
			t.Errorf("dataPath(%q, %q) = %q, want %q", tt.base, tt.file, got, tt.want)
		}
	}
}

func TestRenderSite(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(root, config.DefaultOutput)

	for name, data := range testFS() {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data.Data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	pagePath := filepath.Join(root, "publications", "index.html")
	if err := os.MkdirAll(filepath.Dir(pagePath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pagePath, []byte(pubsPage), 0644); err != nil {
		t.Fatal(err)
	}

	page := config.Page{Path: "publications/index.html", Active: "pubs"}
	r := New(testConfig(page), testSettings(), loader.NewFSLoader(os.DirFS(root)))

	results, err := r.RenderSite(context.Background(), root, outDir)
	if err != nil {
		t.Fatalf("RenderSite() error = %v", err)
	}
	if len(results) != 1 || results[0].Failed() {
		t.Fatalf("RenderSite() results = %+v", results)
	}

	rendered, err := os.ReadFile(filepath.Join(outDir, "publications", "index.html"))
	if err != nil {
		t.Fatalf("reading rendered page: %v", err)
	}
	if !strings.Contains(string(rendered), `class="nav"`) {
		t.Errorf("rendered page has no nav:\n%s", rendered)
	}

	// Source page is left untouched.
	src, _ := os.ReadFile(pagePath)
	if string(src) != pubsPage {
		t.Error("RenderSite() modified the source page")
	}
}

func TestRenderSite_OutputIsRoot(t *testing.T) {
	root := t.TempDir()
	pagePath := filepath.Join(root, "index.html")
	if err := os.WriteFile(pagePath, []byte(pubsPage), 0644); err != nil {
		t.Fatal(err)
	}
	page := config.Page{Path: "index.html", Sections: []string{config.SectionFooter}}
	r := New(testConfig(page), testSettings(), loader.NewFSLoader(os.DirFS(root)))

	for _, out := range []string{root, filepath.Join(root, "."), filepath.Join(root, "x", "..")} {
		_, err := r.RenderSite(context.Background(), root, out)
		if !errors.Is(err, ErrOutputIsSource) {
			t.Errorf("RenderSite(%s) error = %v, want ErrOutputIsSource", out, err)
		}
	}

	src, err := os.ReadFile(pagePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(src) != pubsPage {
		t.Errorf("source page was overwritten:\n%s", src)
	}
}

func TestRenderSite_MissingPage(t *testing.T) {
	root := t.TempDir()
	page := config.Page{Path: "missing.html"}
	r := New(testConfig(page), testSettings(), loader.NewFSLoader(os.DirFS(root)))

	if _, err := r.RenderSite(context.Background(), root, filepath.Join(root, "out")); err == nil {
		t.Error("RenderSite() should fail for a missing page")
	}
}
