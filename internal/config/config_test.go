package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/subhylahiri/sitegen/internal/works"
)

const sampleConfig = `
self_pattern: 'S[\w.]* Lahiri'
types: [article, preprint, slides, poster]
footer:
  author: Subhaneil Lahiri
  contact: sulahiri at stanford dot edu
  source_url: https://github.com/subhylahiri/subhylahiri.github.io
pages:
  - path: index.html
    active: home
    sections: [nav, footer, projects]
  - path: presentations/index.html
    active: pres
    sections: [nav, footer, presentations]
`

func TestPathFunctions(t *testing.T) {
	root := "/test/site"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"ConfigPath", ConfigPath, "/test/site/site.yml"},
		{"CachePath", CachePath, "/test/site/.cache"},
		{"DBPath", DBPath, "/test/site/.cache/works.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestFindSite(t *testing.T) {
	tmpDir := t.TempDir()
	siteDir := filepath.Join(tmpDir, "site")
	nestedDir := filepath.Join(siteDir, "presentations", "2020")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.WriteFile(ConfigPath(siteDir), []byte(sampleConfig), 0644); err != nil {
		t.Fatalf("Failed to write site.yml: %v", err)
	}

	found, err := FindSite(nestedDir)
	if err != nil {
		t.Fatalf("FindSite() error = %v", err)
	}
	if found != siteDir {
		t.Errorf("FindSite() = %q, want %q", found, siteDir)
	}

	if _, err := FindSite(tmpDir); err != ErrNotSite {
		t.Errorf("FindSite() outside a site error = %v, want ErrNotSite", err)
	}
}

func TestIsSite_DirNotFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(ConfigPath(tmpDir), 0755); err != nil {
		t.Fatal(err)
	}
	if IsSite(tmpDir) {
		t.Error("IsSite() = true when site.yml is a directory")
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Data.Works != DefaultWorks || cfg.Data.Nav != DefaultNav {
		t.Errorf("Data = %+v, want defaults", cfg.Data)
	}
	if cfg.Output != DefaultOutput {
		t.Errorf("Output = %q, want %q", cfg.Output, DefaultOutput)
	}
	if cfg.Footer.Author != "Subhaneil Lahiri" {
		t.Errorf("Footer.Author = %q", cfg.Footer.Author)
	}
	if len(cfg.Pages) != 2 || cfg.Pages[1].Active != "pres" {
		t.Errorf("Pages = %+v", cfg.Pages)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("pages: [unterminated")); err == nil {
		t.Error("Parse() should return error for invalid YAML")
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvSelfPattern, "S. Lahiri")

	cfg := &Config{
		BaseURL: "/",
		Types:   []string{"article"},
		Pages:   []Page{{Path: "index.html", Active: "home"}},
	}
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.BaseURL != "/" {
		t.Errorf("BaseURL = %q, want /", loaded.BaseURL)
	}
	if loaded.SelfPattern != "S. Lahiri" {
		t.Errorf("SelfPattern = %q, want env override", loaded.SelfPattern)
	}
}

func TestLoad_ReadsCurrentDotenv(t *testing.T) {
	root := t.TempDir()
	// unset for the test, restored afterwards
	t.Setenv(EnvSelfPattern, "")
	os.Unsetenv(EnvSelfPattern)

	if err := (&Config{}).Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	envPath := filepath.Join(root, EnvFile)

	var got []string
	for _, pattern := range []string{"Old", "New"} {
		if err := os.WriteFile(envPath, []byte(EnvSelfPattern+"="+pattern+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(root)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		got = append(got, cfg.SelfPattern)
	}
	if got[0] != "Old" || got[1] != "New" {
		t.Errorf("SelfPattern across reloads = %v, want [Old New]", got)
	}
	if _, set := os.LookupEnv(EnvSelfPattern); set {
		t.Error("Load() should not modify the process environment")
	}

	t.Setenv(EnvSelfPattern, "FromProcess")
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SelfPattern != "FromProcess" {
		t.Errorf("SelfPattern = %q, want process environment to win", cfg.SelfPattern)
	}
}

func TestLoad_NotFound(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load() should return error when site.yml not found")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBaseURL:  "https://example.org/",
		EnvTypes:    "article,abstract",
		EnvLinkRate: "0.5",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := &Config{SelfPattern: "kept"}
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.BaseURL != "https://example.org/" || cfg.LinkRate != 0.5 || cfg.SelfPattern != "kept" {
		t.Errorf("after ApplyEnv: %+v", cfg)
	}
	if len(cfg.Types) != 2 || cfg.Types[1] != "abstract" {
		t.Errorf("Types = %v", cfg.Types)
	}

	env[EnvLinkRate] = "fast"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("ApplyEnv() should reject a non-numeric link rate")
	}
}

func TestCompile(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	s, err := cfg.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !s.Self.MatchString("A. Bee, Subhaneil Lahiri") {
		t.Error("self pattern should match the full name")
	}
	if s.Types.Has(works.Abstract) || !s.Types.Has(works.Poster) {
		t.Errorf("Types = %v", s.Types.Kinds())
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad pattern", Config{SelfPattern: "S[ Lahiri"}},
		{"bad type", Config{Types: []string{"book"}}},
		{"empty page path", Config{Pages: []Page{{}}}},
		{"page outside root", Config{Pages: []Page{{Path: "../x.html"}}}},
		{"bad section", Config{Pages: []Page{{Path: "x.html", Sections: []string{"sidebar"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.Compile(); err == nil {
				t.Error("Compile() expected error")
			}
		})
	}
}

func TestBaseFor(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		page Page
		want string
	}{
		{"root page", Config{}, Page{Path: "index.html"}, ""},
		{"nested page", Config{}, Page{Path: "presentations/index.html"}, "../"},
		{"deep page", Config{}, Page{Path: "a/b/c.html"}, "../../"},
		{"site base", Config{BaseURL: "/"}, Page{Path: "a/b/c.html"}, "/"},
		{"page base wins", Config{BaseURL: "/"}, Page{Path: "a/c.html", Base: "../"}, "../"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.BaseFor(tt.page); got != tt.want {
				t.Errorf("BaseFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageSections(t *testing.T) {
	p := Page{Path: "x.html"}
	if !p.Has(SectionNav) || !p.Has(SectionFooter) || p.Has(SectionPublications) {
		t.Errorf("default sections = %v", p.SectionsFor())
	}

	cfg := &Config{Pages: []Page{{Path: "presentations/index.html"}}}
	if _, ok := cfg.FindPage("/presentations/index.html"); !ok {
		t.Error("FindPage() should accept a leading slash")
	}
	if _, ok := cfg.FindPage("other.html"); ok {
		t.Error("FindPage() found an unknown page")
	}
}
