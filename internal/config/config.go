// Package config handles site configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/subhylahiri/sitegen/internal/nav"
	"github.com/subhylahiri/sitegen/internal/works"
)

// Config represents site configuration stored in site.yml at the site root.
type Config struct {
	BaseURL     string     `yaml:"base_url,omitempty"`     // Prefix for internal links; empty means relative to each page
	SiteURL     string     `yaml:"site_url,omitempty"`     // Deployed site, used by --remote and link checks
	SelfPattern string     `yaml:"self_pattern,omitempty"` // Regex matching the owner's name in author lists
	Types       []string   `yaml:"types,omitempty"`        // Enabled work types, in rendering order
	Data        DataFiles  `yaml:"data"`
	Footer      nav.Footer `yaml:"footer"`
	Pages       []Page     `yaml:"pages"`
	Output      string     `yaml:"output,omitempty"`    // Render output directory, relative to the root
	LinkRate    float64    `yaml:"link_rate,omitempty"` // Requests per second for link checks
}

// DataFiles names the JSON files, relative to the site root.
type DataFiles struct {
	Works string `yaml:"works,omitempty"`
	Nav   string `yaml:"nav,omitempty"`
}

// Page declares what gets rendered into one HTML page.
type Page struct {
	Path     string   `yaml:"path"`               // Slash-separated, relative to the site root
	Active   string   `yaml:"active,omitempty"`   // Nav tab id to highlight
	Base     string   `yaml:"base,omitempty"`     // Overrides the computed base for this page
	Sections []string `yaml:"sections,omitempty"` // Defaults to nav and footer
}

// Page sections.
const (
	SectionNav           = "nav"
	SectionFooter        = "footer"
	SectionPublications  = "publications"
	SectionPresentations = "presentations"
	SectionProjects      = "projects"
)

// ValidSections lists the supported section names.
var ValidSections = []string{SectionNav, SectionFooter, SectionPublications, SectionPresentations, SectionProjects}

// DefaultSections are rendered when a page lists none.
var DefaultSections = []string{SectionNav, SectionFooter}

const (
	ConfigFile      = "site.yml"
	EnvFile         = ".env"
	DefaultWorks    = "data/works.json"
	DefaultNav      = "data/nav.json"
	DefaultOutput   = "_site"
	CacheDir        = ".cache"
	DBFile          = "works.db"
	DefaultLinkRate = 2.0
)

// Environment variables that override site.yml.
const (
	EnvBaseURL     = "SITE_BASE_URL"
	EnvSiteURL     = "SITE_URL"
	EnvSelfPattern = "SITE_SELF_PATTERN"
	EnvTypes       = "SITE_TYPES"
	EnvLinkRate    = "SITE_LINK_RATE"
)

// ErrNotSite is returned when no site.yml is found.
var ErrNotSite = errors.New("not in a site (no site.yml found)")

// ConfigPath returns the path to site.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, CacheDir)
}

// DBPath returns the path to the works index from a root path.
func DBPath(root string) string {
	return filepath.Join(root, CacheDir, DBFile)
}

// IsSite checks if the given path contains a site.yml.
func IsSite(root string) bool {
	info, err := os.Stat(ConfigPath(root))
	return err == nil && !info.IsDir()
}

// FindSite walks up from the given path to find a site root.
func FindSite(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsSite(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotSite
		}
		abs = parent
	}
}

// Load reads site.yml from the given root, applies defaults, then applies
// overrides from the environment and the root's .env file.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// A missing .env is normal.
	dotenv, err := godotenv.Read(filepath.Join(root, EnvFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", EnvFile, err)
	}
	if err := cfg.ApplyEnv(envLookup(dotenv)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envLookup checks the process environment, then the .env values. The
// process environment is never modified, so every Load sees the current
// .env file.
func envLookup(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// Parse decodes site.yml contents and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Data.Works == "" {
		c.Data.Works = DefaultWorks
	}
	if c.Data.Nav == "" {
		c.Data.Nav = DefaultNav
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.LinkRate == 0 {
		c.LinkRate = DefaultLinkRate
	}
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBaseURL); ok {
		c.BaseURL = v
	}
	if v, ok := lookup(EnvSiteURL); ok {
		c.SiteURL = v
	}
	if v, ok := lookup(EnvSelfPattern); ok {
		c.SelfPattern = v
	}
	if v, ok := lookup(EnvTypes); ok {
		c.Types = strings.Split(v, ",")
	}
	if v, ok := lookup(EnvLinkRate); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLinkRate, err)
		}
		c.LinkRate = rps
	}
	return nil
}

// Save writes configuration to site.yml at the given root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Settings are the compiled, read-only values shared by every render call.
type Settings struct {
	Self  *regexp.Regexp
	Types works.TypeSet
}

// Compile validates the configuration and compiles patterns.
func (c *Config) Compile() (Settings, error) {
	var s Settings

	if c.SelfPattern != "" {
		re, err := regexp.Compile(c.SelfPattern)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid self_pattern: %w", err)
		}
		s.Self = re
	}

	types, err := works.ParseTypeSet(c.Types)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid types: %w", err)
	}
	s.Types = types

	for _, p := range c.Pages {
		if err := ValidatePage(p); err != nil {
			return Settings{}, err
		}
	}

	return s, nil
}

// ValidatePage checks a page's path and section names.
func ValidatePage(p Page) error {
	if p.Path == "" {
		return fmt.Errorf("page with empty path")
	}
	if path.IsAbs(p.Path) || strings.HasPrefix(path.Clean(p.Path), "..") {
		return fmt.Errorf("page %s: path must be inside the site root", p.Path)
	}
	for _, s := range p.Sections {
		if !isValidSection(s) {
			return fmt.Errorf("page %s: invalid section %q (valid: %v)", p.Path, s, ValidSections)
		}
	}
	return nil
}

func isValidSection(s string) bool {
	for _, valid := range ValidSections {
		if s == valid {
			return true
		}
	}
	return false
}

// SectionsFor returns the sections of a page, defaulting to nav and footer.
func (p Page) SectionsFor() []string {
	if len(p.Sections) == 0 {
		return DefaultSections
	}
	return p.Sections
}

// Has reports whether a page renders the given section.
func (p Page) Has(section string) bool {
	for _, s := range p.SectionsFor() {
		if s == section {
			return true
		}
	}
	return false
}

// BaseFor returns the prefix for internal links on a page: the page's own
// base, else the site base_url, else "../" per directory level.
func (c *Config) BaseFor(p Page) string {
	if p.Base != "" {
		return p.Base
	}
	if c.BaseURL != "" {
		return c.BaseURL
	}
	depth := strings.Count(path.Clean(p.Path), "/")
	return strings.Repeat("../", depth)
}

// FindPage looks up a page by path.
func (c *Config) FindPage(pagePath string) (Page, bool) {
	clean := path.Clean(strings.TrimPrefix(pagePath, "/"))
	for _, p := range c.Pages {
		if path.Clean(p.Path) == clean {
			return p, true
		}
	}
	return Page{}, false
}
