package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/subhylahiri/sitegen/internal/cite"
	"github.com/subhylahiri/sitegen/internal/works"
)

func TestToBibTeX_BasicArticle(t *testing.T) {
	w := works.Work{
		ID:     "a1",
		Kind:   works.Article,
		Title:  "Memory & capacity",
		URL:    "https://doi.org/10.1234/a1",
		Author: "A. Bee, C. Dee and S. Lahiri",
		Ref:    "Physical Review X 7, 012345",
		Year:   2017,
		Month:  3,
	}
	pre := works.Work{ID: "e1", Kind: works.Preprint, Ref: "arXiv:1611.00001"}

	got := ToBibTeX(Entry{Work: w, Preprint: &pre})
	want := `@article{a1,
  author = {A. Bee and C. Dee and S. Lahiri},
  title = {Memory \& capacity},
  journal = {Physical Review X},
  volume = {7},
  pages = {012345},
  year = {2017},
  month = {3},
  doi = {10.1234/a1},
  url = {https://doi.org/10.1234/a1},
  eprint = {1611.00001},
  archiveprefix = {arXiv},
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToBibTeX() mismatch (-want +got):\n%s", diff)
	}
}

func TestToBibTeX_JournalWithLeadingDigit(t *testing.T) {
	w := works.Work{ID: "a2", Kind: works.Article, Title: "T", Ref: "2D Materials 5 012", Year: 2018}

	got := ToBibTeX(Entry{Work: w})
	for _, field := range []string{"journal = {2D Materials},", "volume = {5},", "pages = {012},"} {
		if !strings.Contains(got, field) {
			t.Errorf("ToBibTeX() missing %q:\n%s", field, got)
		}
	}
}

func TestToBibTeX_Inproceedings(t *testing.T) {
	w := works.Work{
		ID:    "c1",
		Kind:  works.Article,
		Title: "A Conference Paper",
		Ref:   "Advances in Neural Information Processing Systems (Conference) 30",
		Year:  2017,
	}

	got := ToBibTeX(Entry{Work: w})

	if !strings.HasPrefix(got, "@inproceedings{c1,") {
		t.Errorf("ToBibTeX() conference paper should be @inproceedings, got:\n%s", got)
	}
	if !strings.Contains(got, `booktitle = {Advances in Neural Information Processing Systems (Conference) 30}`) {
		t.Errorf("ToBibTeX() conference paper should use booktitle, got:\n%s", got)
	}
}

func TestToBibTeX_PreprintAndAbstract(t *testing.T) {
	pre := ToBibTeX(Entry{Work: works.Work{ID: "e2", Kind: works.Preprint, Title: "Forgetting", Ref: "arXiv:2001.1", URL: "https://arxiv.org/abs/2001.1"}})
	if !strings.HasPrefix(pre, "@misc{e2,") || !strings.Contains(pre, "howpublished = {arXiv:2001.1}") || !strings.Contains(pre, "eprint = {2001.1}") {
		t.Errorf("preprint entry:\n%s", pre)
	}
	if strings.Contains(pre, "doi =") {
		t.Errorf("arXiv url should not produce a doi:\n%s", pre)
	}

	abs := ToBibTeX(Entry{Work: works.Work{ID: "x1", Kind: works.Abstract, Title: "Poster", Ref: "Cosyne 2019"}})
	if !strings.HasPrefix(abs, "@misc{x1,") || !strings.Contains(abs, "note = {Abstract}") {
		t.Errorf("abstract entry:\n%s", abs)
	}
	if strings.Contains(abs, "year =") {
		t.Errorf("missing year should be omitted:\n%s", abs)
	}
}

func TestDetermineEntryType(t *testing.T) {
	tests := []struct {
		kind works.Kind
		ref  string
		want string
	}{
		{works.Article, "Nature 5 1", "article"},
		{works.Article, "Proceedings of NeurIPS", "inproceedings"},
		{works.Article, "Workshop on AI Safety", "inproceedings"},
		{works.Article, "", "article"},
		{works.Preprint, "arXiv:1", "misc"},
		{works.Abstract, "Conference X", "misc"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.ref, func(t *testing.T) {
			got := determineEntryType(works.Work{Kind: tt.kind, Ref: tt.ref})
			if got != tt.want {
				t.Errorf("determineEntryType(%s, %q) = %q, want %q", tt.kind, tt.ref, got, tt.want)
			}
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		authors string
		want    string
	}{
		{"S. Lahiri", "S. Lahiri"},
		{"A. Bee, S. Lahiri", "A. Bee and S. Lahiri"},
		{"A. Bee, C. Dee, & S. Lahiri", "A. Bee and C. Dee and S. Lahiri"},
		{"A. Bee and S. Lahiri", "A. Bee and S. Lahiri"},
		{"Lab_Group", `Lab\_Group`},
	}

	for _, tt := range tests {
		t.Run(tt.authors, func(t *testing.T) {
			if got := formatAuthors(tt.authors); got != tt.want {
				t.Errorf("formatAuthors(%q) = %q, want %q", tt.authors, got, tt.want)
			}
		})
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"100% effective", `100\% effective`},
		{"A & B", `A \& B`},
		{"$100 price", `\$100 price`},
		{"section #1", `section \#1`},
		{"under_score", `under\_score`},
		{"{braces}", `\{braces\}`},
		{"test~tilde", `test\textasciitilde{}tilde`},
		{"x^2", `x\textasciicircum{}2`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeLatex(tt.input); got != tt.want {
				t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

const catalogWorks = `{
	"syn": {"title": "Synapses",
		"article": [
			{"id": "a0", "url": "https://doi.org/a0", "title": "Old", "ref": "J 1 1", "year": 2010},
			{"id": "a1", "url": "https://doi.org/a1", "title": "New", "ref": "J 2 1", "year": 2020, "sameAs": "e1"}
		],
		"preprint": [
			{"id": "e1", "url": "https://arxiv.org/abs/1", "title": "New", "ref": "arXiv:1", "year": 2019},
			{"id": "e2", "url": "https://arxiv.org/abs/2", "title": "Newer", "ref": "arXiv:2", "year": 2021}
		],
		"slides": [{"id": "s1", "url": "s1.pdf", "title": "Talk"}]
	}
}`

func TestFromCatalog(t *testing.T) {
	cat, err := works.Decode([]byte(catalogWorks), works.NewTypeSet())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	entries, err := FromCatalog(cat)
	if err != nil {
		t.Fatalf("FromCatalog() error = %v", err)
	}

	var got []string
	for _, e := range entries {
		got = append(got, e.Work.ID)
	}
	if diff := cmp.Diff([]string{"a1", "a0", "e2"}, got); diff != "" {
		t.Errorf("FromCatalog() ids mismatch (-want +got):\n%s", diff)
	}
	if entries[0].Preprint == nil || entries[0].Preprint.ID != "e1" {
		t.Errorf("linked preprint not attached: %+v", entries[0])
	}
}

func TestFromCatalog_MissingPreprint(t *testing.T) {
	cat, err := works.Decode([]byte(`{"p": {"title": "P",
		"article": [{"id": "a", "url": "/a", "title": "A", "ref": "J 1 1", "year": 2020, "sameAs": "gone"}]
	}}`), works.NewTypeSet())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	_, err = FromCatalog(cat)
	if !cite.IsMissingPreprint(err) || !errors.Is(err, works.ErrIntegrity) {
		t.Errorf("FromCatalog() error = %v, want missing preprint", err)
	}
}

func TestParseBibTeX(t *testing.T) {
	src := `@article{a1,
  title = {New},
  doi = {10.1234/A1},
}

@misc{e2,
  title = {Newer},
}
`
	idx, err := ParseBibTeX(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseBibTeX() error = %v", err)
	}

	if !idx.HasEntry("e2", "") {
		t.Error("HasEntry(e2) = false, want true by key")
	}
	if !idx.HasEntry("other", "https://doi.org/10.1234/a1") {
		t.Error("HasEntry() should match by normalised DOI")
	}
	if idx.HasEntry("a0", "") {
		t.Error("HasEntry(a0) = true, want false")
	}

	entries := []Entry{
		{Work: works.Work{ID: "a1", URL: "https://doi.org/10.1234/a1"}},
		{Work: works.Work{ID: "a0"}},
	}
	missing := idx.Missing(entries)
	if len(missing) != 1 || missing[0].Work.ID != "a0" {
		t.Errorf("Missing() = %+v, want only a0", missing)
	}
}

func TestParseBibTeXFile_NotExist(t *testing.T) {
	idx, err := ParseBibTeXFile(filepath.Join(t.TempDir(), "none.bib"))
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}
	if len(idx.Keys) != 0 {
		t.Errorf("Keys = %v, want empty", idx.Keys)
	}
}

func TestAppendToBibFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	if err := AppendToBibFile(path, "@misc{x,\n}\n"); err != nil {
		t.Fatalf("AppendToBibFile() error = %v", err)
	}

	idx, err := ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}
	if !idx.Keys["x"] {
		t.Error("appended entry not found")
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "\n@misc") {
		t.Errorf("file content = %q", data)
	}
}

func TestDOI(t *testing.T) {
	tests := map[string]string{
		"https://doi.org/10.1103/PhysRevX.7.012345": "10.1103/PhysRevX.7.012345",
		"https://dx.doi.org/10.1/x":                 "10.1/x",
		"https://arxiv.org/abs/1":                   "",
		"slides/s1.pdf":                             "",
	}
	for in, want := range tests {
		if got := DOI(in); got != want {
			t.Errorf("DOI(%q) = %q, want %q", in, got, want)
		}
	}
}
