package works

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Project is a named research effort with its works grouped by kind.
type Project struct {
	ID    string
	Title string
	Works map[Kind][]Work
}

// Of returns the project's works of one kind. The result is never nil for
// an enabled kind.
func (p Project) Of(k Kind) []Work {
	return p.Works[k]
}

// HasWorks reports whether any list of the project is non-empty.
func (p Project) HasWorks() bool {
	for _, ws := range p.Works {
		if len(ws) > 0 {
			return true
		}
	}
	return false
}

// HasAny reports whether any of the given kinds has a work.
func (p Project) HasAny(kinds ...Kind) bool {
	for _, k := range kinds {
		if len(p.Works[k]) > 0 {
			return true
		}
	}
	return false
}

// Catalog is the decoded works.json: projects in file order plus the
// type set used to decode them.
type Catalog struct {
	Types    TypeSet
	Projects []Project

	// preprints holds every preprint of the data file by id, whether or
	// not the preprint kind is enabled.
	preprints map[string]Work
}

// Preprints returns the preprints articles may link to through sameAs.
// A decoded catalog includes those of a disabled preprint kind.
func (c *Catalog) Preprints() map[string]Work {
	if c.preprints != nil {
		return c.preprints
	}
	return Index(c.Collect(Preprint))
}

// Project looks up a project by id.
func (c *Catalog) Project(id string) (Project, bool) {
	for _, p := range c.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// Collect concatenates the works of one kind across all projects, in
// project order.
func (c *Catalog) Collect(k Kind) []Work {
	var all []Work
	for _, p := range c.Projects {
		all = append(all, p.Works[k]...)
	}
	return all
}

// Find looks up a work by id in every enabled kind.
func (c *Catalog) Find(id string) (Work, bool) {
	for _, k := range c.Types.Kinds() {
		for _, w := range c.Collect(k) {
			if w.ID == id {
				return w, true
			}
		}
	}
	return Work{}, false
}

// Decode parses works.json. Kinds outside types are dropped; absent or
// null arrays of enabled kinds become empty lists.
func Decode(data []byte, types TypeSet) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing works: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing works: expected object of projects")
	}

	cat := &Catalog{Types: types, preprints: make(map[string]Work)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing works: %w", err)
		}
		id, _ := tok.(string)

		var raw map[string]json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing project %s: %w", id, err)
		}

		proj, err := decodeProject(id, raw, types)
		if err != nil {
			return nil, err
		}
		cat.Projects = append(cat.Projects, proj)

		linked := proj.Works[Preprint]
		if !types.Has(Preprint) {
			if linked, err = decodeList(id, raw, Preprint); err != nil {
				return nil, err
			}
		}
		for _, w := range linked {
			cat.preprints[w.ID] = w
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing works: %w", err)
	}
	return cat, nil
}

func decodeProject(id string, raw map[string]json.RawMessage, types TypeSet) (Project, error) {
	proj := Project{ID: id, Works: make(map[Kind][]Work)}

	if t, ok := raw["title"]; ok {
		if err := json.Unmarshal(t, &proj.Title); err != nil {
			return Project{}, fmt.Errorf("parsing project %s title: %w", id, err)
		}
	}

	for _, k := range types.Kinds() {
		ws, err := decodeList(id, raw, k)
		if err != nil {
			return Project{}, err
		}
		proj.Works[k] = ws
	}

	return proj, nil
}

// decodeList decodes one project's list of kind k. An absent or null list
// is empty.
func decodeList(id string, raw map[string]json.RawMessage, k Kind) ([]Work, error) {
	var entries []rawWork
	if data, ok := raw[string(k)]; ok {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parsing project %s %s list: %w", id, k, err)
		}
	}
	ws := make([]Work, 0, len(entries))
	for _, e := range entries {
		ws = append(ws, e.toWork(k))
	}
	return ws, nil
}

// SortReverseChronological orders papers newest first: by year, then by
// month. Equal dates keep their relative order. Missing dates count as 0.
func SortReverseChronological(ws []Work) {
	slices.SortStableFunc(ws, func(a, b Work) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Month - a.Month
	})
}

// Index builds a lookup table of works by id.
func Index(ws []Work) map[string]Work {
	idx := make(map[string]Work, len(ws))
	for _, w := range ws {
		idx[w.ID] = w
	}
	return idx
}
