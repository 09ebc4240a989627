// Package works defines the project and work types read from works.json.
package works

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the type of a work.
type Kind string

const (
	Article  Kind = "article"
	Preprint Kind = "preprint"
	Slides   Kind = "slides"
	Poster   Kind = "poster"
	Abstract Kind = "abstract"
)

// AllKinds lists every known kind in registration order.
var AllKinds = []Kind{Article, Preprint, Slides, Poster, Abstract}

// DefaultKinds are the kinds enabled when no type set is configured.
// Abstracts are opt-in.
var DefaultKinds = []Kind{Article, Preprint, Slides, Poster}

// ErrUnknownKind is returned for a work type outside the registered set.
var ErrUnknownKind = errors.New("unknown work type")

// ParseKind converts a JSON key or config value to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// IsPaper reports whether works of this kind carry bibliographic fields.
func (k Kind) IsPaper() bool {
	switch k {
	case Article, Preprint, Abstract:
		return true
	}
	return false
}

// Label is the capitalised kind name used as icon link text.
func (k Kind) Label() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Plural is the anchor id used for grouped publication lists.
func (k Kind) Plural() string {
	if k == Slides {
		return string(k)
	}
	return string(k) + "s"
}

// TypeSet is the ordered set of enabled kinds.
type TypeSet struct {
	kinds []Kind
}

// NewTypeSet builds a type set, keeping first-seen order and dropping duplicates.
// An empty argument list yields DefaultKinds.
func NewTypeSet(kinds ...Kind) TypeSet {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	seen := make(map[Kind]bool, len(kinds))
	ts := TypeSet{}
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		seen[k] = true
		ts.kinds = append(ts.kinds, k)
	}
	return ts
}

// ParseTypeSet parses kind names such as "article,preprint,slides".
func ParseTypeSet(names []string) (TypeSet, error) {
	var kinds []Kind
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		k, err := ParseKind(name)
		if err != nil {
			return TypeSet{}, err
		}
		kinds = append(kinds, k)
	}
	return NewTypeSet(kinds...), nil
}

// Kinds returns the enabled kinds in registration order.
func (ts TypeSet) Kinds() []Kind {
	if ts.kinds == nil {
		return NewTypeSet().kinds
	}
	return append([]Kind(nil), ts.kinds...)
}

// Has reports whether k is enabled.
func (ts TypeSet) Has(k Kind) bool {
	for _, e := range ts.Kinds() {
		if e == k {
			return true
		}
	}
	return false
}

// Check returns ErrUnknownKind if k is not enabled.
func (ts TypeSet) Check(k Kind) error {
	if !ts.Has(k) {
		return fmt.Errorf("%w: %q is not enabled", ErrUnknownKind, k)
	}
	return nil
}
