package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// NameKey returns a comparison key for performer and studio names: case
// folded, punctuation dropped, and whitespace collapsed. "Jane  Doe",
// "jane doe" and "JANE-DOE" share a key.
func NameKey(name string) string {
	folded := cases.Fold().String(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// NameIndex remembers ids by NameKey so a run creates each performer or
// studio at most once. It is not safe for concurrent use.
type NameIndex struct {
	ids map[string]int64
	// planned holds names whose creation was only logged (dry-run), so they
	// have no id yet.
	planned map[string]struct{}
}

// NewNameIndex returns an empty index.
func NewNameIndex() *NameIndex {
	return &NameIndex{ids: make(map[string]int64), planned: make(map[string]struct{})}
}

// Lookup returns the id recorded for name.
func (n *NameIndex) Lookup(name string) (int64, bool) {
	key := NameKey(name)
	if key == "" {
		return 0, false
	}
	id, ok := n.ids[key]
	return id, ok
}

// Remember records id for name. Empty names are ignored.
func (n *NameIndex) Remember(name string, id int64) {
	if key := NameKey(name); key != "" && id > 0 {
		n.ids[key] = id
	}
}

// Plan records that name would be created without an id being known.
func (n *NameIndex) Plan(name string) {
	if key := NameKey(name); key != "" {
		n.planned[key] = struct{}{}
	}
}

// Planned reports whether name was already recorded by Plan.
func (n *NameIndex) Planned(name string) bool {
	_, ok := n.planned[NameKey(name)]
	return ok
}

// Len returns the number of remembered names.
func (n *NameIndex) Len() int { return len(n.ids) }
