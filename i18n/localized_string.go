package i18n

import (
	"sort"
	"strings"

	"github.com/kdsmith18542/localekit/i18n/keypath"
	"github.com/kdsmith18542/localekit/i18n/resource"
)

// LocalizedString is the result of a lookup. It is immutable once returned.
type LocalizedString struct {
	// Name is the name that was requested.
	Name string
	// Key is the flat key the value came from.
	Key string
	// Value is the resolved text, or a placeholder when ResourceNotFound.
	Value string
	// Culture is the culture the value was resolved against.
	Culture string
	// ResourceNotFound reports that no literal value exists for Key.
	ResourceNotFound bool
	// SearchedLocation describes where the value was looked for.
	SearchedLocation string
}

func (s *LocalizedString) String() string { return s.Value }

// Placeholder is the value of a string that could not be resolved.
func Placeholder(name string) string {
	return "⟦" + name + "⟧"
}

// newLocalizedString builds a result for culture from an optional raw
// value. A nil value yields a not-found string carrying the placeholder.
func newLocalizedString(name, key, culture string, value *string) *LocalizedString {
	s := &LocalizedString{Name: name, Key: key, Culture: culture}
	if value == nil {
		s.Value = Placeholder(name)
		s.ResourceNotFound = true
		return s
	}
	s.Value = *value
	return s
}

// localizedSet is an ordered, key-indexed list of strings of one culture
// or one culture chain.
type localizedSet struct {
	items []*LocalizedString
	index map[string]int
}

func newLocalizedSet(capacity int) *localizedSet {
	return &localizedSet{
		items: make([]*LocalizedString, 0, capacity),
		index: make(map[string]int, capacity),
	}
}

func (s *localizedSet) get(key string) (*LocalizedString, bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// put appends v, or replaces the item with the same key in place.
func (s *localizedSet) put(v *LocalizedString) {
	if i, ok := s.index[v.Name]; ok {
		s.items[i] = v
		return
	}
	s.index[v.Name] = len(s.items)
	s.items = append(s.items, v)
}

func (s *localizedSet) sortByKey() {
	sort.SliceStable(s.items, func(i, j int) bool { return s.items[i].Name < s.items[j].Name })
	for i, v := range s.items {
		s.index[v.Name] = i
	}
}

// list returns a copy so callers cannot disturb the cached order.
func (s *localizedSet) list() []*LocalizedString {
	out := make([]*LocalizedString, len(s.items))
	copy(out, s.items)
	return out
}

// resolveEntry turns a flattened entry into a string. An alias takes the
// literal value at its target within the same map; a literal value always
// wins over an alias.
func resolveEntry(flat *resource.Flat, key string, e resource.Entry, culture string) *LocalizedString {
	if e.HasValue {
		v := e.Value
		return newLocalizedString(key, key, culture, &v)
	}
	if e.Lookup != "" {
		target := keypath.Normalize(strings.TrimPrefix(strings.TrimSpace(e.Lookup), keypath.RootMarker))
		if t, found := flat.Get(target); found && t.HasValue {
			v := t.Value
			return newLocalizedString(key, key, culture, &v)
		}
	}
	return newLocalizedString(key, key, culture, nil)
}
