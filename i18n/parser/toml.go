package parser

import (
	"bytes"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/kdsmith18542/localekit/i18n/resource"
)

// TOML parses TOML documents. Key order follows the document through the
// decoder metadata.
type TOML struct{}

func (TOML) Parse(h resource.Handle, raw []byte) ([]*resource.Tree, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []*resource.Tree{}, nil
	}

	var m map[string]any
	md, err := toml.Decode(string(raw), &m)
	if err != nil {
		return nil, &SyntaxError{Resource: h.String(), Format: "toml", Err: err}
	}

	doc := newObject()
	for _, key := range md.Keys() {
		v, ok := lookupTOML(m, key)
		if !ok {
			continue
		}
		if _, isTable := v.(map[string]any); isTable {
			ensure(doc, key)
			continue
		}
		parent := ensure(doc, key[:len(key)-1])
		parent.set(key[len(key)-1], fromTOML(v))
	}
	// Inline tables and arrays of tables are not always listed key by key.
	fill(doc, m)

	t, err := build(h, doc)
	if err != nil {
		return nil, &SyntaxError{Resource: h.String(), Format: "toml", Err: err}
	}
	return []*resource.Tree{t}, nil
}

func lookupTOML(m map[string]any, key toml.Key) (any, bool) {
	var cur any = m
	for _, part := range key {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = table[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func ensure(o *object, path []string) *object {
	for _, part := range path {
		next, ok := o.vals[part].(*object)
		if !ok {
			next = newObject()
			o.set(part, next)
		}
		o = next
	}
	return o
}

func fill(o *object, m map[string]any) {
	for _, k := range sortedKeys(m) {
		v := m[k]
		if table, ok := v.(map[string]any); ok {
			fill(ensure(o, []string{k}), table)
			continue
		}
		if _, ok := o.vals[k]; !ok {
			o.set(k, fromTOML(v))
		}
	}
}

func fromTOML(v any) any {
	switch v := v.(type) {
	case map[string]any:
		o := newObject()
		fill(o, v)
		return o
	case []map[string]any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = fromTOML(item)
		}
		return items
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = fromTOML(item)
		}
		return items
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
