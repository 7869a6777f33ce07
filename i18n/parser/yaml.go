package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/kdsmith18542/localekit/i18n/resource"
)

// YAML parses YAML streams. Every document of a multi-document stream
// becomes its own tree.
type YAML struct{}

func (YAML) Parse(h resource.Handle, raw []byte) ([]*resource.Tree, error) {
	trees := []*resource.Tree{}
	dec := yaml.NewDecoder(bytes.NewReader(raw), yaml.UseOrderedMap())
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return trees, nil
		}
		if err != nil {
			return nil, &SyntaxError{Resource: h.String(), Format: "yaml", Err: err}
		}
		if v == nil {
			continue
		}

		doc, ok := fromYAML(v).(*object)
		if !ok {
			return nil, &SyntaxError{Resource: h.String(), Format: "yaml", Err: fmt.Errorf("top level must be a mapping, got %T", v)}
		}
		t, err := build(h, doc)
		if err != nil {
			return nil, &SyntaxError{Resource: h.String(), Format: "yaml", Err: err}
		}
		trees = append(trees, t)
	}
}

func fromYAML(v any) any {
	switch v := v.(type) {
	case yaml.MapSlice:
		o := newObject()
		for _, item := range v {
			o.set(scalar(item.Key), fromYAML(item.Value))
		}
		return o
	case map[string]any:
		// Only reached for maps decoded without ordering, e.g. merge keys.
		o := newObject()
		for _, k := range sortedKeys(v) {
			o.set(k, fromYAML(v[k]))
		}
		return o
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = fromYAML(item)
		}
		return items
	default:
		return v
	}
}
