package parser

import (
	"bytes"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/kdsmith18542/localekit/i18n/resource"
)

// JSON parses JSON documents, keeping keys in document order.
type JSON struct{}

func (JSON) Parse(h resource.Handle, raw []byte) ([]*resource.Tree, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []*resource.Tree{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, &SyntaxError{Resource: h.String(), Format: "json", Err: errors.New("malformed document")}
	}

	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return nil, &SyntaxError{Resource: h.String(), Format: "json", Err: errors.New("top level must be an object")}
	}

	doc, _ := fromGJSON(res).(*object)
	t, err := build(h, doc)
	if err != nil {
		return nil, &SyntaxError{Resource: h.String(), Format: "json", Err: err}
	}
	return []*resource.Tree{t}, nil
}

func fromGJSON(r gjson.Result) any {
	switch {
	case r.IsObject():
		o := newObject()
		r.ForEach(func(k, v gjson.Result) bool {
			o.set(k.String(), fromGJSON(v))
			return true
		})
		return o
	case r.IsArray():
		items := []any{}
		r.ForEach(func(_, v gjson.Result) bool {
			items = append(items, fromGJSON(v))
			return true
		})
		return items
	case r.Type == gjson.Null:
		return nil
	case r.Type == gjson.String:
		return r.String()
	default:
		return r.Raw
	}
}
