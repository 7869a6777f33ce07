// Package parser turns raw resource artifacts into resource trees.
//
// Every format follows the same document conventions:
//
//	{
//	  "$culture": "en",          // optional, overrides the culture from the file name
//	  "$priority": 10,           // optional merge priority, higher wins
//	  "Greeting": "Hello",       // literal entry
//	  "Menu": {                  // node
//	    "Open": "Open",
//	    "Load": {"$lookup": "Menu.Open"}  // alias entry
//	  }
//	}
//
// An object whose keys all start with "$" and that carries "$value" or
// "$lookup" is an entry rather than a node.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kdsmith18542/localekit/i18n/resource"
)

const (
	keyCulture  = "$culture"
	keyPriority = "$priority"
	keyValue    = "$value"
	keyLookup   = "$lookup"
)

// ErrUnsupportedFormat is returned for artifacts whose extension has no
// registered parser.
var ErrUnsupportedFormat = errors.New("unsupported resource format")

// SyntaxError reports malformed artifact content.
type SyntaxError struct {
	Resource string
	Format   string
	Err      error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid %s resource %s: %v", e.Format, e.Resource, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Registry dispatches parsing on the artifact extension. It also serves as
// the catalog's validity predicate: an artifact is valid when a parser is
// registered for its extension.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]resource.Parser
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{parsers: make(map[string]resource.Parser)}
}

// Default returns a registry with the JSON, YAML, TOML and PO parsers.
func Default() *Registry {
	r := New()
	r.Register(".json", JSON{})
	r.Register(".yaml", YAML{})
	r.Register(".yml", YAML{})
	r.Register(".toml", TOML{})
	r.Register(".po", PO{})
	return r
}

// Register binds p to ext, replacing any previous parser.
func (r *Registry) Register(ext string, p resource.Parser) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.mu.Lock()
	r.parsers[ext] = p
	r.mu.Unlock()
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) lookup(name string) (resource.Parser, bool) {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[ext]
	return p, ok
}

// Supports reports whether name has a registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Parse implements resource.Parser.
func (r *Registry) Parse(h resource.Handle, raw []byte) ([]*resource.Tree, error) {
	p, ok := r.lookup(h.Locator)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, h.Locator)
	}
	return p.Parse(h, raw)
}

// IsValidEmbeddedResource reports whether an embedded artifact can be parsed.
func (r *Registry) IsValidEmbeddedResource(_, name string) bool {
	return r.Supports(name)
}

// IsValidFileResource reports whether p is an existing regular file with a
// registered extension.
func (r *Registry) IsValidFileResource(p string) bool {
	if !r.Supports(p) {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// object is the order-preserving decoded form every format converts into
// before trees are built. Values are string, *object, []any, nil or another
// scalar.
type object struct {
	keys []string
	vals map[string]any
}

func newObject() *object {
	return &object{vals: make(map[string]any)}
}

func (o *object) set(k string, v any) {
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

func (o *object) get(k string) (any, bool) {
	v, ok := o.vals[k]
	return v, ok
}

func build(h resource.Handle, doc *object) (*resource.Tree, error) {
	t := resource.NewTree(resource.NormalizeCulture(h.Culture))
	for _, k := range doc.keys {
		v := doc.vals[k]
		switch k {
		case keyCulture:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a string, got %T", keyCulture, v)
			}
			t.Culture = resource.NormalizeCulture(s)
		case keyPriority:
			n, err := strconv.Atoi(scalar(v))
			if err != nil {
				return nil, fmt.Errorf("%s must be an integer: %w", keyPriority, err)
			}
			t.Priority = &n
		default:
			if err := add(t.Root, k, v); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func add(n *resource.Node, name string, v any) error {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		n.Add(resource.Literal(name, v))
	case *object:
		if e, ok := entry(name, v); ok {
			n.Add(e)
			return nil
		}
		child := n.Child(name)
		for _, k := range v.keys {
			if err := add(child, k, v.vals[k]); err != nil {
				return err
			}
		}
	case []any:
		child := n.Child(name)
		for i, item := range v {
			if err := add(child, strconv.Itoa(i), item); err != nil {
				return err
			}
		}
	default:
		n.Add(resource.Literal(name, scalar(v)))
	}
	return nil
}

func entry(name string, o *object) (resource.Entry, bool) {
	_, hasValue := o.get(keyValue)
	_, hasLookup := o.get(keyLookup)
	if !hasValue && !hasLookup {
		return resource.Entry{}, false
	}
	for _, k := range o.keys {
		if !strings.HasPrefix(k, "$") {
			return resource.Entry{}, false
		}
	}

	e := resource.Entry{Name: name}
	if v, ok := o.get(keyValue); ok && v != nil {
		e.Value = scalar(v)
		e.HasValue = true
	}
	if v, ok := o.get(keyLookup); ok && v != nil {
		e.Lookup = scalar(v)
	}
	return e, true
}

func scalar(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
