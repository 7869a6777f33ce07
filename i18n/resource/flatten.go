package resource

// Separator joins node names into flat keys.
const Separator = "."

// Flat is an insertion-ordered dotted-path to entry map. Redefining a path
// replaces its entry but keeps its original position.
type Flat struct {
	keys    []string
	entries map[string]Entry
}

// NewFlat returns an empty map.
func NewFlat() *Flat {
	return &Flat{entries: make(map[string]Entry)}
}

// Set defines path.
func (f *Flat) Set(path string, e Entry) {
	if _, ok := f.entries[path]; !ok {
		f.keys = append(f.keys, path)
	}
	f.entries[path] = e
}

// Get returns the entry at path.
func (f *Flat) Get(path string) (Entry, bool) {
	e, ok := f.entries[path]
	return e, ok
}

// Keys returns the paths in insertion order.
func (f *Flat) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len is the number of paths.
func (f *Flat) Len() int { return len(f.keys) }

// Flatten walks t depth-first and returns its entries keyed by dotted path.
func Flatten(t *Tree) *Flat {
	f := NewFlat()
	FlattenInto(f, t)
	return f
}

// FlattenInto adds the entries of t to f. Paths already present in f are
// overridden, so flattening trees in merge order makes later trees win.
func FlattenInto(f *Flat, t *Tree) {
	if t == nil || t.Root == nil {
		return
	}
	walk(f, "", t.Root)
}

func walk(f *Flat, prefix string, n *Node) {
	for _, e := range n.Entries {
		f.Set(join(prefix, e.Name), e)
	}
	for _, c := range n.Children {
		walk(f, join(prefix, c.Name), c)
	}
}

func join(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + Separator + name
	}
}
