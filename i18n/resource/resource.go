// Package resource defines the resource model shared by the catalog, the
// parsers and the materializer: handles naming one artifact, the parsed
// node/entry trees and their flattened dotted-path form.
package resource

import (
	"strings"
)

// Kind tells where an artifact lives.
type Kind int

const (
	// Embedded artifacts belong to a module source.
	Embedded Kind = iota
	// File artifacts live under the watched resources directory.
	File
)

func (k Kind) String() string {
	switch k {
	case Embedded:
		return "embedded"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

// Handle identifies one resource artifact. File handles have an empty
// Module. Handles are immutable values and are safe to use as cache keys
// through Key.
type Handle struct {
	Module  string
	Culture string
	Locator string
	Kind    Kind
}

// Key is the case-insensitive identity of the handle.
func (h Handle) Key() string {
	return strings.ToLower(h.Module) + "\x00" + strings.ToLower(h.Locator)
}

// Equal reports whether module and locator match case-insensitively.
func (h Handle) Equal(o Handle) bool {
	return strings.EqualFold(h.Module, o.Module) && strings.EqualFold(h.Locator, o.Locator)
}

func (h Handle) String() string {
	if h.Module == "" {
		return h.Locator
	}
	return h.Module + ":" + h.Locator
}

// Entry is a leaf of a tree: a literal value, an alias to another dotted
// path, or both. When both are set the literal value wins.
type Entry struct {
	Name     string
	Value    string
	HasValue bool
	Lookup   string
}

// Literal builds an entry holding value.
func Literal(name, value string) Entry {
	return Entry{Name: name, Value: value, HasValue: true}
}

// Alias builds an entry pointing at another dotted path.
func Alias(name, lookup string) Entry {
	return Entry{Name: name, Lookup: lookup}
}

// IsAlias reports whether the entry must be resolved through its Lookup.
func (e Entry) IsAlias() bool {
	return !e.HasValue && e.Lookup != ""
}

// Node is an inner element of a tree. Entries and children keep the order
// in which the parser produced them.
type Node struct {
	Name     string
	Entries  []Entry
	Children []*Node
}

// Child returns the child called name, creating it when absent.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	c := &Node{Name: name}
	n.Children = append(n.Children, c)
	return c
}

// Add appends an entry.
func (n *Node) Add(e Entry) {
	n.Entries = append(n.Entries, e)
}

// Tree is the parsed content of one artifact for one culture.
type Tree struct {
	Culture  string
	Priority *int
	Root     *Node
	// Source is the artifact the tree was parsed from.
	Source Handle
}

// NewTree returns an empty tree for culture.
func NewTree(culture string) *Tree {
	return &Tree{Culture: culture, Root: &Node{}}
}

// Parser turns the raw content of one artifact into trees. Implementations
// must be deterministic and return an empty slice for empty content.
type Parser interface {
	Parse(h Handle, raw []byte) ([]*Tree, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(h Handle, raw []byte) ([]*Tree, error)

func (f ParserFunc) Parse(h Handle, raw []byte) ([]*Tree, error) { return f(h, raw) }
