// Package keypath turns a requested name and path into the flat keys a
// lookup tries, most specific first.
package keypath

import "strings"

// RootMarker at the start of a name makes it absolute: the path is ignored.
const RootMarker = "~"

const sep = "."

// Normalize rewrites "/" and "\" separators to "." and collapses empty
// segments.
func Normalize(s string) string {
	s = strings.NewReplacer("/", sep, "\\", sep).Replace(strings.TrimSpace(s))
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// Resolve returns the candidate keys for name under path. Besides the
// combined key itself it yields the key with rootNamespace stripped when
// the key starts with it, or added when it does not. Duplicates are
// removed. Empty input yields a single empty candidate.
func Resolve(rootNamespace, name, path string) []string {
	var key string
	if rest, ok := strings.CutPrefix(strings.TrimSpace(name), RootMarker); ok {
		key = Normalize(rest)
	} else {
		key = join(Normalize(path), Normalize(name))
	}

	candidates := []string{key}
	root := Normalize(rootNamespace)
	if root == "" {
		return candidates
	}

	switch {
	case key == root:
	case strings.HasPrefix(key, root+sep):
		candidates = append(candidates, strings.TrimPrefix(key, root+sep))
	default:
		candidates = append(candidates, join(root, key))
	}
	return dedupe(candidates)
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + sep + b
	}
}

func dedupe(in []string) []string {
	out := in[:0]
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
