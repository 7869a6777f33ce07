package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// Source is a read-only set of named artifacts, such as an embedded file
// system or a storage bucket.
type Source interface {
	List() ([]string, error)
	Open(name string) (io.ReadCloser, error)
}

// FS adapts an fs.FS, typically an embed.FS, to Source. Every regular file
// is listed by its slash-separated path.
func FS(fsys fs.FS) Source {
	return fsSource{fsys: fsys}
}

type fsSource struct {
	fsys fs.FS
}

func (s fsSource) List() ([]string, error) {
	var names []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			names = append(names, p)
		}
		return nil
	})
	return names, err
}

func (s fsSource) Open(name string) (io.ReadCloser, error) {
	return s.fsys.Open(name)
}

// Module is a named unit owning embedded artifacts.
type Module struct {
	Name string
	// RootNamespace prefixes keys of this module; lookups try keys with and
	// without it.
	RootNamespace string
	Source        Source
	// Satellites hold culture-specific artifacts keyed by culture name.
	Satellites map[string]Source
}

// ModuleNotResolvableError lists every module specifier that matched no
// registered module.
type ModuleNotResolvableError struct {
	Patterns []string
}

func (e *ModuleNotResolvableError) Error() string {
	return fmt.Sprintf("cannot resolve modules: %s", strings.Join(e.Patterns, ", "))
}

// Registry is the ordered set of modules that settings may refer to.
type Registry struct {
	mu      sync.RWMutex
	modules []*Module
}

// NewRegistry returns a registry holding mods. Invalid or duplicate modules
// are reported together.
func NewRegistry(mods ...*Module) (*Registry, error) {
	r := &Registry{}
	var errs []error
	for _, m := range mods {
		errs = append(errs, r.Register(m))
	}
	return r, errors.Join(errs...)
}

// Register adds m. Names are unique case-insensitively.
func (r *Registry) Register(m *Module) error {
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return errors.New("module name is required")
	}
	if m.Source == nil {
		return fmt.Errorf("module %s has no source", m.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.modules {
		if strings.EqualFold(existing.Name, m.Name) {
			return fmt.Errorf("module %s already registered", m.Name)
		}
	}
	r.modules = append(r.modules, m)
	return nil
}

// Lookup returns the module called name.
func (r *Registry) Lookup(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.modules {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return nil, false
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// Resolve maps names and wildcard patterns to modules, keeping the order of
// specs and registration order within a pattern. A module matched twice is
// returned once.
func (r *Registry) Resolve(specs []string) ([]*Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Module
	var unresolved []string
	seen := make(map[*Module]bool)
	for _, spec := range specs {
		pattern := strings.ToLower(strings.TrimSpace(spec))
		matched := false
		for _, m := range r.modules {
			ok, err := path.Match(pattern, strings.ToLower(m.Name))
			if err != nil {
				break
			}
			if !ok {
				continue
			}
			matched = true
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
		if !matched {
			unresolved = append(unresolved, spec)
		}
	}
	if len(unresolved) > 0 {
		return nil, &ModuleNotResolvableError{Patterns: unresolved}
	}
	return out, nil
}

// ValidateModules implements settings.ModuleValidator.
func (r *Registry) ValidateModules(specs []string) error {
	_, err := r.Resolve(specs)
	return err
}
