// Package catalog discovers the resource artifacts in scope: embedded
// artifacts of the configured modules and files under the watched resources
// directory. Discovery results are cached until a module, directory or file
// change clears them, and every change is announced to subscribers.
package catalog

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kdsmith18542/localekit/i18n/cache"
	"github.com/kdsmith18542/localekit/i18n/internal/event"
	"github.com/kdsmith18542/localekit/i18n/resource"
	"github.com/kdsmith18542/localekit/i18n/settings"
)

// DirectoryNotFoundError is returned when the resources directory cannot be
// watched because it does not exist.
type DirectoryNotFoundError = settings.DirectoryNotFoundError

// Validator filters artifacts before they become handles.
type Validator interface {
	IsValidEmbeddedResource(module, name string) bool
	IsValidFileResource(path string) bool
}

// ChangeKind tells what part of the catalog changed.
type ChangeKind int

const (
	EmbeddedResourcesChanged ChangeKind = iota + 1
	FileResourcesChanged
	FileResourceContentChanged
)

func (k ChangeKind) String() string {
	switch k {
	case EmbeddedResourcesChanged:
		return "embedded_resources_changed"
	case FileResourcesChanged:
		return "file_resources_changed"
	case FileResourceContentChanged:
		return "file_resource_content_changed"
	default:
		return "unknown"
	}
}

// Change is published after the catalog has updated its own caches. Path is
// set for FileResourceContentChanged only.
type Change struct {
	Kind ChangeKind
	Path string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

type embeddedSource struct {
	src  Source
	name string
}

// Catalog enumerates resource artifacts and watches the resources
// directory. Close releases the watcher and the settings subscriptions.
type Catalog struct {
	store     *settings.Store
	registry  *Registry
	validator Validator
	log       zerolog.Logger

	mu        sync.RWMutex
	modules   []*Module
	dir       string
	recursive bool
	watcher   *watcher
	sources   map[string]embeddedSource
	closed    bool

	embedded cache.Cell[[]resource.Handle]
	files    cache.Cell[[]resource.Handle]
	changes  event.Bus[Change]

	// apply serializes settings reconciliation so a late event cannot
	// overwrite a newer state.
	apply       sync.Mutex
	unsubscribe []func()
}

// New resolves the configured modules, starts watching the resources
// directory and follows later module and directory changes of store.
func New(store *settings.Store, registry *Registry, validator Validator, opts ...Option) (*Catalog, error) {
	if registry == nil {
		registry = &Registry{}
	}
	if validator == nil {
		validator = acceptAll{}
	}
	c := &Catalog{
		store:     store,
		registry:  registry,
		validator: validator,
		log:       log.With().Str("sys", "catalog").Logger(),
		sources:   make(map[string]embeddedSource),
	}
	for _, opt := range opts {
		opt(c)
	}

	snap := store.Snapshot()
	mods, err := registry.Resolve(snap.Modules)
	if err != nil {
		return nil, err
	}
	c.modules = mods

	if snap.ResourcesDirectory != "" {
		dir, err := filepath.Abs(snap.ResourcesDirectory)
		if err != nil {
			return nil, err
		}
		w, err := c.watch(dir, snap.Recursive)
		if err != nil {
			return nil, err
		}
		c.dir, c.recursive, c.watcher = dir, snap.Recursive, w
	}

	c.unsubscribe = []func(){
		store.OnModulesChanged(c.onModulesChanged),
		store.OnDirectoryChanged(c.onDirectoryChanged),
	}
	return c, nil
}

// Registry returns the module registry the catalog resolves against.
func (c *Catalog) Registry() *Registry { return c.registry }

// Module returns a registered module by name.
func (c *Catalog) Module(name string) (*Module, bool) {
	return c.registry.Lookup(name)
}

// OnChange subscribes fn to catalog changes.
func (c *Catalog) OnChange(fn func(Change)) func() {
	return c.changes.Subscribe(fn)
}

// Resources returns the embedded handles followed by the file handles.
func (c *Catalog) Resources() ([]resource.Handle, error) {
	embedded, err := c.EmbeddedResources()
	if err != nil {
		return nil, err
	}
	files, err := c.FileResources()
	if err != nil {
		return nil, err
	}
	out := make([]resource.Handle, 0, len(embedded)+len(files))
	out = append(out, embedded...)
	return append(out, files...), nil
}

// EmbeddedResources lists the artifacts of every configured module, module
// by module in configured order, satellites after the module's own source.
func (c *Catalog) EmbeddedResources() ([]resource.Handle, error) {
	return c.embedded.Get(func() ([]resource.Handle, error) {
		c.mu.RLock()
		mods := c.modules
		c.mu.RUnlock()

		sources := make(map[string]embeddedSource)
		var out []resource.Handle
		for _, m := range mods {
			hs, err := c.listSource(sources, m, "", m.Source)
			if err != nil {
				return nil, err
			}
			out = append(out, hs...)

			cultures := make([]string, 0, len(m.Satellites))
			for culture := range m.Satellites {
				cultures = append(cultures, culture)
			}
			sort.Strings(cultures)
			for _, culture := range cultures {
				hs, err := c.listSource(sources, m, culture, m.Satellites[culture])
				if err != nil {
					return nil, err
				}
				out = append(out, hs...)
			}
		}
		c.mu.Lock()
		c.sources = sources
		c.mu.Unlock()
		c.log.Debug().Int("count", len(out)).Msg("Embedded resources cataloged")
		return out, nil
	})
}

// listSource adds the valid artifacts of src to sources. An artifact whose
// handle is already taken, such as a satellite colliding with a file of the
// module's own source, is skipped.
func (c *Catalog) listSource(sources map[string]embeddedSource, m *Module, satellite string, src Source) ([]resource.Handle, error) {
	names, err := src.List()
	if err != nil {
		return nil, fmt.Errorf("list module %s: %w", m.Name, err)
	}
	sort.Strings(names)

	var out []resource.Handle
	for _, name := range names {
		if !c.validator.IsValidEmbeddedResource(m.Name, name) {
			continue
		}
		h := resource.Handle{Module: m.Name, Locator: name, Kind: resource.Embedded}
		if satellite != "" {
			h.Culture = resource.NormalizeCulture(satellite)
			h.Locator = path.Join(h.Culture, name)
		} else {
			h.Culture = resource.CultureFromName(name)
		}

		if _, taken := sources[h.Key()]; taken {
			c.log.Warn().Str("module", m.Name).Str("locator", h.Locator).Msg("Duplicate embedded resource skipped")
			continue
		}
		sources[h.Key()] = embeddedSource{src: src, name: name}
		out = append(out, h)
	}
	return out, nil
}

// FileResources lists valid files under the resources directory in lexical
// walk order.
func (c *Catalog) FileResources() ([]resource.Handle, error) {
	return c.files.Get(func() ([]resource.Handle, error) {
		c.mu.RLock()
		dir, recursive := c.dir, c.recursive
		c.mu.RUnlock()

		out := []resource.Handle{}
		if dir == "" {
			return out, nil
		}

		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == dir {
					return err
				}
				c.log.Warn().Err(err).Str("path", p).Msg("Skipping unreadable path")
				return nil
			}
			if d.IsDir() {
				if p != dir && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if !c.validator.IsValidFileResource(p) {
				return nil
			}
			out = append(out, resource.Handle{
				Culture: resource.CultureFromName(p),
				Locator: p,
				Kind:    resource.File,
			})
			return nil
		})
		if err != nil {
			return nil, &DirectoryNotFoundError{Path: dir, Err: err}
		}
		c.log.Debug().Int("count", len(out)).Str("dir", dir).Msg("File resources cataloged")
		return out, nil
	})
}

// Open reads the raw content of h.
func (c *Catalog) Open(h resource.Handle) (io.ReadCloser, error) {
	if h.Kind == resource.File {
		return os.Open(h.Locator)
	}

	c.mu.RLock()
	es, ok := c.sources[h.Key()]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("open %s: %w", h, fs.ErrNotExist)
	}
	return es.src.Open(es.name)
}

// Close stops the watcher and detaches from the settings store.
func (c *Catalog) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	w := c.watcher
	c.watcher = nil
	unsub := c.unsubscribe
	c.mu.Unlock()

	for _, fn := range unsub {
		fn()
	}
	if w != nil {
		return w.close()
	}
	return nil
}

// onModulesChanged and onDirectoryChanged apply the store's current
// settings rather than the event payload: events of concurrent writers may
// arrive out of order.
func (c *Catalog) onModulesChanged(settings.ModulesChange) {
	c.apply.Lock()
	defer c.apply.Unlock()

	specs := c.store.Snapshot().Modules
	mods, err := c.registry.Resolve(specs)
	if err != nil {
		c.log.Error().Err(err).Msg("Module change ignored")
		return
	}
	c.mu.Lock()
	c.modules = mods
	c.mu.Unlock()

	c.embedded.Clear()
	c.log.Info().Strs("modules", specs).Msg("Embedded resource cache cleared")
	c.changes.Publish(Change{Kind: EmbeddedResourcesChanged})
}

func (c *Catalog) onDirectoryChanged(settings.DirectoryChange) {
	c.apply.Lock()
	defer c.apply.Unlock()

	snap := c.store.Snapshot()
	dir, recursive := snap.ResourcesDirectory, snap.Recursive
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			c.log.Error().Err(err).Str("dir", dir).Msg("Directory change ignored")
			return
		}
		dir = abs
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	old := c.watcher
	c.watcher = nil
	c.dir, c.recursive = dir, recursive
	c.mu.Unlock()

	if old != nil {
		if err := old.close(); err != nil {
			c.log.Warn().Err(err).Msg("Closing previous watcher")
		}
	}
	if dir != "" {
		w, err := c.watch(dir, recursive)
		if err != nil {
			c.log.Error().Err(err).Str("dir", dir).Msg("Cannot watch resources directory")
		} else {
			c.mu.Lock()
			c.watcher = w
			c.mu.Unlock()
		}
	}

	c.invalidateFiles(dir)
}

func (c *Catalog) invalidateFiles(reason string) {
	c.files.Clear()
	c.log.Info().Str("path", reason).Msg("File resource cache cleared")
	c.changes.Publish(Change{Kind: FileResourcesChanged})
}

func (c *Catalog) handleEvent(ev fsnotify.Event) {
	p := filepath.Clean(ev.Name)

	c.mu.RLock()
	dir, recursive, w := c.dir, c.recursive, c.watcher
	c.mu.RUnlock()
	if dir == "" || (p != dir && !within(dir, p)) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(p)
		if err != nil {
			return
		}
		if info.IsDir() {
			if !recursive {
				return
			}
			if w != nil {
				if err := w.add(p, true); err != nil {
					c.log.Warn().Err(err).Str("path", p).Msg("Cannot watch new directory")
				}
			}
			if c.containsValid(p) {
				c.invalidateFiles(p)
			}
			return
		}
		if (recursive || filepath.Dir(p) == dir) && c.validator.IsValidFileResource(p) {
			c.invalidateFiles(p)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if c.affectsCataloged(p) {
			c.invalidateFiles(p)
		}
	case ev.Has(fsnotify.Write):
		if c.isCataloged(p) && c.validator.IsValidFileResource(p) {
			c.log.Info().Str("path", p).Msg("File resource content changed")
			c.changes.Publish(Change{Kind: FileResourceContentChanged, Path: p})
		}
	}
}

func (c *Catalog) isCataloged(p string) bool {
	files, ok := c.files.Peek()
	if !ok {
		return false
	}
	for _, h := range files {
		if strings.EqualFold(h.Locator, p) {
			return true
		}
	}
	return false
}

func (c *Catalog) affectsCataloged(p string) bool {
	files, ok := c.files.Peek()
	if !ok {
		return false
	}
	for _, h := range files {
		if strings.EqualFold(h.Locator, p) || within(p, h.Locator) {
			return true
		}
	}
	return false
}

func (c *Catalog) containsValid(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && c.validator.IsValidFileResource(p) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

type acceptAll struct{}

func (acceptAll) IsValidEmbeddedResource(string, string) bool { return true }

func (acceptAll) IsValidFileResource(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// within reports whether p lies strictly below dir.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
