// Package i18n resolves localized strings by culture from embedded and
// file-based resources.
//
// Features:
//   - Resources from embedded modules and a watched directory (JSON, YAML, TOML, PO)
//   - Merge precedence by resource priority
//   - Lookup aliases between keys
//   - Parent culture fallback (en-US -> en -> invariant)
//   - Positional formatting ({0}, {1})
//   - Cached at every stage; caches follow settings and file changes
//   - Concurrency-safe for use from request handlers
//
// Example:
//
//	//go:embed locales
//	var localeFS embed.FS
//
//	app, _ := i18n.EmbeddedModule("App", "App", localeFS, "locales")
//	registry, _ := catalog.NewRegistry(app)
//	store, _ := settings.NewStore(settings.Settings{
//	    Modules:               []string{"App"},
//	    ResourcesDirectory:    "./locales",
//	    ParentCultureFallback: true,
//	    Recursive:             true,
//	}, settings.WithModuleValidator(registry))
//
//	engine, err := i18n.New(store, i18n.WithModules(registry))
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	s, err := engine.Get("App", "en-US", "Greeting", "", "Alex")
//	fmt.Println(s.Value)
//
// Resource files (e.g., Texts.en.json):
//
//	{
//	  "Greeting": "Hello, {0}!",
//	  "Menu": {"Open": "Open", "Load": {"$lookup": "Menu.Open"}}
//	}
package i18n

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kdsmith18542/localekit/i18n/cache"
	"github.com/kdsmith18542/localekit/i18n/catalog"
	"github.com/kdsmith18542/localekit/i18n/materialize"
	"github.com/kdsmith18542/localekit/i18n/parser"
	"github.com/kdsmith18542/localekit/i18n/resource"
	"github.com/kdsmith18542/localekit/i18n/settings"
)

// Tier names used in logs and metrics.
const (
	TierExclusive = "list_exclusive"
	TierInclusive = "list_inclusive"
	TierLookup    = "lookup"
)

type listKey struct {
	module  string
	culture string
}

type lookupKey struct {
	module  string
	culture string
	name    string
	path    string
	args    string
}

// ErrNoSettings is returned by New without a settings store.
var ErrNoSettings = errors.New("i18n: settings store is required")

// Option configures an Engine.
type Option func(*options)

type options struct {
	log       zerolog.Logger
	parser    resource.Parser
	validator catalog.Validator
	registry  *catalog.Registry
}

// WithLogger sets the base logger. Components log through children of it.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithParser replaces the default parser registry.
func WithParser(p resource.Parser) Option {
	return func(o *options) { o.parser = p }
}

// WithValidator replaces the artifact validity predicate.
func WithValidator(v catalog.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithModules sets the registry that module specifiers resolve against.
func WithModules(r *catalog.Registry) Option {
	return func(o *options) { o.registry = r }
}

// Engine resolves localized strings. It is safe for concurrent use and
// should be created once and closed on shutdown.
type Engine struct {
	store   *settings.Store
	catalog *catalog.Catalog
	mat     *materialize.Materializer
	log     zerolog.Logger

	exclusive cache.Map[listKey, *localizedSet]
	inclusive cache.Map[listKey, *localizedSet]
	lookups   cache.Map[lookupKey, *LocalizedString]

	closeOnce   sync.Once
	unsubscribe []func()
}

// New builds an engine over store. The default parser registry handles
// JSON, YAML, TOML and PO resources and also decides which artifacts are
// valid.
func New(store *settings.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNoSettings
	}
	o := options{log: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parser == nil || o.validator == nil {
		reg := parser.Default()
		if o.parser == nil {
			o.parser = reg
		}
		if o.validator == nil {
			o.validator = reg
		}
	}

	cat, err := catalog.New(store, o.registry, o.validator,
		catalog.WithLogger(o.log.With().Str("sys", "catalog").Logger()))
	if err != nil {
		return nil, err
	}
	mat := materialize.New(cat, o.parser,
		materialize.WithLogger(o.log.With().Str("sys", "materialize").Logger()),
		materialize.WithFailFast(store.FailFast))

	e := &Engine{
		store:   store,
		catalog: cat,
		mat:     mat,
		log:     o.log.With().Str("sys", "i18n").Logger(),
	}
	e.unsubscribe = []func(){
		store.OnSortingChanged(func(settings.SortingChange) { e.clearLists() }),
		store.OnParentCultureFallbackChanged(func(settings.ParentCultureFallbackChange) { e.clearLookups() }),
		mat.OnCleared(e.clearAll),
	}
	return e, nil
}

// Close detaches the engine from the settings store and stops watching
// the resources directory.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		for _, fn := range e.unsubscribe {
			fn()
		}
		e.mat.Close()
		err = e.catalog.Close()
	})
	return err
}

// Settings returns the store the engine follows.
func (e *Engine) Settings() *settings.Store { return e.store }

// Resources returns the artifacts currently in scope.
func (e *Engine) Resources() ([]resource.Handle, error) {
	return e.catalog.Resources()
}

// Lint parses every resource in scope and reports each one that fails,
// whether or not fail-fast is enabled. The caches are not touched.
func (e *Engine) Lint() ([]*materialize.ParseError, error) {
	return e.mat.Check()
}

// Cultures lists the distinct cultures of the resources visible to module.
func (e *Engine) Cultures(module string) ([]string, error) {
	trees, err := e.mat.Localizations()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, t := range trees {
		if visible(t, module) && !seen[t.Culture] {
			seen[t.Culture] = true
			out = append(out, t.Culture)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Stats are the counters of every cache tier.
type Stats struct {
	Trees     materialize.TierStats
	Raw       materialize.TierStats
	Exclusive materialize.TierStats
	Inclusive materialize.TierStats
	Lookup    materialize.TierStats
}

// Stats reports fill and clear counters per tier.
func (e *Engine) Stats() Stats {
	trees, raw := e.mat.Stats()
	return Stats{
		Trees:     trees,
		Raw:       raw,
		Exclusive: materialize.TierStats{Fills: e.exclusive.Fills(), Clears: e.exclusive.Clears(), Entries: e.exclusive.Len()},
		Inclusive: materialize.TierStats{Fills: e.inclusive.Fills(), Clears: e.inclusive.Clears(), Entries: e.inclusive.Len()},
		Lookup:    materialize.TierStats{Fills: e.lookups.Fills(), Clears: e.lookups.Clears(), Entries: e.lookups.Len()},
	}
}

// OnInvalidated calls fn after the engine cleared any of its tiers because
// resources changed.
func (e *Engine) OnInvalidated(fn func()) func() {
	return e.mat.OnCleared(fn)
}

func (e *Engine) clearLists() {
	e.exclusive.Clear()
	e.inclusive.Clear()
	getObserver().OnCacheClear(context.Background(), TierExclusive)
	getObserver().OnCacheClear(context.Background(), TierInclusive)
	e.log.Info().Msg("List caches cleared")
}

func (e *Engine) clearLookups() {
	e.lookups.Clear()
	getObserver().OnCacheClear(context.Background(), TierLookup)
	e.log.Info().Msg("Lookup cache cleared")
}

func (e *Engine) clearAll() {
	e.clearLists()
	e.clearLookups()
}

func (e *Engine) rootNamespace(module string) string {
	if m, ok := e.catalog.Module(module); ok {
		return m.RootNamespace
	}
	return ""
}

// visible reports whether module sees t: its own embedded resources and
// every file resource.
func visible(t *resource.Tree, module string) bool {
	return t.Source.Module == "" || strings.EqualFold(t.Source.Module, module)
}
