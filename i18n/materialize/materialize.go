// Package materialize reads and parses every cataloged artifact into
// resource trees ordered by merge precedence.
package materialize

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kdsmith18542/localekit/i18n/cache"
	"github.com/kdsmith18542/localekit/i18n/catalog"
	"github.com/kdsmith18542/localekit/i18n/internal/event"
	"github.com/kdsmith18542/localekit/i18n/resource"
	"github.com/kdsmith18542/localekit/observability"
)

const readConcurrency = 8

// Catalog is the part of *catalog.Catalog the materializer reads from.
type Catalog interface {
	Resources() ([]resource.Handle, error)
	Open(h resource.Handle) (io.ReadCloser, error)
	OnChange(fn func(catalog.Change)) func()
}

// ParseError reports an artifact that could not be read or parsed while
// fail-fast is enabled.
type ParseError struct {
	Resource resource.Handle
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("materialize %s: %v", e.Resource, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Option configures a Materializer.
type Option func(*Materializer)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Materializer) { m.log = l }
}

// WithFailFast makes the materializer consult fn on every pass.
func WithFailFast(fn func() bool) Option {
	return func(m *Materializer) { m.failFast = fn }
}

// Materializer owns the raw-content and tree tiers.
type Materializer struct {
	catalog  Catalog
	parser   resource.Parser
	failFast func() bool
	log      zerolog.Logger

	raw     cache.Map[string, []byte]
	trees   cache.Cell[[]*resource.Tree]
	cleared event.Bus[struct{}]

	closeOnce   sync.Once
	unsubscribe func()
}

// New returns a materializer reading from c and following its changes.
func New(c Catalog, p resource.Parser, opts ...Option) *Materializer {
	m := &Materializer{
		catalog:  c,
		parser:   p,
		failFast: func() bool { return false },
		log:      log.With().Str("sys", "materialize").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = c.OnChange(m.onCatalogChange)
	return m
}

// OnCleared subscribes fn to invalidations of the tree tier.
func (m *Materializer) OnCleared(fn func()) func() {
	return m.cleared.Subscribe(func(struct{}) { fn() })
}

// Localizations returns every parsed tree, ascending by priority with
// unprioritized trees first. Later trees override earlier ones.
func (m *Materializer) Localizations() ([]*resource.Tree, error) {
	return m.trees.Get(m.materialize)
}

// Stats reports fill and clear counts of the tree tier and the raw tier.
func (m *Materializer) Stats() (trees, raw TierStats) {
	return TierStats{Fills: m.trees.Fills(), Clears: m.trees.Clears()},
		TierStats{Fills: m.raw.Fills(), Clears: m.raw.Clears(), Entries: m.raw.Len()}
}

// TierStats are the counters of one cache tier.
type TierStats struct {
	Fills   int64
	Clears  int64
	Entries int
}

func (m *Materializer) materialize() ([]*resource.Tree, error) {
	start := time.Now()
	handles, err := m.catalog.Resources()
	if err != nil {
		return nil, err
	}

	failFast := m.failFast()
	parsed := make([][]*resource.Tree, len(handles))

	var g errgroup.Group
	g.SetLimit(readConcurrency)
	for i, h := range handles {
		g.Go(func() error {
			trees, err := m.load(h)
			if err == nil {
				parsed[i] = trees
				return nil
			}
			observability.GetObserver().OnParseFailure(context.Background(), h.String(), err)
			if failFast {
				m.log.Error().Err(err).Str("resource", h.String()).Msg("Resource failed to parse")
				return &ParseError{Resource: h, Err: err}
			}
			m.log.Warn().Err(err).Str("resource", h.String()).Msg("Skipping resource that failed to parse")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*resource.Tree
	for _, trees := range parsed {
		out = append(out, trees...)
	}
	SortByPriority(out)

	observability.GetObserver().OnCacheFill(context.Background(), "trees", time.Since(start))
	m.log.Debug().Int("resources", len(handles)).Int("trees", len(out)).Msg("Localizations materialized")
	return out, nil
}

func (m *Materializer) load(h resource.Handle) ([]*resource.Tree, error) {
	raw, ok := m.raw.Load(h.Key())
	if !ok {
		rc, err := m.catalog.Open(h)
		if err != nil {
			return nil, err
		}
		raw, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		m.raw.Store(h.Key(), raw)
	}

	trees, err := m.parser.Parse(h, raw)
	if err != nil {
		return nil, err
	}
	for _, t := range trees {
		t.Source = h
	}
	return trees, nil
}

// Check reads and parses every cataloged artifact and returns one
// ParseError per artifact that fails, regardless of fail-fast. It reads
// around the caches and leaves them untouched.
func (m *Materializer) Check() ([]*ParseError, error) {
	handles, err := m.catalog.Resources()
	if err != nil {
		return nil, err
	}

	var failures []*ParseError
	for _, h := range handles {
		if err := m.check(h); err != nil {
			failures = append(failures, &ParseError{Resource: h, Err: err})
		}
	}
	return failures, nil
}

func (m *Materializer) check(h resource.Handle) error {
	rc, err := m.catalog.Open(h)
	if err != nil {
		return err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	_, err = m.parser.Parse(h, raw)
	return err
}

// SortByPriority orders trees ascending by priority, nil first, keeping
// input order for ties.
func SortByPriority(trees []*resource.Tree) {
	sort.SliceStable(trees, func(i, j int) bool {
		a, b := trees[i].Priority, trees[j].Priority
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return *a < *b
		}
	})
}

// Invalidate evicts the raw content of the file at path, or all raw content
// when path is empty, and clears the tree tier.
func (m *Materializer) Invalidate(path string) {
	m.trees.ClearWith(func() {
		if path == "" {
			m.raw.Clear()
			return
		}
		m.raw.Delete(resource.Handle{Locator: path, Kind: resource.File}.Key())
	})

	observability.GetObserver().OnCacheClear(context.Background(), "trees")
	if path == "" {
		m.log.Info().Msg("Localization cache cleared")
	} else {
		m.log.Info().Str("path", path).Msg("Localization cache cleared for changed resource")
	}
	m.cleared.Publish(struct{}{})
}

func (m *Materializer) onCatalogChange(c catalog.Change) {
	if c.Kind == catalog.FileResourceContentChanged {
		m.Invalidate(c.Path)
		return
	}
	m.Invalidate("")
}

// Close detaches from the catalog.
func (m *Materializer) Close() {
	m.closeOnce.Do(m.unsubscribe)
}
