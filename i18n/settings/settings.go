// Package settings holds the mutable engine configuration and announces
// each change on its own typed event so subscribers invalidate only what the
// change affects.
package settings

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kdsmith18542/localekit/i18n/internal/event"
)

const defaultErrorLimit = 32

// Settings is the full option set of the engine.
type Settings struct {
	// Sorted lists keys alphabetically instead of in declaration order.
	Sorted bool `yaml:"sorted" env:"SORTED"`
	// ParentCultureFallback makes lookups walk the culture parent chain.
	ParentCultureFallback bool `yaml:"parentCultureFallback" env:"PARENT_CULTURE_FALLBACK"`
	// FailFast turns resource parse failures into lookup errors.
	FailFast bool `yaml:"failFast" env:"FAIL_FAST"`
	// Modules are the names or wildcard patterns of embedded modules, in
	// priority order.
	Modules []string `yaml:"modules" env:"MODULES" envSeparator:","`
	// ResourcesDirectory is watched for file resources. Empty disables
	// file resources.
	ResourcesDirectory string `yaml:"resourcesDirectory" env:"RESOURCES_DIRECTORY"`
	// Recursive includes subdirectories of ResourcesDirectory.
	Recursive bool `yaml:"recursive" env:"RECURSIVE"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		ParentCultureFallback: true,
		Recursive:             true,
	}
}

func (s Settings) clone() Settings {
	s.Modules = slices.Clone(s.Modules)
	return s
}

// SortingChange is published when Sorted changes.
type SortingChange struct{ Sorted bool }

// ParentCultureFallbackChange is published when ParentCultureFallback changes.
type ParentCultureFallbackChange struct{ Enabled bool }

// ModulesChange is published when the module list changes.
type ModulesChange struct{ Modules []string }

// DirectoryChange is published when the resources directory or its
// recursion mode changes.
type DirectoryChange struct {
	Directory string
	Recursive bool
}

// ModuleValidator checks that module specifiers can be resolved.
type ModuleValidator interface {
	ValidateModules(specs []string) error
}

// DirectoryNotFoundError is returned for a resources directory that does
// not exist or is not a directory.
type DirectoryNotFoundError struct {
	Path string
	Err  error
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("resources directory %q not found: %v", e.Path, e.Err)
}

func (e *DirectoryNotFoundError) Unwrap() error { return e.Err }

// InvalidModuleError is returned for an empty or duplicate module specifier.
type InvalidModuleError struct {
	Spec   string
	Reason string
}

func (e *InvalidModuleError) Error() string {
	return fmt.Sprintf("invalid module specifier %q: %s", e.Spec, e.Reason)
}

// RuntimeError is a configuration failure caught during live
// reconfiguration.
type RuntimeError struct {
	Time time.Time
	Err  error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithModuleValidator validates module specifiers before they are accepted.
func WithModuleValidator(v ModuleValidator) Option {
	return func(s *Store) { s.validator = v }
}

// WithErrorLimit bounds the runtime error registry.
func WithErrorLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.errLimit = n
		}
	}
}

// Store is the shared, concurrency-safe settings holder.
type Store struct {
	mu  sync.RWMutex
	cur Settings
	// configured is the module list of the last external configuration.
	// Modules outside it were added locally and survive Reconfigure.
	configured []string

	validator ModuleValidator
	log       zerolog.Logger

	errMu    sync.Mutex
	errs     []RuntimeError
	errLimit int

	sorting   event.Bus[SortingChange]
	fallback  event.Bus[ParentCultureFallbackChange]
	modules   event.Bus[ModulesChange]
	directory event.Bus[DirectoryChange]
}

// NewStore validates initial and returns a store holding it.
func NewStore(initial Settings, opts ...Option) (*Store, error) {
	s := &Store{
		log:      log.With().Str("sys", "settings").Logger(),
		errLimit: defaultErrorLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(initial); err != nil {
		return nil, err
	}
	s.cur = initial.clone()
	s.configured = slices.Clone(initial.Modules)
	return s, nil
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

func (s *Store) Sorted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Sorted
}

func (s *Store) ParentCultureFallback() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.ParentCultureFallback
}

func (s *Store) FailFast() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.FailFast
}

func (s *Store) SetSorted(v bool) {
	s.mu.Lock()
	changed := s.cur.Sorted != v
	s.cur.Sorted = v
	s.mu.Unlock()

	if changed {
		s.log.Info().Bool("sorted", v).Msg("Sorting changed")
		s.sorting.Publish(SortingChange{Sorted: v})
	}
}

func (s *Store) SetParentCultureFallback(v bool) {
	s.mu.Lock()
	changed := s.cur.ParentCultureFallback != v
	s.cur.ParentCultureFallback = v
	s.mu.Unlock()

	if changed {
		s.log.Info().Bool("enabled", v).Msg("Parent culture fallback changed")
		s.fallback.Publish(ParentCultureFallbackChange{Enabled: v})
	}
}

// SetFailFast has no subscribers; the next materialization reads it.
func (s *Store) SetFailFast(v bool) {
	s.mu.Lock()
	s.cur.FailFast = v
	s.mu.Unlock()
}

// SetResourcesDirectory replaces the watched directory. A directory that
// does not exist is rejected and nothing changes.
func (s *Store) SetResourcesDirectory(dir string, recursive bool) error {
	if err := checkDirectory(dir); err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.cur.ResourcesDirectory != dir || s.cur.Recursive != recursive
	s.cur.ResourcesDirectory = dir
	s.cur.Recursive = recursive
	s.mu.Unlock()

	if changed {
		s.log.Info().Str("dir", dir).Bool("recursive", recursive).Msg("Resources directory changed")
		s.directory.Publish(DirectoryChange{Directory: dir, Recursive: recursive})
	}
	return nil
}

// SetModules replaces the module list.
func (s *Store) SetModules(specs []string) error {
	return s.mutateModules(func([]string) []string { return slices.Clone(specs) })
}

// AddModule appends one module specifier.
func (s *Store) AddModule(spec string) error {
	return s.mutateModules(func(cur []string) []string { return append(cur, spec) })
}

// RemoveModule drops spec and reports whether it was present.
func (s *Store) RemoveModule(spec string) bool {
	removed := false
	_ = s.mutateModules(func(cur []string) []string {
		return slices.DeleteFunc(cur, func(m string) bool {
			if strings.EqualFold(m, spec) {
				removed = true
				return true
			}
			return false
		})
	})
	return removed
}

func (s *Store) mutateModules(fn func(cur []string) []string) error {
	s.mu.Lock()
	next := fn(slices.Clone(s.cur.Modules))
	if err := s.validateModules(next); err != nil {
		s.mu.Unlock()
		return err
	}
	changed := !sameModules(s.cur.Modules, next)
	s.cur.Modules = next
	s.mu.Unlock()

	if changed {
		s.publishModules(next)
	}
	return nil
}

func (s *Store) publishModules(mods []string) {
	s.log.Info().Strs("modules", mods).Msg("Modules changed")
	s.modules.Publish(ModulesChange{Modules: slices.Clone(mods)})
}

// Reconfigure applies settings from an external configuration feed. Modules
// added locally since the last external configuration are kept after the
// configured ones. An invalid configuration is logged and recorded in
// RuntimeErrors; the current settings stay in effect.
func (s *Store) Reconfigure(ext Settings) {
	s.mu.Lock()
	merged := slices.Clone(ext.Modules)
	for _, m := range s.cur.Modules {
		if containsFold(s.configured, m) || containsFold(merged, m) {
			continue
		}
		merged = append(merged, m)
	}
	next := ext.clone()
	next.Modules = merged

	if err := s.validate(next); err != nil {
		s.mu.Unlock()
		s.RecordRuntimeError(fmt.Errorf("reconfigure: %w", err))
		return
	}

	prev := s.cur
	s.cur = next
	s.configured = slices.Clone(ext.Modules)
	s.mu.Unlock()

	if prev.Sorted != next.Sorted {
		s.log.Info().Bool("sorted", next.Sorted).Msg("Sorting changed")
		s.sorting.Publish(SortingChange{Sorted: next.Sorted})
	}
	if prev.ParentCultureFallback != next.ParentCultureFallback {
		s.log.Info().Bool("enabled", next.ParentCultureFallback).Msg("Parent culture fallback changed")
		s.fallback.Publish(ParentCultureFallbackChange{Enabled: next.ParentCultureFallback})
	}
	if !sameModules(prev.Modules, next.Modules) {
		s.publishModules(next.Modules)
	}
	if prev.ResourcesDirectory != next.ResourcesDirectory || prev.Recursive != next.Recursive {
		s.log.Info().Str("dir", next.ResourcesDirectory).Bool("recursive", next.Recursive).Msg("Resources directory changed")
		s.directory.Publish(DirectoryChange{Directory: next.ResourcesDirectory, Recursive: next.Recursive})
	}
}

// RecordRuntimeError logs err and keeps it in the bounded registry.
func (s *Store) RecordRuntimeError(err error) {
	if err == nil {
		return
	}
	s.log.Error().Err(err).Msg("Configuration change rejected")

	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.errs = append(s.errs, RuntimeError{Time: time.Now(), Err: err})
	if over := len(s.errs) - s.errLimit; over > 0 {
		s.errs = slices.Delete(s.errs, 0, over)
	}
}

// RuntimeErrors returns the recorded failures, oldest first.
func (s *Store) RuntimeErrors() []RuntimeError {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return slices.Clone(s.errs)
}

func (s *Store) OnSortingChanged(fn func(SortingChange)) func() {
	return s.sorting.Subscribe(fn)
}

func (s *Store) OnParentCultureFallbackChanged(fn func(ParentCultureFallbackChange)) func() {
	return s.fallback.Subscribe(fn)
}

func (s *Store) OnModulesChanged(fn func(ModulesChange)) func() {
	return s.modules.Subscribe(fn)
}

func (s *Store) OnDirectoryChanged(fn func(DirectoryChange)) func() {
	return s.directory.Subscribe(fn)
}

func (s *Store) validate(next Settings) error {
	return errors.Join(checkDirectory(next.ResourcesDirectory), s.validateModules(next.Modules))
}

func (s *Store) validateModules(specs []string) error {
	var errs []error
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		key := strings.ToLower(strings.TrimSpace(spec))
		if key == "" {
			errs = append(errs, &InvalidModuleError{Spec: spec, Reason: "empty module specifier"})
			continue
		}
		if _, dup := seen[key]; dup {
			errs = append(errs, &InvalidModuleError{Spec: spec, Reason: "duplicate module specifier"})
			continue
		}
		seen[key] = struct{}{}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if s.validator != nil {
		return s.validator.ValidateModules(specs)
	}
	return nil
}

func checkDirectory(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return &DirectoryNotFoundError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &DirectoryNotFoundError{Path: dir, Err: errors.New("not a directory")}
	}
	return nil
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(m string) bool { return strings.EqualFold(m, s) })
}

func sameModules(a, b []string) bool {
	return slices.EqualFunc(a, b, strings.EqualFold)
}
