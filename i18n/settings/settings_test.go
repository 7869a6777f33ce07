package settings

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, s Settings, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	store, err := NewStore(s, opts...)
	require.NoError(t, err)
	return store
}

type stubValidator struct{ unknown string }

func (v stubValidator) ValidateModules(specs []string) error {
	for _, s := range specs {
		if strings.EqualFold(s, v.unknown) {
			return errors.New("cannot resolve " + s)
		}
	}
	return nil
}

func TestNewStore_RejectsInvalidSettings(t *testing.T) {
	_, err := NewStore(Settings{ResourcesDirectory: filepath.Join(t.TempDir(), "missing")})
	var dirErr *DirectoryNotFoundError
	require.ErrorAs(t, err, &dirErr)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = NewStore(Settings{Modules: []string{"App", " ", "app"}})
	var modErr *InvalidModuleError
	require.ErrorAs(t, err, &modErr)
	assert.Contains(t, err.Error(), "empty module specifier")
	assert.Contains(t, err.Error(), "duplicate module specifier")
}

func TestStore_EventsFireOnlyOnChange(t *testing.T) {
	s := newStore(t, Defaults())

	var sorting []SortingChange
	var fallback []ParentCultureFallbackChange
	s.OnSortingChanged(func(c SortingChange) { sorting = append(sorting, c) })
	s.OnParentCultureFallbackChanged(func(c ParentCultureFallbackChange) { fallback = append(fallback, c) })

	s.SetSorted(false)
	s.SetSorted(true)
	s.SetSorted(true)
	s.SetParentCultureFallback(true)
	s.SetParentCultureFallback(false)

	assert.Equal(t, []SortingChange{{Sorted: true}}, sorting)
	assert.Equal(t, []ParentCultureFallbackChange{{Enabled: false}}, fallback)
	assert.True(t, s.Sorted())
	assert.False(t, s.ParentCultureFallback())
}

func TestStore_SetResourcesDirectory(t *testing.T) {
	s := newStore(t, Defaults())
	dir := t.TempDir()

	var changes []DirectoryChange
	s.OnDirectoryChanged(func(c DirectoryChange) { changes = append(changes, c) })

	err := s.SetResourcesDirectory(filepath.Join(dir, "nope"), false)
	var dirErr *DirectoryNotFoundError
	require.ErrorAs(t, err, &dirErr)
	assert.Empty(t, s.Snapshot().ResourcesDirectory)
	assert.True(t, s.Snapshot().Recursive, "rejected change must not touch recursion")

	require.NoError(t, s.SetResourcesDirectory(dir, false))
	assert.Equal(t, []DirectoryChange{{Directory: dir, Recursive: false}}, changes)
}

func TestStore_Modules(t *testing.T) {
	s := newStore(t, Settings{Modules: []string{"App"}}, WithModuleValidator(stubValidator{unknown: "Ghost"}))

	var changes []ModulesChange
	s.OnModulesChanged(func(c ModulesChange) { changes = append(changes, c) })

	require.NoError(t, s.AddModule("Plugins.*"))
	assert.Error(t, s.AddModule("app"))
	assert.Error(t, s.AddModule("Ghost"))
	assert.Equal(t, []string{"App", "Plugins.*"}, s.Snapshot().Modules)

	assert.True(t, s.RemoveModule("plugins.*"))
	assert.False(t, s.RemoveModule("plugins.*"))
	require.Len(t, changes, 2)
	assert.Equal(t, []string{"App"}, changes[1].Modules)
}

func TestStore_ReconfigureKeepsLocalModules(t *testing.T) {
	s := newStore(t, Settings{Modules: []string{"Core", "Web"}})
	require.NoError(t, s.AddModule("Local"))

	var changes []ModulesChange
	s.OnModulesChanged(func(c ModulesChange) { changes = append(changes, c) })

	s.Reconfigure(Settings{Modules: []string{"Core", "Api"}, Sorted: true})

	got := s.Snapshot()
	assert.Equal(t, []string{"Core", "Api", "Local"}, got.Modules)
	assert.True(t, got.Sorted)
	require.Len(t, changes, 1)

	// Repeating the same feed changes nothing.
	s.Reconfigure(Settings{Modules: []string{"Core", "Api"}, Sorted: true})
	assert.Equal(t, []string{"Core", "Api", "Local"}, s.Snapshot().Modules)
	assert.Len(t, changes, 1)
	assert.Empty(t, s.RuntimeErrors())
}

func TestStore_ReconfigureFailureIsRecorded(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, Settings{ResourcesDirectory: dir, Modules: []string{"App"}})

	fired := false
	s.OnDirectoryChanged(func(DirectoryChange) { fired = true })

	s.Reconfigure(Settings{ResourcesDirectory: filepath.Join(dir, "gone"), Modules: []string{"Other"}})

	got := s.Snapshot()
	assert.Equal(t, dir, got.ResourcesDirectory)
	assert.Equal(t, []string{"App"}, got.Modules)
	assert.False(t, fired)

	errs := s.RuntimeErrors()
	require.Len(t, errs, 1)
	assert.False(t, errs[0].Time.IsZero())
	var dirErr *DirectoryNotFoundError
	assert.ErrorAs(t, errs[0].Err, &dirErr)
}

func TestStore_RuntimeErrorsAreBounded(t *testing.T) {
	s := newStore(t, Defaults(), WithErrorLimit(3))
	for i := range 5 {
		s.RecordRuntimeError(errors.New(string(rune('a' + i))))
	}
	s.RecordRuntimeError(nil)

	errs := s.RuntimeErrors()
	require.Len(t, errs, 3)
	assert.Equal(t, "c", errs[0].Err.Error())
	assert.Equal(t, "e", errs[2].Err.Error())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newStore(t, Settings{Modules: []string{"App"}})
	snap := s.Snapshot()
	snap.Modules[0] = "Changed"
	assert.Equal(t, []string{"App"}, s.Snapshot().Modules)
}
