package i18n

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdsmith18542/localekit/i18n/materialize"
	"github.com/kdsmith18542/localekit/i18n/settings"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func newFileEngine(t *testing.T, files map[string]string, configure func(*settings.Settings)) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)

	s := settings.Defaults()
	s.ResourcesDirectory = dir
	s.ParentCultureFallback = false
	if configure != nil {
		configure(&s)
	}
	store, err := settings.NewStore(s, settings.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	engine, err := New(store, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine, dir
}

func values(list []*LocalizedString) map[string]string {
	out := make(map[string]string, len(list))
	for _, s := range list {
		out[s.Name] = s.Value
	}
	return out
}

func names(list []*LocalizedString) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

func TestEngine_TextsScenario(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.json":    `{"Greeting":"Hello"}`,
		"Texts.en.json": `{"Greeting":"Hi"}`,
	}, nil)

	s, err := engine.Get("App", "en", "Greeting", "")
	require.NoError(t, err)
	assert.Equal(t, "Hi", s.Value)
	assert.False(t, s.ResourceNotFound)
	assert.Equal(t, "en", s.Culture)

	s, err = engine.Get("App", "fr", "Greeting", "")
	require.NoError(t, err)
	assert.True(t, s.ResourceNotFound)
	assert.Equal(t, Placeholder("Greeting"), s.Value)
	assert.Contains(t, s.SearchedLocation, "Texts.en.json")
}

func TestEngine_ParentCultureFallback(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.json":    `{"Greeting":"Hello"}`,
		"Texts.en.json": `{"Greeting":"Hi"}`,
	}, func(s *settings.Settings) { s.ParentCultureFallback = true })

	s, err := engine.Get("App", "fr", "Greeting", "")
	require.NoError(t, err)
	assert.False(t, s.ResourceNotFound)
	assert.Equal(t, "Hello", s.Value)
	assert.Equal(t, "", s.Culture)

	s, err = engine.Get("App", "en-GB", "Greeting", "")
	require.NoError(t, err)
	assert.Equal(t, "Hi", s.Value)
}

func TestEngine_Aliases(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{
			"Menu": {
				"Open": "Open",
				"Load": {"$lookup": "Menu.Open"},
				"Both": {"$value": "Literal", "$lookup": "Menu.Open"},
				"Dangling": {"$lookup": "Menu.Missing"}
			}
		}`,
	}, nil)

	list, err := engine.List("App", "en", false)
	require.NoError(t, err)
	got := values(list)
	assert.Equal(t, "Open", got["Menu.Load"])
	assert.Equal(t, "Literal", got["Menu.Both"])

	s, err := engine.Get("App", "en", "Dangling", "Menu")
	require.NoError(t, err)
	assert.True(t, s.ResourceNotFound)
	assert.Equal(t, Placeholder("Dangling"), s.Value)
}

func TestEngine_MergePrecedence(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"A.en.json": `{"X":"1","OnlyA":"a"}`,
		"B.en.json": `{"$priority":10,"X":"2"}`,
		"C.en.json": `{"$priority":5,"X":"3"}`,
	}, nil)

	list, err := engine.List("App", "en", false)
	require.NoError(t, err)
	got := values(list)
	assert.Equal(t, "2", got["X"])
	assert.Equal(t, "a", got["OnlyA"])
}

func TestEngine_ParentCultureUnion(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json":    `{"OnlyEn":"en","Both":"from en"}`,
		"Texts.en-US.json": `{"OnlyUS":"us","Both":"from en-US"}`,
		"Texts.json":       `{"Invariant":"iv"}`,
	}, nil)

	list, err := engine.List("App", "en-US", true)
	require.NoError(t, err)
	got := values(list)
	assert.Equal(t, "en", got["OnlyEn"])
	assert.Equal(t, "us", got["OnlyUS"])
	assert.Equal(t, "from en-US", got["Both"])
	assert.Equal(t, "iv", got["Invariant"])

	exclusive, err := engine.List("App", "en-US", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"OnlyUS", "Both"}, names(exclusive))
}

func TestEngine_CultureIsCaseInsensitive(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en-US.json": `{"Greeting":"Howdy"}`,
	}, nil)

	s, err := engine.Get("App", "EN-us", "Greeting", "")
	require.NoError(t, err)
	assert.Equal(t, "Howdy", s.Value)
	assert.Equal(t, "en-US", s.Culture)
}

func TestEngine_DeclarationOrderAndSorting(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"b":"2","a":"1","c":"3"}`,
	}, func(s *settings.Settings) { s.Sorted = false })

	list, err := engine.List("App", "en", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, names(list))

	engine.Settings().SetSorted(true)
	list, err = engine.List("App", "en", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(list))
}

func TestEngine_SortingToggleRepopulatesListsTwice(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"b":"2","a":"1"}`,
	}, func(s *settings.Settings) { s.Sorted = true })

	first, err := engine.List("App", "en", false)
	require.NoError(t, err)
	before := engine.Stats()

	engine.Settings().SetSorted(false)
	_, err = engine.List("App", "en", false)
	require.NoError(t, err)
	engine.Settings().SetSorted(true)
	last, err := engine.List("App", "en", false)
	require.NoError(t, err)

	after := engine.Stats()
	assert.Equal(t, int64(2), after.Exclusive.Clears-before.Exclusive.Clears)
	assert.Equal(t, int64(2), after.Exclusive.Fills-before.Exclusive.Fills)
	assert.Equal(t, int64(2), after.Inclusive.Clears-before.Inclusive.Clears)
	assert.Equal(t, before.Trees.Fills, after.Trees.Fills)
	assert.Equal(t, before.Lookup.Clears, after.Lookup.Clears)
	assert.Equal(t, values(first), values(last))
	assert.Equal(t, names(first), names(last))
}

func TestEngine_FallbackToggleClearsOnlyLookups(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hi"}`,
	}, nil)

	_, err := engine.Get("App", "en", "Greeting", "")
	require.NoError(t, err)
	before := engine.Stats()

	engine.Settings().SetParentCultureFallback(true)

	after := engine.Stats()
	assert.Equal(t, int64(1), after.Lookup.Clears-before.Lookup.Clears)
	assert.Equal(t, before.Exclusive.Clears, after.Exclusive.Clears)
	assert.Equal(t, before.Inclusive.Clears, after.Inclusive.Clears)
	assert.Equal(t, before.Trees.Clears, after.Trees.Clears)
}

func TestEngine_MaterializerClearCascades(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hi"}`,
	}, nil)

	_, err := engine.Get("App", "en", "Greeting", "")
	require.NoError(t, err)
	before := engine.Stats()

	engine.mat.Invalidate("")

	after := engine.Stats()
	assert.Equal(t, int64(1), after.Trees.Clears-before.Trees.Clears)
	assert.Equal(t, int64(1), after.Exclusive.Clears-before.Exclusive.Clears)
	assert.Equal(t, int64(1), after.Inclusive.Clears-before.Inclusive.Clears)
	assert.Equal(t, int64(1), after.Lookup.Clears-before.Lookup.Clears)
	assert.Zero(t, after.Lookup.Entries)
}

func TestEngine_GetIsCached(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hello, {0}!"}`,
	}, nil)

	a, err := engine.Get("App", "en", "Greeting", "", "Alex")
	require.NoError(t, err)
	b, err := engine.Get("App", "en", "Greeting", "", "Alex")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "Hello, Alex!", a.Value)

	c, err := engine.Get("App", "en", "Greeting", "", "Sam")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, "Hello, Sam!", c.Value)
}

func TestEngine_GetConcurrentSingleComputation(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hi"}`,
	}, nil)

	const workers = 16
	results := make([]*LocalizedString, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := engine.Get("App", "en", "Greeting", "")
			assert.NoError(t, err)
			results[i] = s
		}()
	}
	wg.Wait()

	for _, s := range results[1:] {
		assert.Same(t, results[0], s)
	}
	stats := engine.Stats()
	assert.Equal(t, int64(1), stats.Lookup.Fills)
	assert.Equal(t, int64(1), stats.Trees.Fills)
}

func TestEngine_ParentCultureUnionKeepsSpecificNotFound(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json":    `{"X":"from en"}`,
		"Texts.en-US.json": `{"X":{"$lookup":"Missing"}}`,
	}, func(s *settings.Settings) { s.ParentCultureFallback = true })

	list, err := engine.List("App", "en-US", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].ResourceNotFound)
	assert.Equal(t, "en-US", list[0].Culture)

	s, err := engine.Get("App", "en-US", "X", "")
	require.NoError(t, err)
	assert.True(t, s.ResourceNotFound)
	assert.Equal(t, Placeholder("X"), s.Value)
}

func TestEngine_ArgumentsDoNotShareCacheEntries(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"G":"{0}|{1}"}`,
	}, nil)

	s, err := engine.Get("App", "en", "G", "", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a|b", s.Value)

	_, err = engine.Get("App", "en", "G", "", "a\x1fstring:b")
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 1, ferr.Index)

	s2, err := engine.Get("App", "en", "G", "", "a|b", "")
	require.NoError(t, err)
	assert.Equal(t, "a|b|", s2.Value)
	assert.NotSame(t, s, s2)

	assert.NotEqual(t, argsKey([]any{"1:x", ""}), argsKey([]any{"1", "x"}))
	assert.NotEqual(t, argsKey([]any{1}), argsKey([]any{"1"}))
}

func TestEngine_FormatErrorsAreReturnedAndNotCached(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hello, {0} and {1}!"}`,
	}, nil)

	_, err := engine.Get("App", "en", "Greeting", "", "Alex")
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 1, ferr.Index)
	assert.Zero(t, engine.Stats().Lookup.Entries)

	s, err := engine.Get("App", "en", "Greeting", "", "Alex", "Sam")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Alex and Sam!", s.Value)

	assert.Equal(t, Placeholder("Greeting"), engine.T("App", "en", "Greeting", "only one"))
}

func TestEngine_NotFoundIgnoresArgs(t *testing.T) {
	engine, _ := newFileEngine(t, nil, nil)

	s, err := engine.Get("App", "en", "Nothing", "", 1, 2)
	require.NoError(t, err)
	assert.True(t, s.ResourceNotFound)
	assert.Contains(t, s.SearchedLocation, "searched: []")
}

func TestEngine_RootedNameIgnoresPath(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Common":{"Ok":"OK"},"Dialog":{"Ok":"Fine"}}`,
	}, nil)

	s, err := engine.Get("App", "en", "Ok", "Dialog")
	require.NoError(t, err)
	assert.Equal(t, "Fine", s.Value)

	s, err = engine.Get("App", "en", "~Common/Ok", "Dialog")
	require.NoError(t, err)
	assert.Equal(t, "OK", s.Value)
	assert.Equal(t, "Common.Ok", s.Key)
}

func TestEngine_ParseFailures(t *testing.T) {
	files := map[string]string{
		"Good.en.json": `{"Greeting":"Hi"}`,
		"Bad.en.json":  `{"Greeting":`,
	}

	t.Run("skipped", func(t *testing.T) {
		engine, _ := newFileEngine(t, files, nil)
		list, err := engine.List("App", "en", false)
		require.NoError(t, err)
		assert.Equal(t, "Hi", values(list)["Greeting"])
	})

	t.Run("fail fast", func(t *testing.T) {
		engine, _ := newFileEngine(t, files, func(s *settings.Settings) { s.FailFast = true })
		_, err := engine.List("App", "en", false)
		var perr *materialize.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Resource.Locator, "Bad.en.json")
	})
}

func TestEngine_ContentEditIsReflected(t *testing.T) {
	engine, dir := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hi","Old":"gone soon"}`,
	}, nil)

	list, err := engine.List("App", "en", false)
	require.NoError(t, err)
	require.Equal(t, "Hi", values(list)["Greeting"])

	writeFiles(t, dir, map[string]string{"Texts.en.json": `{"Greeting":"Hey"}`})

	require.Eventually(t, func() bool {
		list, err := engine.List("App", "en", false)
		if err != nil {
			return false
		}
		got := values(list)
		_, stale := got["Old"]
		return got["Greeting"] == "Hey" && !stale
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEngine_UnrelatedFilesDoNotInvalidate(t *testing.T) {
	engine, dir := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hi"}`,
	}, nil)

	_, err := engine.List("App", "en", false)
	require.NoError(t, err)
	before := engine.Stats()

	writeFiles(t, dir, map[string]string{"notes.txt": "not a resource"})
	writeFiles(t, dir, map[string]string{"notes.txt": "still not a resource"})

	assert.Never(t, func() bool {
		return engine.Stats().Trees.Clears != before.Trees.Clears
	}, 300*time.Millisecond, 20*time.Millisecond)
}

func TestEngine_NewFileIsCataloged(t *testing.T) {
	engine, dir := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hi"}`,
	}, nil)

	s, err := engine.Get("App", "de", "Greeting", "")
	require.NoError(t, err)
	require.True(t, s.ResourceNotFound)

	writeFiles(t, dir, map[string]string{"Texts.de.json": `{"Greeting":"Hallo"}`})

	require.Eventually(t, func() bool {
		s, err := engine.Get("App", "de", "Greeting", "")
		return err == nil && s.Value == "Hallo"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEngine_CloseDetaches(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Texts.en.json": `{"Greeting":"Hi"}`,
	}, nil)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())

	before := engine.Stats()
	engine.Settings().SetSorted(!engine.Settings().Sorted())
	assert.Equal(t, before.Exclusive.Clears, engine.Stats().Exclusive.Clears)
}

func TestEngine_Resources(t *testing.T) {
	engine, dir := newFileEngine(t, map[string]string{
		"Texts.json":        `{}`,
		"nested/Menu.en.po": "",
		"ignored.txt":       "x",
	}, nil)

	handles, err := engine.Resources()
	require.NoError(t, err)
	require.Len(t, handles, 2)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(abs, "Texts.json"), handles[0].Locator)
	assert.Equal(t, "en", handles[1].Culture)
}

func TestNew_RequiresSettings(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSettings))
}

func TestEngine_Lint(t *testing.T) {
	engine, _ := newFileEngine(t, map[string]string{
		"Good.en.json": `{"Greeting":"Hi"}`,
		"Bad.en.json":  `{"Greeting":`,
	}, nil)

	failures, err := engine.Lint()
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Resource.Locator, "Bad.en.json")
	assert.Zero(t, engine.Stats().Trees.Fills)
}
