package i18n

import (
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdsmith18542/localekit/i18n/catalog"
	"github.com/kdsmith18542/localekit/i18n/settings"
)

//go:embed testdata/locales/*.toml
var testFS embed.FS

//go:embed testdata/satellites
var satelliteFS embed.FS

func newEmbeddedEngine(t *testing.T) *Engine {
	t.Helper()
	app, err := EmbeddedModule("App", "App", testFS, "testdata/locales")
	require.NoError(t, err)
	require.NoError(t, AddSatellite(app, "de", satelliteFS, "testdata/satellites/de"))

	registry, err := catalog.NewRegistry(app)
	require.NoError(t, err)
	store, err := settings.NewStore(settings.Settings{
		Modules:               []string{"App"},
		ParentCultureFallback: true,
	}, settings.WithModuleValidator(registry))
	require.NoError(t, err)

	engine, err := New(store, WithModules(registry))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestEmbeddedModule(t *testing.T) {
	app, err := EmbeddedModule("App", "App", testFS, "testdata/locales")
	require.NoError(t, err)

	names, err := app.Source.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Texts.toml", "Texts.en.toml"}, names)
}

func TestEmbeddedModule_MissingDirectory(t *testing.T) {
	_, err := EmbeddedModule("App", "App", testFS, "testdata/nonexistent")
	assert.Error(t, err)
}

func TestEmbeddedModule_Lookup(t *testing.T) {
	engine := newEmbeddedEngine(t)

	s, err := engine.Get("App", "en-US", "Welcome", "")
	require.NoError(t, err)
	assert.Equal(t, "Welcome aboard", s.Value)
	assert.Equal(t, "en", s.Culture)

	s, err = engine.Get("App", "en", "Farewell", "")
	require.NoError(t, err)
	assert.Equal(t, "Goodbye", s.Value)
	assert.Equal(t, "", s.Culture)

	s, err = engine.Get("App", "en", "Load", "Menu")
	require.NoError(t, err)
	assert.Equal(t, "Open", s.Value)
}

func TestEmbeddedModule_Satellite(t *testing.T) {
	engine := newEmbeddedEngine(t)

	s, err := engine.Get("App", "de-AT", "Welcome", "")
	require.NoError(t, err)
	assert.Equal(t, "Willkommen", s.Value)
	assert.Equal(t, "de", s.Culture)

	cultures, err := engine.Cultures("App")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "de", "en"}, cultures)
}

func TestEmbeddedModule_RootNamespace(t *testing.T) {
	engine := newEmbeddedEngine(t)

	s, err := engine.Get("App", "en", "App.Welcome", "")
	require.NoError(t, err)
	assert.False(t, s.ResourceNotFound)
	assert.Equal(t, "Welcome aboard", s.Value)
	assert.Equal(t, "Welcome", s.Key)
}
