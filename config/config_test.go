package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdsmith18542/localekit/i18n/settings"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// replaceConfig swaps the file in one step so the watcher never reads a
// half-written file.
func replaceConfig(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	writeConfig(t, tmp, content)
	require.NoError(t, os.Rename(tmp, path))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Settings.ParentCultureFallback)
	assert.True(t, cfg.Settings.Recursive)
}

func TestLoad_MissingFileIsSkipped(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localekit.yaml")
	writeConfig(t, path, `
logLevel: debug
settings:
  sorted: true
  parentCultureFallback: false
  modules: [App, "Plugin.*"]
  resourcesDirectory: ./locales
remote:
  moduleName: Shared
  timeout: 5s
  s3:
    bucket: translations
    prefix: shared/
observability:
  serviceName: demo
  metrics: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Settings.Sorted)
	assert.False(t, cfg.Settings.ParentCultureFallback)
	assert.True(t, cfg.Settings.Recursive)
	assert.Equal(t, []string{"App", "Plugin.*"}, cfg.Settings.Modules)
	assert.Equal(t, "./locales", cfg.Settings.ResourcesDirectory)
	assert.Equal(t, "Shared", cfg.Remote.ModuleName)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "translations", cfg.Remote.S3.Bucket)
	assert.Equal(t, "demo", cfg.Observability.ServiceName)
	assert.True(t, cfg.Observability.EnableMetrics)
}

func TestLoad_UnknownFieldFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localekit.yaml")
	writeConfig(t, path, "settings:\n  sortd: true\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localekit.yaml")
	writeConfig(t, path, "settings:\n  sorted: false\n  modules: [App]\n")

	t.Setenv("LOCALEKIT_SORTED", "true")
	t.Setenv("LOCALEKIT_MODULES", "Core,Plugin")
	t.Setenv("LOCALEKIT_LOG_LEVEL", "warn")
	t.Setenv("LOCALEKIT_REMOTE_GCS_BUCKET", "gcs-translations")
	t.Setenv("LOCALEKIT_OTEL_SERVICE_NAME", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Settings.Sorted)
	assert.Equal(t, []string{"Core", "Plugin"}, cfg.Settings.Modules)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "gcs-translations", cfg.Remote.GCS.Bucket)
	assert.Equal(t, "from-env", cfg.Observability.ServiceName)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("LOCALEKIT_SORTED", "maybe")
	_, err := Load("")
	assert.Error(t, err)
}

func TestRemote_Bucket(t *testing.T) {
	b, err := Remote{}.Bucket(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b)

	m, err := Remote{}.Module(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)

	r := Remote{}
	r.S3.Bucket = "a"
	r.GCS.Bucket = "b"
	_, err = r.Bucket(context.Background())
	assert.ErrorIs(t, err, ErrAmbiguousRemote)
}

func TestRemote_AzureModule(t *testing.T) {
	r := Default().Remote
	r.RootNamespace = "Shared"
	r.Azure.AccountName = "acct"
	r.Azure.AccountKey = "dGVzdC1rZXk="
	r.Azure.Container = "translations"

	m, err := r.Module(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Remote", m.Name)
	assert.Equal(t, "Shared", m.RootNamespace)
	assert.NotNil(t, m.Source)
}

func TestWatch_Reconfigures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "localekit.yaml")
	writeConfig(t, path, "settings:\n  sorted: false\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	store, err := settings.NewStore(cfg.Settings, settings.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, Watch(ctx, path, store, zerolog.Nop()))

	replaceConfig(t, path, "settings:\n  sorted: true\n")
	require.Eventually(t, store.Sorted, 5*time.Second, 20*time.Millisecond)

	replaceConfig(t, path, "settings:\n  resourcesDirectory: "+filepath.Join(dir, "missing")+"\n  sorted: true\n")
	require.Eventually(t, func() bool { return len(store.RuntimeErrors()) > 0 }, 5*time.Second, 20*time.Millisecond)
	assert.Empty(t, store.Snapshot().ResourcesDirectory)
	assert.True(t, store.Sorted())
}

func TestWatch_MissingDirectory(t *testing.T) {
	store, err := settings.NewStore(settings.Defaults())
	require.NoError(t, err)
	err = Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "localekit.yaml"), store, zerolog.Nop())
	assert.Error(t, err)
}
