// Package config loads engine settings from a YAML file and LOCALEKIT_*
// environment variables, and feeds later edits of the file to a running
// settings store.
//
// Values are applied in order: defaults, the YAML file, the environment.
//
// Example localekit.yaml:
//
//	logLevel: info
//	settings:
//	  sorted: true
//	  parentCultureFallback: true
//	  resourcesDirectory: ./locales
//	  modules: [App, "Plugin.*"]
//	remote:
//	  moduleName: Shared
//	  s3:
//	    bucket: translations
//	    region: eu-west-1
//	    prefix: shared/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"github.com/kdsmith18542/localekit/i18n/catalog"
	"github.com/kdsmith18542/localekit/i18n/settings"
	"github.com/kdsmith18542/localekit/i18n/storage"
	"github.com/kdsmith18542/localekit/observability"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LOCALEKIT_"

// Config is the complete file and environment configuration.
type Config struct {
	LogLevel      string               `yaml:"logLevel" env:"LOG_LEVEL"`
	Settings      settings.Settings    `yaml:"settings"`
	Observability observability.Config `yaml:"observability" envPrefix:"OTEL_"`
	Remote        Remote               `yaml:"remote" envPrefix:"REMOTE_"`
}

// Remote describes a module whose resources live in a storage bucket. At
// most one of S3, GCS and Azure may name a bucket.
type Remote struct {
	ModuleName    string              `yaml:"moduleName" env:"MODULE_NAME"`
	RootNamespace string              `yaml:"rootNamespace" env:"ROOT_NAMESPACE"`
	Timeout       time.Duration       `yaml:"timeout" env:"TIMEOUT"`
	S3            storage.S3Config    `yaml:"s3" envPrefix:"S3_"`
	GCS           storage.GCSConfig   `yaml:"gcs" envPrefix:"GCS_"`
	Azure         storage.AzureConfig `yaml:"azure" envPrefix:"AZURE_"`
}

// ErrAmbiguousRemote is returned when more than one remote bucket is
// configured.
var ErrAmbiguousRemote = errors.New("config: more than one remote bucket configured")

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		Settings: settings.Defaults(),
		Observability: observability.Config{
			ServiceName: "localekit",
		},
		Remote: Remote{
			ModuleName: "Remote",
			Timeout:    storage.DefaultTimeout,
		},
	}
}

// Load reads the YAML file at path, if any, and then the environment. A
// path that does not exist is skipped.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.readYAML(path); err != nil {
		return cfg, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) readYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", path).Msg("No YAML configuration file found, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
		return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Configuration loaded")
	return nil
}

// Bucket opens the configured remote bucket wrapped for observability. It
// returns nil when no bucket is configured.
func (r Remote) Bucket(ctx context.Context) (storage.Bucket, error) {
	configured := 0
	for _, name := range []string{r.S3.Bucket, r.GCS.Bucket, r.Azure.Container} {
		if name != "" {
			configured++
		}
	}
	switch {
	case configured == 0:
		return nil, nil
	case configured > 1:
		return nil, ErrAmbiguousRemote
	}

	switch {
	case r.S3.Bucket != "":
		b, err := storage.NewS3(ctx, r.S3)
		if err != nil {
			return nil, err
		}
		return storage.Observe(b, "s3"), nil
	case r.GCS.Bucket != "":
		b, err := storage.NewGCS(ctx, r.GCS)
		if err != nil {
			return nil, err
		}
		return storage.Observe(b, "gcs"), nil
	default:
		b, err := storage.NewAzure(r.Azure)
		if err != nil {
			return nil, err
		}
		return storage.Observe(b, "azure"), nil
	}
}

// Module builds a module over the configured remote bucket, or returns nil
// when none is configured.
func (r Remote) Module(ctx context.Context) (*catalog.Module, error) {
	b, err := r.Bucket(ctx)
	if err != nil || b == nil {
		return nil, err
	}
	name := r.ModuleName
	if name == "" {
		name = "Remote"
	}
	return &catalog.Module{
		Name:          name,
		RootNamespace: r.RootNamespace,
		Source:        storage.NewSource(b, r.Timeout),
	}, nil
}
