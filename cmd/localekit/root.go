package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kdsmith18542/localekit/config"
	"github.com/kdsmith18542/localekit/i18n"
	"github.com/kdsmith18542/localekit/i18n/catalog"
	"github.com/kdsmith18542/localekit/i18n/settings"
	"github.com/kdsmith18542/localekit/observability"
)

type rootOptions struct {
	configPath string
	logLevel   string
	module     string

	dir       string
	recursive bool
	sorted    bool
	fallback  bool
	failFast  bool
	modules   []string

	remoteModule  string
	rootNamespace string

	s3Bucket, s3Region, s3Prefix, s3Endpoint string
	gcsBucket, gcsPrefix                     string
	azureAccount, azureKey                   string
	azureContainer, azurePrefix              string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{})
}

func newRootCmdWith(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "localekit",
		Short:        "Resolve and check localized strings",
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "localekit.yaml", "YAML configuration file")
	f.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&o.module, "module", "", "Module to resolve strings for (defaults to the remote module, or App)")
	f.StringVar(&o.dir, "dir", "", "Directory containing resource files")
	f.BoolVar(&o.recursive, "recursive", true, "Include subdirectories of --dir")
	f.BoolVar(&o.sorted, "sorted", false, "List keys alphabetically")
	f.BoolVar(&o.fallback, "fallback", true, "Fall back to parent cultures")
	f.BoolVar(&o.failFast, "fail-fast", false, "Fail on the first resource that does not parse")
	f.StringSliceVar(&o.modules, "modules", nil, "Embedded module names or patterns")

	f.StringVar(&o.remoteModule, "module-name", "", "Name of the module served from a bucket")
	f.StringVar(&o.rootNamespace, "root-namespace", "", "Root namespace of the bucket module")
	f.StringVar(&o.s3Bucket, "s3-bucket", "", "S3 bucket holding resources")
	f.StringVar(&o.s3Region, "s3-region", "", "S3 region")
	f.StringVar(&o.s3Prefix, "s3-prefix", "", "S3 key prefix")
	f.StringVar(&o.s3Endpoint, "s3-endpoint", "", "Custom S3 endpoint (S3-compatible services)")
	f.StringVar(&o.gcsBucket, "gcs-bucket", "", "GCS bucket holding resources")
	f.StringVar(&o.gcsPrefix, "gcs-prefix", "", "GCS object prefix")
	f.StringVar(&o.azureAccount, "azure-account", os.Getenv("AZURE_STORAGE_ACCOUNT"), "Azure storage account name")
	f.StringVar(&o.azureKey, "azure-key", os.Getenv("AZURE_STORAGE_KEY"), "Azure storage account key")
	f.StringVar(&o.azureContainer, "azure-container", "", "Azure blob container holding resources")
	f.StringVar(&o.azurePrefix, "azure-prefix", "", "Azure blob prefix")

	cmd.AddCommand(
		newGetCmd(o),
		newListCmd(o),
		newLintCmd(o),
		newFindMissingCmd(o),
		newWatchCmd(o),
	)
	return cmd
}

// load merges the configuration file, the environment and the flags that
// were set explicitly.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	s := &cfg.Settings
	if f.Changed("dir") {
		s.ResourcesDirectory = o.dir
	}
	if f.Changed("recursive") {
		s.Recursive = o.recursive
	}
	if f.Changed("sorted") {
		s.Sorted = o.sorted
	}
	if f.Changed("fallback") {
		s.ParentCultureFallback = o.fallback
	}
	if f.Changed("fail-fast") {
		s.FailFast = o.failFast
	}
	if f.Changed("modules") {
		s.Modules = o.modules
	}
	if f.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	r := &cfg.Remote
	if f.Changed("module-name") {
		r.ModuleName = o.remoteModule
	}
	if f.Changed("root-namespace") {
		r.RootNamespace = o.rootNamespace
	}
	if f.Changed("s3-bucket") {
		r.S3.Bucket, r.S3.Region, r.S3.Prefix, r.S3.Endpoint = o.s3Bucket, o.s3Region, o.s3Prefix, o.s3Endpoint
		r.S3.ForcePathStyle = o.s3Endpoint != ""
	}
	if f.Changed("gcs-bucket") {
		r.GCS.Bucket, r.GCS.Prefix = o.gcsBucket, o.gcsPrefix
	}
	if f.Changed("azure-container") {
		r.Azure.AccountName, r.Azure.AccountKey = o.azureAccount, o.azureKey
		r.Azure.Container, r.Azure.Prefix = o.azureContainer, o.azurePrefix
	}
	return cfg, nil
}

// session is an engine built from the command line.
type session struct {
	engine *i18n.Engine
	module string
	log    zerolog.Logger
	cfg    config.Config
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	if err := observability.Init(cfg.Observability); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	registry, err := catalog.NewRegistry()
	if err != nil {
		return nil, err
	}
	remote, err := cfg.Remote.Module(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote module: %w", err)
	}
	module := "App"
	if remote != nil {
		if err := registry.Register(remote); err != nil {
			return nil, err
		}
		if !containsModule(cfg.Settings.Modules, remote.Name) {
			cfg.Settings.Modules = append(cfg.Settings.Modules, remote.Name)
		}
		module = remote.Name
	}
	if o.module != "" {
		module = o.module
	}

	store, err := settings.NewStore(cfg.Settings,
		settings.WithLogger(logger.With().Str("sys", "settings").Logger()),
		settings.WithModuleValidator(registry))
	if err != nil {
		return nil, err
	}
	engine, err := i18n.New(store, i18n.WithLogger(logger), i18n.WithModules(registry))
	if err != nil {
		return nil, err
	}
	return &session{engine: engine, module: module, log: logger, cfg: cfg}, nil
}

func (s *session) Close() error {
	return s.engine.Close()
}

func containsModule(mods []string, name string) bool {
	for _, m := range mods {
		if m == name {
			return true
		}
	}
	return false
}

// newLogger writes human-readable logs to w, coloured only on a terminal.
func newLogger(w io.Writer, level string) zerolog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.DateTime}).
		Level(lvl).
		With().Timestamp().Logger()
}
