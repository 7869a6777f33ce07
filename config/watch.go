package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/kdsmith18542/localekit/i18n/settings"
)

// Watch reloads the file at path whenever it changes and applies the new
// settings through store.Reconfigure. Load failures are recorded on the
// store and the running settings stay in effect. Watching stops when ctx
// is done.
//
// The containing directory is watched so that editors which replace the
// file on save are followed.
func Watch(ctx context.Context, path string, store *settings.Store, logger zerolog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	logger = logger.With().Str("path", abs).Logger()
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				reload(abs, store, logger)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("Config watcher error")
			}
		}
	}()
	return nil
}

func reload(path string, store *settings.Store, logger zerolog.Logger) {
	cfg, err := Load(path)
	if err != nil {
		store.RecordRuntimeError(err)
		return
	}
	logger.Info().Msg("Configuration changed, reconfiguring")
	store.Reconfigure(cfg.Settings)
}
