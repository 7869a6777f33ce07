package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// watcher forwards fsnotify events for a directory tree to the catalog.
// Events are handled on the watcher's own goroutine.
type watcher struct {
	fsw  *fsnotify.Watcher
	log  zerolog.Logger
	wg   sync.WaitGroup
	once sync.Once
	err  error
}

// watch starts watching dir, and its subdirectories when recursive.
func (c *Catalog) watch(dir string, recursive bool) (*watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &DirectoryNotFoundError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &DirectoryNotFoundError{Path: dir, Err: fs.ErrInvalid}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{fsw: fsw, log: c.log}
	if err := w.add(dir, recursive); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop(c.handleEvent)
	c.log.Info().Str("dir", dir).Bool("recursive", recursive).Msg("Watching resources directory")
	return w, nil
}

func (w *watcher) add(dir string, recursive bool) error {
	if !recursive {
		return w.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}

func (w *watcher) loop(handle func(fsnotify.Event)) {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// close stops the watcher and waits for the event loop to exit. It must not
// be called from the event loop itself.
func (w *watcher) close() error {
	w.once.Do(func() {
		w.err = w.fsw.Close()
		w.wg.Wait()
	})
	return w.err
}
