package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// WatchSchemaFile watches path for writes/renames and invokes onChange
// each time, so a graph definition reload can feed schema.EnsureSchema
// without restarting the process. The returned stop func closes the
// underlying watcher; callers should defer it.
func WatchSchemaFile(path string, onChange func()) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange()
				}
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("schema file watcher error", "path", path, "error", watchErr)
			case <-done:
				return
			}
		}
	}()

	return func() error {
		close(done)
		return watcher.Close()
	}, nil
}
