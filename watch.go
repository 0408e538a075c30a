package main

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// watchConfig reloads the config file at path whenever it is written and
// passes the new Config to onChange. It runs until ctx is cancelled. A
// failed reload is logged and the previous config remains active.
func watchConfig(ctx context.Context, path string, getenv func(string) string, logger *Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	logger.Info(ComponentConfig, fmt.Sprintf("Watching %s for changes", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts as a write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := loadConfig(path, getenv)
			if err != nil {
				logger.Error(ComponentConfig, fmt.Sprintf("Reload failed, keeping previous config: %v", err))
				continue
			}
			logger.Success(ComponentConfig, fmt.Sprintf("Reloaded %s", path))
			onChange(cfg)

			// Re-add in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(ComponentConfig, fmt.Sprintf("Watcher error: %v", err))
		}
	}
}
