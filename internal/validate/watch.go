package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/rdrkit/internal/scenario"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watch calls onChange after the scenario config file or anything under its
// input directory changes. Bursts of events within debounce produce one call.
// onChange runs on the calling goroutine. Watch returns when ctx is done.
func Watch(ctx context.Context, cfg *scenario.Config, debounce time.Duration, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDir(watcher, cfg.Common.InputDir); err != nil {
		return fmt.Errorf("failed to watch input directory: %w", err)
	}
	// The config file is watched through its directory so editors that
	// replace the file on save keep being seen.
	if err := watcher.Add(cfg.Dir()); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	relevant := func(name string) bool {
		if name == cfg.Path {
			return true
		}
		if !within(name, cfg.Common.InputDir) || within(name, cfg.Common.OutputDir) {
			return false
		}
		base := filepath.Base(name)
		// Hidden files and Excel lock files.
		return !strings.HasPrefix(base, ".") && !strings.HasPrefix(base, "~$")
	}

	var timer *time.Timer
	changes := make(chan string, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchDir(watcher, event.Name)
				}
			}

			if timer != nil {
				timer.Stop()
			}
			name := event.Name
			timer = time.AfterFunc(debounce, func() {
				select {
				case changes <- name:
				default:
				}
			})

		case name := <-changes:
			onChange(name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// watchDir recursively adds a directory to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// within reports whether path is dir or lies under it.
func within(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
