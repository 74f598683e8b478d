package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// batchDelay is how long the watcher waits after the last change event
// before running the batch callback.
const batchDelay = 2 * time.Second

// Watch monitors the corpus root for Python file changes and invokes
// onBatch with the changed relative paths. Events are debounced so a
// burst of writes triggers one callback. Blocks until the context is
// cancelled.
func Watch(ctx context.Context, root string, onBatch func(changed []string)) error {
	patterns, err := loadGitignore(root)
	if err != nil {
		patterns = nil // Continue without gitignore
	}
	matcher := gitignore.NewMatcher(patterns)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the corpus tree recursively
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if shouldSkipDir(info.Name(), path, root, matcher) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(batchDelay)
	batchTimer.Stop() // Don't start yet

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !shouldWatchFile(event.Name, root, matcher) {
				continue
			}

			relPath, err := filepath.Rel(root, event.Name)
			if err != nil {
				continue
			}
			changed[relPath] = true

			batchTimer.Reset(batchDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-batchTimer.C:
			if len(changed) > 0 {
				paths := make([]string, 0, len(changed))
				for p := range changed {
					paths = append(paths, p)
				}
				onBatch(paths)
				changed = make(map[string]bool)
			}
		}
	}
}

// shouldWatchFile checks if a changed path is a corpus Python file.
func shouldWatchFile(path, root string, matcher gitignore.Matcher) bool {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	if matcher != nil && matcher.Match(strings.Split(relPath, string(filepath.Separator)), false) {
		return false
	}

	return strings.EqualFold(filepath.Ext(path), ".py")
}
