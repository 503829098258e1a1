package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/quarrylabs/quarry"
)

// debounceWindow coalesces the burst of write events an editor or a copy
// produces for a single file.
const debounceWindow = 500 * time.Millisecond

// watchDirectory ingests files dropped into dir until ctx is cancelled.
func watchDirectory(ctx context.Context, q *quarry.Quarry, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if timer, ok := pending[path]; ok {
			timer.Reset(debounceWindow)
			return
		}
		pending[path] = time.AfterFunc(debounceWindow, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			if err := ingestFile(ctx, q, path); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if skipWatchedFile(event.Name) {
				continue
			}
			schedule(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

// skipWatchedFile filters out directories, hidden files, and editor
// temporaries.
func skipWatchedFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return true
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return true
	}
	return false
}
