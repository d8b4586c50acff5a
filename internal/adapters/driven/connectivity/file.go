package connectivity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// Ensure FileSignal implements the interface.
var _ driven.ConnectivityProvider = (*FileSignal)(nil)

// StateFileName is the default state file name under the config directory.
const StateFileName = "network.state"

// FileSignal reads connectivity from a file the host runtime keeps up to
// date. The file holds "online" or "offline"; a missing or unreadable file
// counts as online.
type FileSignal struct {
	path string
}

// NewFileSignal creates a provider for the given state file.
func NewFileSignal(path string) *FileSignal {
	return &FileSignal{path: filepath.Clean(path)}
}

// Path returns the watched file.
func (f *FileSignal) Path() string {
	return f.path
}

// Online reads the state file.
func (f *FileSignal) Online(_ context.Context) bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("connectivity: read %s: %v", f.path, err)
		}
		return true
	}
	return parseState(string(data))
}

// Watch observes the state file's directory and emits transitions.
// The directory is watched rather than the file so atomic replaces and
// late creation are seen.
func (f *FileSignal) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("connectivity: create watcher: %v", err)
		go closeOnDone(ctx, ch)
		return ch
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		logger.Error("connectivity: watch %s: %v", filepath.Dir(f.path), err)
		_ = watcher.Close()
		go closeOnDone(ctx, ch)
		return ch
	}

	go func() {
		defer close(ch)
		defer watcher.Close()

		last := f.Online(ctx)
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != f.path {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				state := f.Online(ctx)
				if state != last {
					last = state
					logger.Info("connectivity: %s (%s)", stateName(state), f.path)
					send(ch, state)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("connectivity: watcher error: %v", err)
			}
		}
	}()

	return ch
}

// parseState treats anything other than an explicit "offline" as online.
func parseState(content string) bool {
	switch strings.ToLower(strings.TrimSpace(content)) {
	case "offline", "0", "false":
		return false
	default:
		return true
	}
}

func closeOnDone(ctx context.Context, ch chan bool) {
	<-ctx.Done()
	close(ch)
}
