// Package library keeps the default cue-card template: the first .pptx found
// in the configured template directory, reloaded whenever the directory
// changes. Runs that upload their own template never consult it.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Library struct {
	dir string
	log *zap.Logger

	mu   sync.RWMutex
	name string
	data []byte
}

func New(dir string, log *zap.Logger) *Library {
	return &Library{dir: dir, log: log}
}

// Default returns the current default template bytes and its filename.
func (l *Library) Default() ([]byte, string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.data == nil {
		return nil, "", false
	}
	return l.data, l.name, true
}

// Start scans the template directory and then watches it until the context
// ends. Template bytes are only ever swapped whole.
func (l *Library) Start(ctx context.Context) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return err
	}

	l.log.Info("template library watching", zap.String("dir", l.dir))
	l.scan()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				if strings.HasSuffix(strings.ToLower(event.Name), ".pptx") {
					// Delay for the file transfer to complete.
					time.Sleep(2 * time.Second)
					l.scan()
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

// scan picks the lexically first .pptx in the directory as the default.
func (l *Library) scan() {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		l.log.Warn("failed to scan template directory", zap.Error(err))
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".pptx") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		l.mu.Lock()
		l.name, l.data = "", nil
		l.mu.Unlock()
		return
	}
	sort.Strings(names)

	data, err := os.ReadFile(filepath.Join(l.dir, names[0]))
	if err != nil {
		l.log.Warn("failed to read template", zap.String("name", names[0]), zap.Error(err))
		return
	}

	l.mu.Lock()
	l.name, l.data = names[0], data
	l.mu.Unlock()
	l.log.Info("default template loaded", zap.String("name", names[0]), zap.Int("bytes", len(data)))
}
