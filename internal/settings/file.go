package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is a read-only Lookup backed by a YAML file:
//
//	guilds:
//	  "123456789":
//	    level:tag create: moderator
//	    cooldown:ping: "10"
//	    disabled:fun: "true"
type File struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	data map[string]map[string]string
}

type fileDocument struct {
	Guilds map[string]map[string]string `yaml:"guilds"`
}

// LoadFile reads the YAML settings file at path.
func LoadFile(path string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &File{path: path, logger: logger.Named("settings")}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Get implements Lookup.
func (f *File) Get(guildID, key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[guildID][key]
	return v, ok
}

// Reload re-reads the file. On error the previous contents stay in place.
func (f *File) Reload() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse settings file %s: %w", f.path, err)
	}
	if doc.Guilds == nil {
		doc.Guilds = map[string]map[string]string{}
	}

	f.mu.Lock()
	f.data = doc.Guilds
	f.mu.Unlock()
	return nil
}

// Watch reloads the file whenever it changes, until ctx is done. The parent
// directory is watched so editors that replace the file are handled too.
func (f *File) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", f.path, err)
	}
	target := filepath.Clean(f.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := f.Reload(); err != nil {
				f.logger.Warn("Failed to reload settings", zap.Error(err))
				continue
			}
			f.logger.Info("Settings reloaded", zap.String("path", f.path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("Settings watcher error", zap.Error(err))
		}
	}
}
