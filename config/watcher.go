package config

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

var (
	gLock      sync.RWMutex
	gConfig    *Config
	gListeners []func(*Config)
)

func configFromFile(path string) (*Config, error) {
	config := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p := json.NewDecoder(f)
	if err := p.Decode(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log.Infof("Loaded configuration: %v", spew.Sdump(config))
	return config, nil
}

// Get returns the active configuration. Defaults are returned before Load.
func Get() *Config {
	gLock.RLock()
	defer gLock.RUnlock()
	if gConfig == nil {
		return Default()
	}
	return gConfig
}

// OnChange registers fn to be called with every configuration reloaded from
// disk after the initial Load.
func OnChange(fn func(*Config)) {
	gLock.Lock()
	defer gLock.Unlock()
	gListeners = append(gListeners, fn)
}

func set(config *Config) []func(*Config) {
	gLock.Lock()
	defer gLock.Unlock()
	gConfig = config
	return append([]func(*Config){}, gListeners...)
}

func waitForChange(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-watcher.Errors:
		return err
	case <-watcher.Events:
	}
	// Editors tend to write in bursts; let the file settle.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second / 10):
	}
	return ctx.Err()
}

// Load reads the configuration at path and keeps it up to date until ctx is
// cancelled. A missing file is not an error: defaults are used and nothing is
// watched.
func Load(ctx context.Context, path string) error {
	config, err := configFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Infof("No configuration at %v, using defaults", path)
		set(Default())
		return nil
	}
	if err != nil {
		return err
	}
	set(config)
	go func() {
		for ctx.Err() == nil {
			if err := waitForChange(ctx, path); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("Error waiting for config change: %v", err)
				// Avoid spinning when the file was removed.
				time.Sleep(time.Second)
				continue
			}

			config, err := configFromFile(path)
			if err != nil {
				log.Errorf("Failed to load new config: %v", err)
				continue
			}
			for _, fn := range set(config) {
				fn(config)
			}
		}
	}()
	return nil
}
