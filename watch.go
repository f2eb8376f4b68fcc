package main

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const configReloadDebounce = 300 * time.Millisecond

// configWatcher reloads the config file when it changes on disk. It
// watches the parent directory so editors that save by rename are seen.
type configWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	load     func(path string) (*Config, error)
	onReload func(*Config)
	onError  func(error)

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// watchConfig starts watching path. load must return a validated config.
func watchConfig(path string, debounce time.Duration, load func(string) (*Config, error), onReload func(*Config), onError func(error)) (*configWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	if debounce <= 0 {
		debounce = configReloadDebounce
	}

	cw := &configWatcher{
		watcher:  watcher,
		path:     filepath.Clean(path),
		debounce: debounce,
		load:     load,
		onReload: onReload,
		onError:  onError,
		done:     make(chan struct{}),
	}
	go cw.run()
	return cw, nil
}

func (cw *configWatcher) run() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				cw.schedule()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.onError(err)
		}
	}
}

// schedule coalesces a burst of writes into one reload.
func (cw *configWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, cw.reload)
}

func (cw *configWatcher) reload() {
	cfg, err := cw.load(cw.path)
	if err != nil {
		cw.onError(fmt.Errorf("reloading %s: %w", cw.path, err))
		return
	}
	cw.onReload(cfg)
}

func (cw *configWatcher) Close() error {
	cw.mu.Lock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()
	err := cw.watcher.Close()
	<-cw.done
	return err
}
