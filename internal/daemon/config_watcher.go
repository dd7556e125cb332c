package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/logging"
)

// ReloadFunc applies a freshly loaded configuration.
type ReloadFunc func(ctx context.Context, cfg *config.Config) error

// ConfigWatcher monitors the configuration file and reloads it on change.
type ConfigWatcher struct {
	configPath string
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	apply      ReloadFunc
	logger     *slog.Logger

	stopOnce   sync.Once
	stopChan   chan struct{}
	reloadChan chan struct{}
	done       sync.WaitGroup
}

// NewConfigWatcher creates a watcher for configPath.
func NewConfigWatcher(configPath string, debounce time.Duration, apply ReloadFunc, logger *slog.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath: absPath,
		watcher:    watcher,
		debounce:   debounce,
		apply:      apply,
		logger:     logging.OrDefault(logger),
		stopChan:   make(chan struct{}),
		reloadChan: make(chan struct{}, 1),
	}, nil
}

// Start begins monitoring the configuration file. The watcher is closed
// when Start fails.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	// Editors replace files on save, so watch the directory.
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		cw.Stop()
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	cw.logger.Info("Starting configuration watcher", logging.Path(cw.configPath))

	cw.done.Add(2)
	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutines.
func (cw *ConfigWatcher) Stop() {
	cw.stopOnce.Do(func() {
		close(cw.stopChan)
		if err := cw.watcher.Close(); err != nil {
			cw.logger.Error("Error closing file watcher", logging.Error(err))
		}
	})
	cw.done.Wait()
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	defer cw.done.Done()
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}

			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				cw.logger.Debug("Config file change detected", logging.Path(event.Name), slog.String("event", event.Op.String()))
				cw.triggerReload()
			case event.Has(fsnotify.Remove):
				cw.logger.Warn("Config file removed", logging.Path(event.Name))
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("Config watcher error", logging.Error(err))
		}
	}
}

// reloadLoop debounces change notifications.
func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	defer cw.done.Done()
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-cw.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-cw.reloadChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(cw.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := cw.performReload(ctx); err != nil {
				cw.logger.Error("Failed to reload configuration", logging.Error(err))
			}
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	cw.logger.Info("Reloading configuration", logging.Path(cw.configPath))

	cfg, err := config.Load(cw.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new configuration: %w", err)
	}
	if err := cw.apply(ctx, cfg); err != nil {
		return fmt.Errorf("failed to apply new configuration: %w", err)
	}

	cw.logger.Info("Configuration reloaded")
	return nil
}
