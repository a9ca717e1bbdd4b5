// Package config loads the order book service's configuration from a YAML
// file (with environment variable overrides) and watches that file for
// changes, re-validating and handing the new value to registered callbacks.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the full set of tunables for the API server. The CLI driver
// takes its settings from command-line flags instead.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Timezone        string `mapstructure:"timezone"`
	DailyCutoffHour int    `mapstructure:"daily_cutoff_hour"`

	HTTPAddr string `mapstructure:"http_addr"`

	FeedShardCount int `mapstructure:"feed_shard_count"`
	FeedReplaySize int `mapstructure:"feed_replay_size"`

	TickExponent int32 `mapstructure:"tick_exponent"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("timezone", "Local")
	v.SetDefault("daily_cutoff_hour", 16)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("feed_shard_count", 16)
	v.SetDefault("feed_replay_size", 256)
	v.SetDefault("tick_exponent", 0)
}

func (c *Config) validate() error {
	if c.DailyCutoffHour < 0 || c.DailyCutoffHour > 23 {
		return fmt.Errorf("daily_cutoff_hour must be in [0,23], got %d", c.DailyCutoffHour)
	}
	if c.FeedShardCount < 1 {
		return fmt.Errorf("feed_shard_count must be positive, got %d", c.FeedShardCount)
	}
	if c.FeedReplaySize < 1 {
		return fmt.Errorf("feed_replay_size must be positive, got %d", c.FeedReplaySize)
	}
	if _, err := time.LoadLocation(locationName(c.Timezone)); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

func locationName(tz string) string {
	if tz == "" {
		return "Local"
	}
	return tz
}

// ReloadFunc is invoked with the newly validated configuration every time
// the watched file changes.
type ReloadFunc func(cfg *Config)

// Manager owns a viper instance, the currently-loaded Config, and the
// fsnotify watcher driving hot-reload.
type Manager struct {
	mu       sync.RWMutex
	v        *viper.Viper
	cfg      *Config
	logger   *zap.Logger
	path     string
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once

	callbacksMu sync.Mutex
	callbacks   []ReloadFunc
}

// Load reads path (a YAML file) into a new Manager. Environment variables
// prefixed ORDERBOOK_ override file values, with "." replaced by "_".
func Load(path string, logger *zap.Logger) (*Manager, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ORDERBOOK")
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	m := &Manager{
		v:      v,
		cfg:    &cfg,
		logger: logger,
		path:   path,
		stopCh: make(chan struct{}),
	}
	return m, nil
}

// Current returns the most recently validated Config.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// OnReload registers a callback invoked after every successful hot-reload.
func (m *Manager) OnReload(fn ReloadFunc) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch starts watching the config file for changes. Close stops it.
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(m.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", m.path, err)
	}
	m.watcher = watcher
	go m.watchLoop()
	return nil
}

func (m *Manager) watchLoop() {
	debounce := time.NewTimer(0)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				debounce.Reset(200 * time.Millisecond)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			if m.logger != nil {
				m.logger.Error("config watcher error", zap.Error(err))
			}
		case <-debounce.C:
			if err := m.reload(); err != nil && m.logger != nil {
				m.logger.Error("config reload failed", zap.Error(err))
			}
		}
	}
}

func (m *Manager) reload() error {
	v := viper.New()
	v.SetConfigFile(m.path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ORDERBOOK")
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	m.mu.Lock()
	m.v = v
	m.cfg = &cfg
	m.mu.Unlock()

	m.callbacksMu.Lock()
	callbacks := append([]ReloadFunc(nil), m.callbacks...)
	m.callbacksMu.Unlock()
	for _, cb := range callbacks {
		cb(&cfg)
	}
	if m.logger != nil {
		m.logger.Info("configuration reloaded", zap.String("path", m.path))
	}
	return nil
}

// Close stops the file watcher, if started. Safe to call more than once,
// and safe to call when Watch was never called.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
