// Package config loads and layers loom configuration from project, user,
// and local files, with environment overrides applied last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/adalundhe/loom/core/storage"
	"gopkg.in/yaml.v3"
)

type Manager struct {
	configPtr unsafe.Pointer
	dirs      *storage.Dirs
	watchers  []func(*Config)
	watcherMu sync.RWMutex
}

type Config struct {
	Merge   MergeConfig   `yaml:"merge"`
	Journal JournalConfig `yaml:"journal"`
	VCS     VCSConfig     `yaml:"vcs"`
	Logging LoggingConfig `yaml:"logging"`
}

// MergeConfig controls the conflict resolution engine.
type MergeConfig struct {
	Workers    int            `yaml:"workers"`
	Strategies []StrategyRule `yaml:"strategies"`
}

// StrategyRule maps a path glob pattern to a named merge strategy.
// Rules are consulted before the built-in table.
type StrategyRule struct {
	Pattern  string `yaml:"pattern"`
	Strategy string `yaml:"strategy"`
}

type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
}

type VCSConfig struct {
	AutoComplete  bool   `yaml:"auto_complete"`
	CommitMessage string `yaml:"commit_message"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func NewManager(dirs *storage.Dirs) *Manager {
	m := &Manager{dirs: dirs}
	cfg := DefaultConfig()
	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	return m
}

func DefaultConfig() *Config {
	return &Config{
		Merge: MergeConfig{
			Workers: 1,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		VCS: VCSConfig{
			AutoComplete:  true,
			CommitMessage: "Resolve merge conflicts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (m *Manager) Get() *Config {
	return (*Config)(atomic.LoadPointer(&m.configPtr))
}

// Load layers configuration sources over the defaults, lowest precedence
// first: project config, user config, project-local config, environment.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadProjectConfig(cfg); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	if err := m.loadLocalConfig(cfg); err != nil {
		return fmt.Errorf("local config: %w", err)
	}

	m.applyEnvironment(cfg)

	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	m.notifyWatchers(cfg)

	return nil
}

func (m *Manager) loadProjectConfig(cfg *Config) error {
	projectDirs := storage.ResolveProjectDirs(".")
	return m.loadYAMLFile(projectDirs.Config, cfg)
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	userConfigPath := m.dirs.ConfigDir("config.yaml")
	return m.loadYAMLFile(userConfigPath, cfg)
}

func (m *Manager) loadLocalConfig(cfg *Config) error {
	projectDirs := storage.ResolveProjectDirs(".")
	localPath := filepath.Join(projectDirs.Local, "config.yaml")
	return m.loadYAMLFile(localPath, cfg)
}

func (m *Manager) loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	layer := &Config{}
	if err := yaml.Unmarshal(data, layer); err != nil {
		return err
	}

	Overlay(cfg, layer)
	return nil
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if v := os.Getenv("LOOM_MERGE_WORKERS"); v != "" {
		if n, err := parseInt(v); err == nil && n > 0 {
			cfg.Merge.Workers = n
		}
	}
	if v := os.Getenv("LOOM_JOURNAL_ENABLED"); v != "" {
		cfg.Journal.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("LOOM_VCS_AUTO_COMPLETE"); v != "" {
		cfg.VCS.AutoComplete = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("LOOM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOOM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func (m *Manager) Reload() error {
	return m.Load()
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
