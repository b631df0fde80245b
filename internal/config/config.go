/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads vsteer configuration from a YAML file with
// environment overrides. Credentials are configuration inputs only; nothing
// here stores or rotates them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v2"
)

// Config holds all configuration for a vsteer invocation.
type Config struct {
	// VCenter holds connection settings for the management endpoint
	VCenter VCenterConfig `yaml:"vcenter"`

	// Log holds logging configuration
	Log LogConfig `yaml:"log"`

	// Tracing holds tracing configuration
	Tracing TracingConfig `yaml:"tracing"`

	// Poll holds task polling configuration
	Poll PollConfig `yaml:"poll"`

	// Obs holds the observability endpoint configuration (watch mode)
	Obs ObsConfig `yaml:"obs"`
}

// VCenterConfig holds vCenter connection settings.
type VCenterConfig struct {
	// Host is the vCenter hostname
	Host string `yaml:"host"`
	// Port is the HTTPS API port
	Port int `yaml:"port"`
	// Username to authenticate as
	Username string `yaml:"username"`
	// Password of the user
	Password string `yaml:"password"`
	// Insecure skips TLS certificate verification
	Insecure bool `yaml:"insecure"`
	// Datacenter pins the finder to one datacenter; empty uses the first
	Datacenter string `yaml:"datacenter"`
}

// URL returns the SDK endpoint URL for the configured vCenter.
func (c VCenterConfig) URL() string {
	port := c.Port
	if port == 0 {
		port = 443
	}
	return fmt.Sprintf("https://%s:%d/sdk", c.Host, port)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Development bool   `yaml:"development"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Endpoint          string  `yaml:"endpoint"`
	SamplingRatio     float64 `yaml:"samplingRatio"`
	InsecureTransport bool    `yaml:"insecureTransport"`
}

// PollConfig holds task polling configuration.
type PollConfig struct {
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
	// Timeout bounds one task wait; zero waits until the run context ends
	Timeout time.Duration `yaml:"timeout"`
}

// ObsConfig holds the observability HTTP endpoint configuration.
type ObsConfig struct {
	// Addr is the listen address for /metrics and health endpoints; used by
	// watch mode only
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a default configuration with environment overrides
// applied.
func DefaultConfig() *Config {
	config := baseConfig()
	applyEnvOverrides(config)
	return config
}

// baseConfig returns the built-in defaults without any overrides.
func baseConfig() *Config {
	return &Config{
		VCenter: VCenterConfig{
			Port: 443,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Tracing: TracingConfig{
			SamplingRatio:     0.1,
			InsecureTransport: true,
		},
		Poll: PollConfig{
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		Obs: ObsConfig{
			Addr: ":8090",
		},
	}
}

// applyEnvOverrides overlays every VSTEER_* variable that is set. Unset or
// unparseable variables leave the current value alone.
func applyEnvOverrides(c *Config) {
	setEnvString(&c.VCenter.Host, "VSTEER_VCENTER_HOST")
	setEnvInt(&c.VCenter.Port, "VSTEER_VCENTER_PORT")
	setEnvString(&c.VCenter.Username, "VSTEER_VCENTER_USERNAME")
	setEnvString(&c.VCenter.Password, "VSTEER_VCENTER_PASSWORD")
	setEnvBool(&c.VCenter.Insecure, "VSTEER_VCENTER_INSECURE")
	setEnvString(&c.VCenter.Datacenter, "VSTEER_VCENTER_DATACENTER")

	setEnvString(&c.Log.Level, "VSTEER_LOG_LEVEL")
	setEnvString(&c.Log.Format, "VSTEER_LOG_FORMAT")
	setEnvBool(&c.Log.Development, "VSTEER_LOG_DEVELOPMENT")

	setEnvBool(&c.Tracing.Enabled, "VSTEER_TRACING_ENABLED")
	setEnvString(&c.Tracing.Endpoint, "VSTEER_TRACING_ENDPOINT")
	setEnvFloat(&c.Tracing.SamplingRatio, "VSTEER_TRACING_SAMPLING_RATIO")
	setEnvBool(&c.Tracing.InsecureTransport, "VSTEER_TRACING_INSECURE")

	setEnvDuration(&c.Poll.InitialDelay, "VSTEER_POLL_INITIAL_DELAY")
	setEnvDuration(&c.Poll.MaxDelay, "VSTEER_POLL_MAX_DELAY")
	setEnvFloat(&c.Poll.Multiplier, "VSTEER_POLL_MULTIPLIER")
	setEnvBool(&c.Poll.Jitter, "VSTEER_POLL_JITTER")
	setEnvDuration(&c.Poll.Timeout, "VSTEER_POLL_TIMEOUT")

	setEnvString(&c.Obs.Addr, "VSTEER_OBS_ADDR")
}

// Load reads the configuration file on top of the built-in defaults. An
// empty path returns the defaults. Precedence is defaults < file < env: an
// explicitly set VSTEER_* variable always wins over a file setting.
func Load(path string) (*Config, error) {
	config := baseConfig()
	if path != "" {
		if err := loadFromFile(path, config); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(config)
	return config, nil
}

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Manager serves the current configuration and reloads it when the file
// changes. Watch-mode invocations pick up changes between runs; one-shot
// invocations never see a reload.
type Manager struct {
	mu      sync.RWMutex
	config  *Config
	file    string
	watcher *fsnotify.Watcher
	updates chan *Config
}

// NewManager creates a configuration manager for the given file.
func NewManager(path string) (*Manager, error) {
	config, err := Load(path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		config:  config,
		file:    path,
		updates: make(chan *Config, 1),
	}, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Updates delivers reloaded configurations. The channel only carries values
// after Watch has been started.
func (m *Manager) Updates() <-chan *Config {
	return m.updates
}

// Watch starts watching the configuration file for changes. No-op without a
// file.
func (m *Manager) Watch() error {
	if m.file == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Watch the directory: editors replace the file on save.
	if err := watcher.Add(filepath.Dir(m.file)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	m.watcher = watcher

	go m.watchLoop()
	return nil
}

// Close stops the file watcher.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

func (m *Manager) watchLoop() {
	base := filepath.Base(m.file)
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			config, err := Load(m.file)
			if err != nil {
				// A half-written file is expected during saves; keep the
				// previous configuration.
				continue
			}
			m.mu.Lock()
			m.config = config
			m.mu.Unlock()
			select {
			case m.updates <- config:
			default:
			}
		case _, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func setEnvString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setEnvBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setEnvInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func setEnvFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setEnvDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
