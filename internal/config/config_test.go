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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 443, cfg.VCenter.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.InitialDelay)
	assert.Equal(t, 10*time.Second, cfg.Poll.MaxDelay)
	assert.Equal(t, 2.0, cfg.Poll.Multiplier)
	assert.True(t, cfg.Poll.Jitter)
	assert.Equal(t, ":8090", cfg.Obs.Addr)
}

func TestDefaultConfigEnvOverrides(t *testing.T) {
	t.Setenv("VSTEER_VCENTER_HOST", "vcenter.example.com")
	t.Setenv("VSTEER_VCENTER_PORT", "8443")
	t.Setenv("VSTEER_VCENTER_INSECURE", "true")
	t.Setenv("VSTEER_LOG_LEVEL", "debug")
	t.Setenv("VSTEER_POLL_TIMEOUT", "5m")

	cfg := DefaultConfig()

	assert.Equal(t, "vcenter.example.com", cfg.VCenter.Host)
	assert.Equal(t, 8443, cfg.VCenter.Port)
	assert.True(t, cfg.VCenter.Insecure)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Minute, cfg.Poll.Timeout)
}

func TestVCenterURL(t *testing.T) {
	cfg := VCenterConfig{Host: "vcenter.example.com", Port: 8443}
	assert.Equal(t, "https://vcenter.example.com:8443/sdk", cfg.URL())

	cfg.Port = 0
	assert.Equal(t, "https://vcenter.example.com:443/sdk", cfg.URL())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vsteer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vcenter:
  host: vcenter.example.com
  username: admin
  insecure: true
  datacenter: DC0
poll:
  initialDelay: 250ms
  timeout: 2m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "vcenter.example.com", cfg.VCenter.Host)
	assert.Equal(t, "admin", cfg.VCenter.Username)
	assert.True(t, cfg.VCenter.Insecure)
	assert.Equal(t, "DC0", cfg.VCenter.Datacenter)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll.InitialDelay)
	assert.Equal(t, 2*time.Minute, cfg.Poll.Timeout)
	// Untouched sections keep their defaults.
	assert.Equal(t, 443, cfg.VCenter.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vsteer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vcenter:
  host: from-file
  port: 8443
log:
  level: warn
`), 0o600))

	t.Setenv("VSTEER_VCENTER_HOST", "from-env")
	t.Setenv("VSTEER_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Explicitly set variables beat file settings.
	assert.Equal(t, "from-env", cfg.VCenter.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	// File settings without an env counterpart survive.
	assert.Equal(t, 8443, cfg.VCenter.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vcenter: ["), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestManagerReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vsteer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vcenter:\n  host: first\n"), 0o600))

	mgr, err := NewManager(path)
	require.NoError(t, err)
	defer mgr.Close()

	assert.Equal(t, "first", mgr.Get().VCenter.Host)

	require.NoError(t, mgr.Watch())
	require.NoError(t, os.WriteFile(path, []byte("vcenter:\n  host: second\n"), 0o600))

	select {
	case cfg := <-mgr.Updates():
		assert.Equal(t, "second", cfg.VCenter.Host)
		assert.Equal(t, "second", mgr.Get().VCenter.Host)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestManagerKeepsConfigOnBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vsteer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vcenter:\n  host: first\n"), 0o600))

	mgr, err := NewManager(path)
	require.NoError(t, err)
	defer mgr.Close()
	require.NoError(t, mgr.Watch())

	require.NoError(t, os.WriteFile(path, []byte("vcenter: ["), 0o600))

	// The broken write is ignored; the previous configuration stays.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "first", mgr.Get().VCenter.Host)
}
