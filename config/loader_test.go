/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testBackendConfig struct {
	URL     string
	Timeout time.Duration
	MaxBody ByteSize
}

func (c *testBackendConfig) KeyPrefix() string {
	return "backend"
}

func (c *testBackendConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("timeout", "30s")
	dp.SetDefault("maxBody", "1MB")
}

func (c *testBackendConfig) Set(dp DataProvider) error {
	var err error
	if c.URL, err = dp.GetString("url"); err != nil {
		return err
	}
	if c.Timeout, err = dp.GetDuration("timeout"); err != nil {
		return err
	}
	if c.MaxBody, err = dp.GetByteSize("maxBody"); err != nil {
		return err
	}
	return nil
}

type testModeConfig struct {
	Mode string
}

func (c *testModeConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("mode", "batch")
}

func (c *testModeConfig) Set(dp DataProvider) error {
	var err error
	c.Mode, err = dp.GetStringFromSet("mode", []string{"batch", "stream"}, true)
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults are used", func(t *testing.T) {
		backendCfg := &testBackendConfig{}
		modeCfg := &testModeConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, backendCfg, modeCfg)
		require.NoError(t, err)
		require.Equal(t, 30*time.Second, backendCfg.Timeout)
		require.Equal(t, ByteSize(1024*1024), backendCfg.MaxBody)
		require.Equal(t, "batch", modeCfg.Mode)
	})

	t.Run("values from yaml with key prefix", func(t *testing.T) {
		cfgData := `
backend:
  url: http://localhost:8080/generate
  timeout: 5s
  maxBody: 512Ki
mode: STREAM
`
		backendCfg := &testBackendConfig{}
		modeCfg := &testModeConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), DataTypeYAML, backendCfg, modeCfg)
		require.NoError(t, err)
		require.Equal(t, "http://localhost:8080/generate", backendCfg.URL)
		require.Equal(t, 5*time.Second, backendCfg.Timeout)
		require.Equal(t, ByteSize(512*1024), backendCfg.MaxBody)
		require.Equal(t, "STREAM", modeCfg.Mode)
	})

	t.Run("invalid value from set", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{"mode":"interactive"}`), DataTypeJSON, &testModeConfig{})
		require.EqualError(t, err, `mode: unknown value "interactive", should be one of [batch stream]`)
	})

	t.Run("negative byte size", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"backend":{"maxBody":-1}}`), DataTypeJSON, &testBackendConfig{})
		require.EqualError(t, err, "backend.maxBody: negative value is not allowed: -1")
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend":{"url":"http://example.com"}}`), 0o600))

	backendCfg := &testBackendConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(path, DataTypeJSON, backendCfg))
	require.Equal(t, "http://example.com", backendCfg.URL)
}

func TestNewDefaultLoader_EnvVars(t *testing.T) {
	t.Setenv("AIKITTEST_BACKEND_URL", "http://env.example.com")

	backendCfg := &testBackendConfig{}
	err := NewDefaultLoader("aikittest").LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, backendCfg)
	require.NoError(t, err)
	require.Equal(t, "http://env.example.com", backendCfg.URL)
}
