/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/acronis/go-aikit/config"
	"github.com/acronis/go-aikit/internal/libinfo"
)

const cfgDefaultKeyPrefix = "backend"

const (
	cfgKeyURL                     = "url"
	cfgKeyModel                   = "model"
	cfgKeyAPIKey                  = "apiKey"
	cfgKeyTimeout                 = "timeout"
	cfgKeyMaxResponseSize         = "maxResponseSize"
	cfgKeyUserAgent               = "userAgent"
	cfgKeyLogMode                 = "log.mode"
	cfgKeyLogSlowRequestThreshold = "log.slowRequestThreshold"
)

// Default parameter values.
const (
	DefaultModel                = "gemini-pro"
	DefaultTimeout              = time.Minute
	DefaultMaxResponseSize      = config.ByteSize(10 * 1024 * 1024)
	DefaultSlowRequestThreshold = 10 * time.Second
)

// LogConfig represents a set of configuration parameters for logging backend requests.
type LogConfig struct {
	Mode                 LoggingMode         `mapstructure:"mode" yaml:"mode" json:"mode"`
	SlowRequestThreshold config.TimeDuration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// Config represents a set of configuration parameters for the HTTP backend.
type Config struct {
	URL             string              `mapstructure:"url" yaml:"url" json:"url"`
	Model           string              `mapstructure:"model" yaml:"model" json:"model"`
	APIKey          string              `mapstructure:"apiKey" yaml:"apiKey" json:"apiKey"`
	Timeout         config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	MaxResponseSize config.ByteSize     `mapstructure:"maxResponseSize" yaml:"maxResponseSize" json:"maxResponseSize"`
	UserAgent       string              `mapstructure:"userAgent" yaml:"userAgent" json:"userAgent"`
	Log             LogConfig           `mapstructure:"log" yaml:"log" json:"log"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Empty keyPrefix means the default one ("backend").
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the backend in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyModel, DefaultModel)
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout.String())
	dp.SetDefault(cfgKeyMaxResponseSize, DefaultMaxResponseSize.String())
	dp.SetDefault(cfgKeyUserAgent, libinfo.UserAgent())
	dp.SetDefault(cfgKeyLogMode, string(LoggingModeFailed))
	dp.SetDefault(cfgKeyLogSlowRequestThreshold, DefaultSlowRequestThreshold.String())
}

// Set sets backend configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.URL, err = dp.GetString(cfgKeyURL); err != nil {
		return err
	}
	if c.URL == "" {
		return dp.WrapKeyErr(cfgKeyURL, fmt.Errorf("cannot be empty"))
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return dp.WrapKeyErr(cfgKeyURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return dp.WrapKeyErr(cfgKeyURL, fmt.Errorf("scheme should be http or https, got %q", u.Scheme))
	}

	if c.Model, err = dp.GetString(cfgKeyModel); err != nil {
		return err
	}
	if c.APIKey, err = dp.GetString(cfgKeyAPIKey); err != nil {
		return err
	}
	if c.UserAgent, err = dp.GetString(cfgKeyUserAgent); err != nil {
		return err
	}

	var timeout time.Duration
	if timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("cannot be negative"))
	}
	c.Timeout = config.TimeDuration(timeout)

	if c.MaxResponseSize, err = dp.GetByteSize(cfgKeyMaxResponseSize); err != nil {
		return err
	}
	if c.MaxResponseSize == 0 {
		return dp.WrapKeyErr(cfgKeyMaxResponseSize, fmt.Errorf("must be positive"))
	}

	modeStr, err := dp.GetStringFromSet(cfgKeyLogMode,
		[]string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}, true)
	if err != nil {
		return err
	}
	c.Log.Mode = LoggingMode(strings.ToLower(modeStr))

	var slowThreshold time.Duration
	if slowThreshold, err = dp.GetDuration(cfgKeyLogSlowRequestThreshold); err != nil {
		return err
	}
	c.Log.SlowRequestThreshold = config.TimeDuration(slowThreshold)

	return nil
}
