/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package pacer

import (
	"fmt"
	"time"

	"github.com/acronis/go-aikit/config"
)

const cfgDefaultKeyPrefix = "pacer"

const (
	cfgKeyMaxRequests = "maxRequests"
	cfgKeyWindow      = "window"
)

// Config represents a set of configuration parameters for Pacer.
type Config struct {
	MaxRequests int                 `mapstructure:"maxRequests" yaml:"maxRequests" json:"maxRequests"`
	Window      config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Empty keyPrefix means the default one ("pacer").
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{MaxRequests: DefaultMaxRequests, Window: config.TimeDuration(DefaultWindow)}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for Pacer in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxRequests, DefaultMaxRequests)
	dp.SetDefault(cfgKeyWindow, DefaultWindow.String())
}

// Set sets Pacer configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.MaxRequests, err = dp.GetInt(cfgKeyMaxRequests); err != nil {
		return err
	}
	if c.MaxRequests <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxRequests, fmt.Errorf("must be positive"))
	}
	var window time.Duration
	if window, err = dp.GetDuration(cfgKeyWindow); err != nil {
		return err
	}
	if window <= 0 {
		return dp.WrapKeyErr(cfgKeyWindow, fmt.Errorf("must be positive"))
	}
	c.Window = config.TimeDuration(window)
	return nil
}
