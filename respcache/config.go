/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package respcache

import (
	"fmt"
	"time"

	"github.com/acronis/go-aikit/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyMaxEntries = "maxEntries"
	cfgKeyStaleAfter = "staleAfter"
)

// Config represents a set of configuration parameters for the response cache.
type Config struct {
	MaxEntries int                 `mapstructure:"maxEntries" yaml:"maxEntries" json:"maxEntries"`
	StaleAfter config.TimeDuration `mapstructure:"staleAfter" yaml:"staleAfter" json:"staleAfter"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Empty keyPrefix means the default one ("cache").
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{MaxEntries: DefaultMaxEntries, StaleAfter: config.TimeDuration(DefaultStaleAfter)}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the cache in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxEntries, DefaultMaxEntries)
	dp.SetDefault(cfgKeyStaleAfter, DefaultStaleAfter.String())
}

// Set sets cache configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.MaxEntries, err = dp.GetInt(cfgKeyMaxEntries); err != nil {
		return err
	}
	if c.MaxEntries <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxEntries, fmt.Errorf("must be positive"))
	}
	var staleAfter time.Duration
	if staleAfter, err = dp.GetDuration(cfgKeyStaleAfter); err != nil {
		return err
	}
	if staleAfter <= 0 {
		return dp.WrapKeyErr(cfgKeyStaleAfter, fmt.Errorf("must be positive"))
	}
	c.StaleAfter = config.TimeDuration(staleAfter)
	return nil
}
