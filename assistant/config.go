/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"fmt"
	"time"

	"github.com/acronis/go-aikit/config"
	"github.com/acronis/go-aikit/retry"
)

const cfgDefaultKeyPrefix = "assistant"

const (
	cfgKeyHistorySize          = "historySize"
	cfgKeyMaxCodeContexts      = "maxCodeContexts"
	cfgKeyRetry                = "retry"
	cfgKeyRetryMaxAttempts     = "retry.maxAttempts"
	cfgKeyRetryInitialInterval = "retry.initialInterval"
	cfgKeyRetryMaxInterval     = "retry.maxInterval"
)

// RetryConfig represents a set of configuration parameters for retrying failed backend calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of retries after the first failed call. Zero disables retries.
	MaxAttempts     int                 `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	InitialInterval config.TimeDuration `mapstructure:"initialInterval" yaml:"initialInterval" json:"initialInterval"`
	MaxInterval     config.TimeDuration `mapstructure:"maxInterval" yaml:"maxInterval" json:"maxInterval"`
}

// Config represents a set of configuration parameters for the assistant.
type Config struct {
	HistorySize     int         `mapstructure:"historySize" yaml:"historySize" json:"historySize"`
	MaxCodeContexts int         `mapstructure:"maxCodeContexts" yaml:"maxCodeContexts" json:"maxCodeContexts"`
	Retry           RetryConfig `mapstructure:"retry" yaml:"retry" json:"retry"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Empty keyPrefix means the default one ("assistant").
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		HistorySize:     DefaultHistorySize,
		MaxCodeContexts: DefaultMaxCodeContexts,
		Retry: RetryConfig{
			MaxAttempts:     DefaultRetryMaxAttempts,
			InitialInterval: config.TimeDuration(DefaultRetryInitialInterval),
			MaxInterval:     config.TimeDuration(DefaultRetryMaxInterval),
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the assistant in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyHistorySize, DefaultHistorySize)
	dp.SetDefault(cfgKeyMaxCodeContexts, DefaultMaxCodeContexts)
	dp.SetDefault(cfgKeyRetryMaxAttempts, DefaultRetryMaxAttempts)
	dp.SetDefault(cfgKeyRetryInitialInterval, DefaultRetryInitialInterval.String())
	dp.SetDefault(cfgKeyRetryMaxInterval, DefaultRetryMaxInterval.String())
}

// Set sets assistant configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.HistorySize, err = dp.GetInt(cfgKeyHistorySize); err != nil {
		return err
	}
	if c.HistorySize <= 0 {
		return dp.WrapKeyErr(cfgKeyHistorySize, fmt.Errorf("must be positive"))
	}
	if c.MaxCodeContexts, err = dp.GetInt(cfgKeyMaxCodeContexts); err != nil {
		return err
	}
	if c.MaxCodeContexts <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxCodeContexts, fmt.Errorf("must be positive"))
	}
	return c.setRetry(dp)
}

func (c *Config) setRetry(dp config.DataProvider) error {
	// Keys missing in a partially specified section keep their defaults.
	retryCfg := NewDefaultConfig().Retry
	if err := dp.UnmarshalKey(cfgKeyRetry, &retryCfg, config.WithTextUnmarshalerHook()); err != nil {
		return err
	}
	if retryCfg.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetryMaxAttempts, fmt.Errorf("must be non-negative"))
	}
	if retryCfg.InitialInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyRetryInitialInterval, fmt.Errorf("must be positive"))
	}
	if retryCfg.MaxInterval < retryCfg.InitialInterval {
		return dp.WrapKeyErr(cfgKeyRetryMaxInterval,
			fmt.Errorf("should be >= %s", time.Duration(retryCfg.InitialInterval)))
	}
	c.Retry = retryCfg
	return nil
}

// RetryPolicy returns the retry policy described by the configuration.
func (c *Config) RetryPolicy() retry.Policy {
	if c.Retry.MaxAttempts == 0 {
		return retry.NoRetryPolicy
	}
	return retry.ExponentialBackoffPolicy{
		InitialInterval: time.Duration(c.Retry.InitialInterval),
		MaxInterval:     time.Duration(c.Retry.MaxInterval),
		MaxAttempts:     c.Retry.MaxAttempts,
	}
}
