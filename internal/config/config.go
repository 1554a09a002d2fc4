// Package config provides the Viper-backed configuration wrapper and
// the zap logger factory.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// ViperConfig wraps a Viper instance behind a small read-only surface.
type ViperConfig struct {
	v *viper.Viper
}

// New creates a Config backed by the given Viper instance.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

func (c *ViperConfig) Get(key string) any {
	return c.v.Get(key)
}

func (c *ViperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *ViperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *ViperConfig) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

func (c *ViperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *ViperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

func (c *ViperConfig) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// Sub returns the subtree under key, or an empty config when unset.
func (c *ViperConfig) Sub(key string) *ViperConfig {
	sub := c.v.Sub(key)
	if sub == nil {
		return New(nil)
	}
	return New(sub)
}

// Viper returns the underlying Viper instance for direct access.
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}
