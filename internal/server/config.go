package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/glyscope.db")
	v.SetDefault("database.table", "readings")

	// Analysis defaults. The engine refuses to default exclusive_mode;
	// the overlap strategy here is the server's own documented choice.
	v.SetDefault("analysis.workers", 0) // 0 = NumCPU
	v.SetDefault("analysis.sampling_minutes", 5.0)
	v.SetDefault("analysis.jitter_minutes", 0.1)
	v.SetDefault("analysis.end_of_data", "discard")
	v.SetDefault("analysis.exclusive_mode", "overlap")

	// Peak detection defaults.
	v.SetDefault("peaks.threshold", 130.0)
	v.SetDefault("peaks.gap_minutes", 60.0)
	v.SetDefault("peaks.window_hours", 2.0)

	// Auth stays disabled until a password hash is configured.
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.access_token_ttl", "15m")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("glyscope")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/glyscope")
	}

	// Environment variable support: GS_SERVER_PORT=9090
	v.SetEnvPrefix("GS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine, defaults apply.
	}

	return v, nil
}
