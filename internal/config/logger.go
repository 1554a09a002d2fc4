package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger from the logging.* settings.
// logging.level is any zap level name (default info); logging.format
// is "json" for production output or "console" for local runs.
// Components derive their own loggers via Named, so the component
// field convention stays consistent across the binary.
func (c *ViperConfig) NewLogger() (*zap.Logger, error) {
	name := c.GetString("logging.level")
	if name == "" {
		name = "info"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", name, err)
	}

	var cfg zap.Config
	switch format := c.GetString("logging.format"); format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	// Stack traces are noise outside debug sessions; errors already
	// carry their cause chain.
	cfg.DisableStacktrace = level > zapcore.DebugLevel

	return cfg.Build()
}
