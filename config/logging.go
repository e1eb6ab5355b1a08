package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEncoder defines a log encoder kind.
type LogEncoder = string

const (
	defaultLoggingLevel = zapcore.InfoLevel
	// ConsoleLogEncoder represents logging with plain text.
	ConsoleLogEncoder LogEncoder = "console"
	// JSONLogEncoder represents logging with JSON.
	JSONLogEncoder LogEncoder = "json"
)

// LoggerConfig holds the logging level for each component.
type LoggerConfig struct {
	Encoder       LogEncoder `mapstructure:"log-encoder"`
	LogLevel      string     `mapstructure:"log"`
	SyncLevel     string     `mapstructure:"sync"`
	RatelessLevel string     `mapstructure:"rateless"`
	ServerLevel   string     `mapstructure:"server"`
	StorageLevel  string     `mapstructure:"storage"`
}

func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:       ConsoleLogEncoder,
		LogLevel:      defaultLoggingLevel.String(),
		SyncLevel:     defaultLoggingLevel.String(),
		RatelessLevel: defaultLoggingLevel.String(),
		ServerLevel:   defaultLoggingLevel.String(),
		StorageLevel:  defaultLoggingLevel.String(),
	}
}

// Build creates the root logger. Component loggers derived with Named raise
// the level to the configured one.
func (c LoggerConfig) Build() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = c.Encoder
	zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	if c.Encoder == ConsoleLogEncoder {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zc.Build()
}

// Named returns a logger for the component with its configured level.
// Unknown components and unparsable levels use the default level.
func (c LoggerConfig) Named(logger *zap.Logger, name string) *zap.Logger {
	var level string
	switch name {
	case "log":
		level = c.LogLevel
	case "sync":
		level = c.SyncLevel
	case "rateless":
		level = c.RatelessLevel
	case "server":
		level = c.ServerLevel
	case "storage":
		level = c.StorageLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = defaultLoggingLevel
	}
	return logger.Named(name).WithOptions(zap.IncreaseLevel(lvl))
}
