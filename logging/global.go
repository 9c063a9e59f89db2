package logging

import (
	"os"
	"sync/atomic"
)

// global backs the package-level functions; component loggers copy its settings through WithPrefix
var global atomic.Pointer[Logger]

func init() {
	global.Store(New(ConfigFromEnv()))
}

// ConfigFromEnv builds a Config from LOG_LEVEL, LOG_PREFIX, LOG_COLOR and LOG_FORMAT,
// used until config.Load replaces it through Configure
func ConfigFromEnv() Config {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	return Config{
		Level:       level,
		Output:      os.Stdout,
		Prefix:      os.Getenv("LOG_PREFIX"),
		EnableColor: os.Getenv("LOG_COLOR") != "false",
		Format:      os.Getenv("LOG_FORMAT"),
	}
}

// Configure replaces the global logger. Component loggers created earlier keep their old settings.
func Configure(config Config) {
	global.Store(New(config))
}

// WithPrefix returns a component logger ("RoundService", "MongoDB") derived from the global one
func WithPrefix(prefix string) *Logger {
	return global.Load().WithPrefix(prefix)
}

func Debugf(format string, args ...interface{}) { global.Load().Debugf(format, args...) }

func Info(args ...interface{}) { global.Load().Info(args...) }

func Infof(format string, args ...interface{}) { global.Load().Infof(format, args...) }

func Warn(args ...interface{}) { global.Load().Warn(args...) }

func Warnf(format string, args ...interface{}) { global.Load().Warnf(format, args...) }

func Error(args ...interface{}) { global.Load().Error(args...) }

func Errorf(format string, args ...interface{}) { global.Load().Errorf(format, args...) }

// Fatalf logs at FATAL and exits with status 1
func Fatalf(format string, args ...interface{}) { global.Load().Fatalf(format, args...) }
