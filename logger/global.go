package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	globalMu     sync.RWMutex
	globalLogger = NewDefault("default")
)

// Init initializes the global logger from config.
func Init(cfg *Config) {
	cfg.ApplyDefaults()

	name := cfg.ServiceName
	if name == "" {
		name = "default"
	}

	globalMu.Lock()
	globalLogger = New(cfg, name)
	globalMu.Unlock()

	if level, err := zerolog.ParseLevel(cfg.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
}

// GetGlobalLogger returns the process-wide logger.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Debug logs at debug level on the global logger.
func Debug(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info logs at info level on the global logger.
func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs at warn level on the global logger.
func Warn(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error logs at error level on the global logger.
func Error(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(msg, fields...)
}
