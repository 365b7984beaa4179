// Package logger provides the shared zap logger for the indexing engine.
package logger

import (
	"go.uber.org/zap"
)

var instance *zap.Logger

// Init initializes the global logger with production settings.
func Init() error {
	var err error
	instance, err = zap.NewProduction()
	if err != nil {
		return err
	}
	return nil
}

// InitDevelopment initializes the global logger with human-readable output.
func InitDevelopment() error {
	var err error
	instance, err = zap.NewDevelopment()
	if err != nil {
		return err
	}
	return nil
}

// Get returns the global logger, creating a default one if Init was never called.
func Get() *zap.Logger {
	if instance == nil {
		instance, _ = zap.NewProduction()
	}
	return instance
}

// Sync flushes any buffered log entries.
func Sync() {
	if instance != nil {
		_ = instance.Sync()
	}
}
