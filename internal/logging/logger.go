// Package logging provides categorized zap loggers for graphtutor.
// Adapter failures are logged here and never rendered into the transcript.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryAPI        Category = "api"        // LLM API calls
	CategorySession    Category = "session"    // Session state transitions
	CategoryCurriculum Category = "curriculum" // Graph generation and normalization
	CategoryConfig     Category = "config"     // Config load/reload
	CategoryUI         Category = "ui"         // TUI events
	CategoryUsage      Category = "usage"      // Token accounting
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	sugared = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the root logger. debug selects the development config
// with debug-level output; otherwise the production config is used.
// Before Initialize is called all loggers are no-ops, which keeps tests quiet.
func Initialize(debug bool) error {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	mu.Lock()
	root = logger
	sugared = make(map[Category]*zap.SugaredLogger)
	mu.Unlock()
	return nil
}

// SetLogger replaces the root logger. Used by tests to capture output.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	root = logger
	sugared = make(map[Category]*zap.SugaredLogger)
	mu.Unlock()
}

// L returns the root logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Get returns the sugared logger for a category, creating it on first use.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if s, ok := sugared[cat]; ok {
		mu.RUnlock()
		return s
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if s, ok := sugared[cat]; ok {
		return s
	}
	s := root.Named(string(cat)).Sugar()
	sugared[cat] = s
	return s
}

// Sync flushes buffered log entries. Safe to call on a no-op logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
