package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetReturnsNamedLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Get(CategoryAPI).Infow("request sent", "model", "test")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "api" {
		t.Errorf("expected logger name 'api', got %q", entries[0].LoggerName)
	}
}

func TestGetCachesPerCategory(t *testing.T) {
	SetLogger(zap.NewNop())
	defer SetLogger(nil)

	if Get(CategorySession) != Get(CategorySession) {
		t.Error("expected the same sugared logger instance per category")
	}
}

func TestSyncWithoutInitializeIsSafe(t *testing.T) {
	SetLogger(nil)
	Sync()
	Get(CategoryUI).Debug("noop")
}
