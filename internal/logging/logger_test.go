package logging_test

import (
	"errors"
	"testing"

	"podstudio/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewDefaultsToConsole(t *testing.T) {
	logger, err := logging.New(logging.Options{OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("should not panic", logging.Args(logging.Error(errors.New("x")))...)
	component := logging.NewComponentLogger(nil, "editor")
	component.Warn("still no output")
}
