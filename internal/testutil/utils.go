package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger for components under test. It writes to stderr
// rather than through t.Log: connection goroutines may still be winding down
// when the test finishes, and logging to a finished test panics.
func TestLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(os.Stderr, "[nibble-test] ", log.Lshortfile)
}
