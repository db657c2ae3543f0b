package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrorLogDir is where DumpPayload keeps payloads by default, relative to the home directory.
const ErrorLogDir = ".compound/error_logs"

// DumpPayload saves a payload the client could not make sense of, so it can be inspected after
// the fact, and returns the file it went to. An empty dir means ~/.compound/error_logs.
//
// Every call gets its own file, chunks that fail in the same second don't overwrite each other.
func DumpPayload(dir, source, payload string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("DumpPayload: failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ErrorLogDir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("DumpPayload: failed to create %s: %w", dir, err)
	}

	pattern := fmt.Sprintf("%s-%s-*.log", source, time.Now().UTC().Format("20060102T150405"))
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("DumpPayload: %w", err)
	}

	if _, err := f.WriteString(payload); err != nil {
		f.Close()
		return "", fmt.Errorf("DumpPayload: failed to write %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("DumpPayload: failed to close %s: %w", f.Name(), err)
	}

	return f.Name(), nil
}
