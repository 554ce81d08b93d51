package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSink is an append-only log file shared by a logger and its owner.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens (or creates) the log file at path, creating parent
// directories. An empty path returns a sink that discards writes.
func Open(path string) (*FileSink, error) {
	if path == "" {
		return &FileSink{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	s := &FileSink{file: f}
	fmt.Fprintf(s, "=== contribgate log started at %s ===\n", time.Now().Format(time.RFC3339))
	return s, nil
}

// Write implements io.Writer.
func (s *FileSink) Write(p []byte) (int, error) {
	if s == nil || s.file == nil {
		return len(p), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Write(p)
}

// Close closes the file. Safe on a discarding sink.
func (s *FileSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Tee returns a logger writing to the console writer and, when path is
// set, also to the log file at path. The returned closer closes the file.
func Tee(console io.Writer, path, format string, level slog.Leveler) (Logger, io.Closer, error) {
	sink, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	w := console
	if path != "" {
		w = io.MultiWriter(console, sink)
	}
	l, err := New(w, format, level)
	if err != nil {
		sink.Close()
		return nil, nil, err
	}
	return l, sink, nil
}
