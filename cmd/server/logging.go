package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rpggio/trips/internal/config"
)

// newLogger builds the process logger from cfg. In stdio mode stdout
// carries JSON-RPC, so logs go to stderr unless a file is configured.
func newLogger(cfg config.LogConfig, stdio bool) (*slog.Logger, func() error, error) {
	var out io.Writer = os.Stdout
	if stdio {
		out = os.Stderr
	}
	closeLog := func() error { return nil }
	if cfg.Path != "" {
		f, err := openTrimmedLog(cfg.Path, int64(cfg.MaxSizeMB)<<20)
		if err != nil {
			return nil, nil, err
		}
		out, closeLog = f, f.Close
	}

	opts := &slog.HandlerOptions{Level: logLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closeLog, nil
}

// logLevel falls back to info for anything slog cannot parse.
func logLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// trimmedLog appends to a file and, once it passes limit bytes, cuts it down
// to roughly the newest five sixths, starting at a line boundary.
type trimmedLog struct {
	mu    sync.Mutex
	file  *os.File
	limit int64
}

func openTrimmedLog(path string, limit int64) (*trimmedLog, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l := &trimmedLog{file: file, limit: limit}
	if err := l.trim(); err != nil {
		file.Close()
		return nil, err
	}
	return l, nil
}

func (l *trimmedLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, l.trim()
}

func (l *trimmedLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *trimmedLog) trim() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= l.limit {
		return nil
	}

	keep := l.limit * 5 / 6
	tail := make([]byte, keep)
	n, err := l.file.ReadAt(tail, size-keep)
	if err != nil && err != io.EOF {
		return err
	}
	tail = tail[:n]
	if i := bytes.IndexByte(tail, '\n'); i >= 0 {
		tail = tail[i+1:]
	}

	// O_APPEND writes land at the new end after the truncate.
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	_, err = l.file.Write(tail)
	return err
}

func ensureParentDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
