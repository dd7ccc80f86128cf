package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// =============================================================================
// Rotating File Writer
// =============================================================================

// RotatingFileWriter implements io.Writer with log rotation by file size.
// When the current file would exceed maxBytes it is rotated to .1, .2, etc.
type RotatingFileWriter struct {
	mu          sync.Mutex
	path        string
	maxBytes    int
	backupCount int
	file        *os.File
	currentSize int64
}

// NewRotatingFileWriter creates a new rotating file writer.
// maxBytes <= 0 disables rotation (single unbounded file).
func NewRotatingFileWriter(path string, maxBytes, backupCount int) (*RotatingFileWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create log dir: %w", err)
		}
	}

	rw := &RotatingFileWriter{
		path:        path,
		maxBytes:    maxBytes,
		backupCount: backupCount,
	}
	if err := rw.openFile(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RotatingFileWriter) openFile() error {
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("config: open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	rw.file = f
	rw.currentSize = info.Size()
	return nil
}

// Write implements io.Writer, rotating first if p would overflow the file.
func (rw *RotatingFileWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.maxBytes > 0 && rw.currentSize > 0 && rw.currentSize+int64(len(p)) > int64(rw.maxBytes) {
		rw.rotate()
	}
	if rw.file == nil {
		return os.Stderr.Write(p)
	}

	n, err := rw.file.Write(p)
	rw.currentSize += int64(n)
	return n, err
}

// Close closes the underlying file.
func (rw *RotatingFileWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}

// rotate shifts file -> file.1 -> file.2 ... dropping the oldest backup.
func (rw *RotatingFileWriter) rotate() {
	rw.file.Close()
	rw.file = nil

	for i := rw.backupCount; i > 0; i-- {
		src := rw.path
		if i > 1 {
			src = fmt.Sprintf("%s.%d", rw.path, i-1)
		}
		dst := fmt.Sprintf("%s.%d", rw.path, i)
		os.Remove(dst)
		os.Rename(src, dst)
	}

	if err := rw.openFile(); err != nil {
		// Write falls back to stderr until the next rotation succeeds.
		fmt.Fprintf(os.Stderr, "config: failed to reopen log file after rotation: %v\n", err)
	}
}

// =============================================================================
// ConfigureLogging
// =============================================================================

// ConfigureLogging builds the process logger from Config: a rotating file
// plus optional stdout, in text or JSON. The logger also becomes the
// charm default so packages falling back to log.Default() share it.
//
// Returns a cleanup function that should be called on shutdown.
func ConfigureLogging(cfg *Config) (*log.Logger, func(), error) {
	var writers []io.Writer
	var closers []io.Closer
	var setupErr error

	if cfg.LogFile != "" {
		rw, err := NewRotatingFileWriter(cfg.LogFile, cfg.LogMaxBytes, cfg.LogBackupCount)
		if err != nil {
			setupErr = fmt.Errorf("config: file logging disabled: %w", err)
		} else {
			writers = append(writers, rw)
			closers = append(closers, rw)
		}
	}
	if cfg.LogToStdout {
		writers = append(writers, os.Stdout)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	var w io.Writer
	if len(writers) == 1 {
		w = writers[0]
	} else {
		w = io.MultiWriter(writers...)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
		Level:           level,
	})
	if cfg.LogFormat == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}
	log.SetDefault(logger)

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	return logger, cleanup, setupErr
}
