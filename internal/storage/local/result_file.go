// Package local implements a local filesystem result sink.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// Header is the first line of every newly created result file.
const Header = "id,url,status,timeMs,found,h3_content"

// Config captures the parameters for the result file.
type Config struct {
	// Path is the output file. Parent directories are created as needed.
	Path string `mapstructure:"path" yaml:"path"`
}

// ResultFile appends one CSV line per record. Each record is written with a
// single Write call under a mutex, so lines never interleave.
type ResultFile struct {
	mu      sync.Mutex
	f       *os.File
	path    string
	created bool
	closed  bool
}

// Open opens cfg.Path for appending. The header is written only when the file
// did not exist before; an existing file is resumed as-is.
func Open(cfg Config) (*ResultFile, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create parent directories: %w", err)
		}
	}

	created := true
	f, err := os.OpenFile(cfg.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o600)
	if errors.Is(err, fs.ErrExist) {
		created = false
		f, err = os.OpenFile(cfg.Path, os.O_WRONLY|os.O_APPEND, 0o600)
	}
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	if created {
		if _, err := f.WriteString(Header + "\n"); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return &ResultFile{f: f, path: cfg.Path, created: created}, nil
}

// Path returns the output location.
func (r *ResultFile) Path() string {
	return r.path
}

// Created reports whether Open created the file (and wrote the header).
func (r *ResultFile) Created() bool {
	return r.created
}

// Append writes rec as one line.
func (r *ResultFile) Append(_ context.Context, rec checker.ResultRecord) error {
	line := FormatRecord(rec)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("result file %s is closed", r.path)
	}
	if _, err := r.f.WriteString(line); err != nil {
		return fmt.Errorf("append record %s: %w", rec.ID, err)
	}
	return nil
}

// Close flushes and closes the file. It is safe to call more than once.
func (r *ResultFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.f.Sync(); err != nil {
		_ = r.f.Close()
		return fmt.Errorf("sync output file: %w", err)
	}
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

// FormatRecord renders rec as a newline-terminated CSV line. Text fields are
// quoted with embedded quotes doubled and line breaks flattened to spaces;
// status and timeMs are bare numbers, or "" when absent.
func FormatRecord(rec checker.ResultRecord) string {
	var b strings.Builder
	b.WriteString(quote(rec.ID))
	b.WriteByte(',')
	b.WriteString(quote(rec.URL))
	b.WriteByte(',')
	if rec.StatusCode != nil {
		b.WriteString(strconv.Itoa(*rec.StatusCode))
	} else {
		b.WriteString(`""`)
	}
	b.WriteByte(',')
	if rec.ElapsedMs != nil {
		b.WriteString(strconv.FormatInt(*rec.ElapsedMs, 10))
	} else {
		b.WriteString(`""`)
	}
	b.WriteByte(',')
	b.WriteString(quote(string(rec.Label)))
	b.WriteByte(',')
	b.WriteString(quote(rec.Detail))
	b.WriteByte('\n')
	return b.String()
}

var fieldReplacer = strings.NewReplacer(`"`, `""`, "\r\n", " ", "\r", " ", "\n", " ")

func quote(s string) string {
	return `"` + fieldReplacer.Replace(s) + `"`
}
