// Package ffmpeg locates the ffmpeg binary yt-dlp uses for merging streams
// and transcoding audio.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no ffmpeg binary can be located.
var ErrNotFound = errors.New("ffmpeg not found")

// Locator finds ffmpeg, preferring a configured location over PATH.
type Locator struct {
	// Hint is a directory containing ffmpeg or the path of the binary
	// itself. Empty means search PATH only.
	Hint string
}

// NewLocator creates a locator for the given hint.
func NewLocator(hint string) *Locator {
	return &Locator{Hint: hint}
}

// Dir returns the directory named by the hint, or "" when there is none.
func (l *Locator) Dir() string {
	if l.Hint == "" {
		return ""
	}
	info, err := os.Stat(l.Hint)
	if err == nil && !info.IsDir() {
		return filepath.Dir(l.Hint)
	}
	return l.Hint
}

// Locate returns the path of the ffmpeg binary.
func (l *Locator) Locate() (string, error) {
	if dir := l.Dir(); dir != "" {
		if path, err := exec.LookPath(filepath.Join(dir, "ffmpeg")); err == nil {
			return path, nil
		}
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w in PATH: %v", ErrNotFound, err)
	}
	return path, nil
}

// InstallFunc fetches an ffmpeg binary and returns its path.
type InstallFunc func(ctx context.Context) (string, error)

// Ensure returns a locator for hint when ffmpeg can be found there or on
// PATH. Otherwise, when install is non-nil, it installs ffmpeg and returns
// a locator for the installed binary. installed reports whether that
// happened.
func Ensure(ctx context.Context, hint string, install InstallFunc) (l *Locator, installed bool, err error) {
	l = NewLocator(hint)
	if _, err := l.Locate(); err == nil || install == nil {
		return l, false, nil
	}

	path, err := install(ctx)
	if err != nil {
		return l, false, fmt.Errorf("install ffmpeg: %w", err)
	}
	return NewLocator(path), true, nil
}

// Check implements a readiness check: it fails when ffmpeg is missing.
func (l *Locator) Check(_ context.Context) error {
	_, err := l.Locate()
	return err
}

// ExportPath puts the hint directory at the front of PATH so child
// processes such as yt-dlp resolve ffmpeg there. It does nothing without
// a hint.
func (l *Locator) ExportPath() error {
	dir := l.Dir()
	if dir == "" {
		return nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve ffmpeg dir: %w", err)
	}
	path := os.Getenv("PATH")
	for _, p := range filepath.SplitList(path) {
		if p == abs {
			return nil
		}
	}
	if path == "" {
		return os.Setenv("PATH", abs)
	}
	return os.Setenv("PATH", abs+string(os.PathListSeparator)+path)
}

// Version returns the first line of `ffmpeg -version`.
func (l *Locator) Version(ctx context.Context) (string, error) {
	path, err := l.Locate()
	if err != nil {
		return "", err
	}
	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("ffmpeg -version: %w", err)
	}
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		return strings.TrimSpace(lines[0]), nil
	}
	return "unknown", nil
}
