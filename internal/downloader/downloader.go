// Package downloader runs a chosen format through the extractor into a
// scratch directory and hands back the finished file's bytes.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
	"github.com/iconidentify/vidgrab/internal/extractor"
	"github.com/iconidentify/vidgrab/internal/retry"
)

const (
	// fallbackName is used when sanitizing leaves nothing of the title.
	fallbackName = "download"
	// scratchPattern names per-download scratch directories.
	scratchPattern = "vidgrab-*"
)

// Request describes one download.
type Request struct {
	URL      string
	Platform domain.Platform
	FormatID string
	// Progress and OnRetry are optional.
	Progress domain.ProgressFunc
	OnRetry  retry.NotifyFunc
}

// Downloader fetches media through an extractor.
type Downloader struct {
	extractor extractor.Extractor
	profile   *extractor.Profile
	policy    retry.Policy
	cfg       config.DownloadConfig
	logger    *slog.Logger
}

// New creates a downloader.
func New(
	ex extractor.Extractor,
	profile *extractor.Profile,
	cfg config.DownloadConfig,
	retryCfg config.RetryConfig,
	logger *slog.Logger,
) *Downloader {
	return &Downloader{
		extractor: ex,
		profile:   profile,
		policy:    retry.FromConfig(retryCfg, isPermanent),
		cfg:       cfg,
		logger:    logger,
	}
}

func isPermanent(err error) bool {
	return domain.IsRestricted(err) || errors.Is(err, domain.ErrFileTooLarge)
}

// Download fetches req.FormatID and returns the sanitized file name and
// content. The scratch directory is removed before returning, on success
// and on failure.
func (d *Downloader) Download(ctx context.Context, req Request) (*domain.DownloadResult, error) {
	if err := os.MkdirAll(d.tempRoot(), 0755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}
	tmpDir, err := os.MkdirTemp(d.tempRoot(), scratchPattern)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			d.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	notify := func(attempt, maxAttempts int, err error, delay time.Duration) {
		d.logger.Warn("download attempt failed, retrying",
			"url", req.URL,
			"format_id", req.FormatID,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
			"delay", delay,
		)
		if req.OnRetry != nil {
			req.OnRetry(attempt, maxAttempts, err, delay)
		}
	}

	start := time.Now()
	result, err := retry.Do(ctx, d.policy, notify, func(attempt int) (*domain.DownloadResult, error) {
		return d.attempt(ctx, req, tmpDir)
	})
	if err != nil {
		return nil, domain.NewMediaError(req.URL, "download", err)
	}

	d.logger.Info("download complete",
		"url", req.URL,
		"format_id", req.FormatID,
		"filename", result.Filename,
		"size", humanize.IBytes(uint64(result.Size())),
		"duration", time.Since(start),
	)
	return result, nil
}

// CleanStale removes scratch directories older than maxAge, left behind
// when the process died mid-download. It returns how many it removed.
func (d *Downloader) CleanStale(ctx context.Context, maxAge time.Duration) (int, error) {
	root := d.tempRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read temp root: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(scratchPattern, e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			d.logger.Warn("failed to remove stale temp dir", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		d.logger.Info("removed stale temp dirs", "count", removed, "root", root)
	}
	return removed, nil
}

func (d *Downloader) tempRoot() string {
	if d.cfg.TempDir != "" {
		return d.cfg.TempDir
	}
	return os.TempDir()
}

func (d *Downloader) attempt(ctx context.Context, req Request, tmpDir string) (*domain.DownloadResult, error) {
	opts := d.profile.Download(req.Platform, req.FormatID, tmpDir, d.cfg.AudioBitrate)

	var onUpdate func(domain.ProgressUpdate)
	if req.Progress != nil {
		onUpdate = func(u domain.ProgressUpdate) {
			if p, ok := MapProgress(u); ok {
				req.Progress(p)
			}
		}
	}

	md, err := d.extractor.Fetch(ctx, req.URL, opts, onUpdate)
	if err != nil {
		return nil, err
	}
	if md == nil || md.Filename == "" {
		return nil, domain.ErrNoMetadata
	}

	path := md.Filename
	audio := req.FormatID == domain.AudioFormatID
	if audio {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".mp3"
	}

	path, err = locateOutput(path, !audio)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOutputMissing, filepath.Base(path))
	}
	if d.cfg.MaxFileSize > 0 && info.Size() > d.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s > %s", domain.ErrFileTooLarge,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(d.cfg.MaxFileSize)))
	}

	ext := filepath.Ext(path)
	name := Sanitize(filepath.Base(path))
	if name == "" || name == ext || strings.HasPrefix(name, ".") {
		name = fallbackName + ext
	}

	final := filepath.Join(tmpDir, name)
	if final != path {
		if err := os.Rename(path, final); err != nil {
			return nil, fmt.Errorf("rename output: %w", err)
		}
	}

	content, err := os.ReadFile(final)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	return &domain.DownloadResult{Filename: name, Content: content}, nil
}

// locateOutput returns path when it exists. With anyExt it also accepts a
// finished file with the same stem, since merging can change the container.
func locateOutput(path string, anyExt bool) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if !anyExt {
		return "", fmt.Errorf("%w: %s", domain.ErrOutputMissing, filepath.Base(path))
	}

	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, e := range entries {
			name := e.Name()
			if !e.Type().IsRegular() || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
				continue
			}
			if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
				return filepath.Join(dir, name), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrOutputMissing, filepath.Base(path))
}
