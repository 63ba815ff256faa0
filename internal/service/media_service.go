package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/vidgrab/internal/classifier"
	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
	"github.com/iconidentify/vidgrab/internal/downloader"
	"github.com/iconidentify/vidgrab/internal/repository"
	"github.com/iconidentify/vidgrab/internal/retry"
)

const eventSource = "MediaService"

// FormatLister discovers the format menu for a URL.
type FormatLister interface {
	ListFormats(ctx context.Context, url string, platform domain.Platform, onRetry retry.NotifyFunc) (*domain.Catalog, error)
}

// MediaDownloader fetches one format of a URL.
type MediaDownloader interface {
	Download(ctx context.Context, req downloader.Request) (*domain.DownloadResult, error)
}

// MediaService runs the classify, list, download and deliver flow.
type MediaService struct {
	classifier *classifier.Classifier
	catalog    FormatLister
	downloader MediaDownloader
	deliveries repository.DeliveryRepository
	events     domain.EventEmitter
	cfg        config.DownloadConfig
	logger     *slog.Logger

	probes    atomic.Int64
	downloads atomic.Int64
	failures  atomic.Int64
}

// NewMediaService creates a media service.
func NewMediaService(
	cls *classifier.Classifier,
	catalog FormatLister,
	dl MediaDownloader,
	deliveries repository.DeliveryRepository,
	events domain.EventEmitter,
	cfg config.DownloadConfig,
	logger *slog.Logger,
) *MediaService {
	return &MediaService{
		classifier: cls,
		catalog:    catalog,
		downloader: dl,
		deliveries: deliveries,
		events:     events,
		cfg:        cfg,
		logger:     logger,
	}
}

// Ticket identifies a finished download waiting to be collected.
type Ticket struct {
	Token    string `json:"token"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// DownloadRequest is a download submitted by a user.
type DownloadRequest struct {
	URL      string
	FormatID string
	Progress domain.ProgressFunc
	OnRetry  retry.NotifyFunc
}

// Classify inspects user input without touching the network.
func (s *MediaService) Classify(input string) classifier.Classification {
	return s.classifier.Classify(input)
}

func (s *MediaService) validate(input string) (classifier.Classification, error) {
	c := s.classifier.Classify(input)
	return c, c.Err()
}

func trimmed(input string) string {
	return strings.TrimSpace(input)
}

// ListFormats validates input and returns its format menu.
func (s *MediaService) ListFormats(ctx context.Context, input string, onRetry retry.NotifyFunc) (*domain.Catalog, error) {
	c, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	url := trimmed(input)
	s.probes.Add(1)

	notify := func(attempt, maxAttempts int, err error, delay time.Duration) {
		s.events.EmitWarning(domain.EventCategoryProbe, eventSource,
			fmt.Sprintf("Attempt %d failed. Retrying in %s...", attempt, delay),
			domain.EventMetadata{"url": url, "attempt": attempt, "max_attempts": maxAttempts, "error": err.Error()})
		if onRetry != nil {
			onRetry(attempt, maxAttempts, err, delay)
		}
	}

	cat, err := s.catalog.ListFormats(ctx, url, c.Platform, notify)
	if err != nil {
		s.failures.Add(1)
		s.events.EmitError(domain.EventCategoryProbe, eventSource,
			fmt.Sprintf("Error fetching video information: %v", err),
			domain.EventMetadata{"url": url, "platform": c.Platform.String()})
		return nil, err
	}

	s.events.EmitInfo(domain.EventCategoryProbe, eventSource,
		fmt.Sprintf("Found %d formats for %q", len(cat.Formats), cat.Title),
		domain.EventMetadata{"url": url, "platform": c.Platform.String(), "formats": len(cat.Formats)})
	return cat, nil
}

// Download validates input, fetches the chosen format and parks the result
// in the delivery store. The returned ticket's token collects it once.
func (s *MediaService) Download(ctx context.Context, req DownloadRequest) (*Ticket, error) {
	c, err := s.validate(req.URL)
	if err != nil {
		return nil, err
	}
	if req.FormatID == "" {
		return nil, domain.ErrFormatRequired
	}
	url := trimmed(req.URL)
	s.downloads.Add(1)

	meta := domain.EventMetadata{"url": url, "format_id": req.FormatID, "platform": c.Platform.String()}
	s.events.EmitInfo(domain.EventCategoryDownload, eventSource, "Download started", meta)

	notify := func(attempt, maxAttempts int, err error, delay time.Duration) {
		s.events.EmitWarning(domain.EventCategoryDownload, eventSource,
			fmt.Sprintf("Download attempt %d failed. Retrying in %s...", attempt, delay),
			domain.EventMetadata{"url": url, "attempt": attempt, "max_attempts": maxAttempts, "error": err.Error()})
		if req.OnRetry != nil {
			req.OnRetry(attempt, maxAttempts, err, delay)
		}
	}

	result, err := s.downloader.Download(ctx, downloader.Request{
		URL:      url,
		Platform: c.Platform,
		FormatID: req.FormatID,
		Progress: req.Progress,
		OnRetry:  notify,
	})
	if err != nil {
		s.failures.Add(1)
		s.events.EmitError(domain.EventCategoryDownload, eventSource,
			fmt.Sprintf("Error during download: %v", err), meta)
		return nil, err
	}

	token, err := s.deliveries.Put(ctx, result)
	if err != nil {
		s.failures.Add(1)
		return nil, fmt.Errorf("store download: %w", err)
	}

	s.events.EmitSuccess(domain.EventCategoryDownload, eventSource,
		fmt.Sprintf("Downloaded %s (%s)", result.Filename, humanize.IBytes(uint64(result.Size()))),
		domain.EventMetadata{"url": url, "format_id": req.FormatID, "filename": result.Filename, "size": result.Size()})

	return &Ticket{
		Token:    token,
		Filename: result.Filename,
		Size:     result.Size(),
	}, nil
}

// Collect returns the download stored under token and forgets it.
func (s *MediaService) Collect(ctx context.Context, token string) (*domain.DownloadResult, error) {
	result, err := s.deliveries.Take(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrDeliveryNotFound) {
			s.logger.Error("delivery lookup failed", "error", err)
		}
		return nil, err
	}

	s.events.EmitInfo(domain.EventCategoryDelivery, eventSource,
		fmt.Sprintf("Delivered %s", result.Filename),
		domain.EventMetadata{"filename": result.Filename, "size": result.Size()})
	return result, nil
}

// MediaStats summarizes service activity.
type MediaStats struct {
	Probes        int64  `json:"probes"`
	Downloads     int64  `json:"downloads"`
	Failures      int64  `json:"failures"`
	PendingFiles  int    `json:"pending_files"`
	PendingBytes  int64  `json:"pending_bytes"`
	TempDir       string `json:"temp_dir"`
	TempFreeBytes int64  `json:"temp_free_bytes"`
	TempFree      string `json:"temp_free"`
}

// Stats returns activity counters and scratch space information.
func (s *MediaService) Stats(ctx context.Context) (*MediaStats, error) {
	pending, err := s.deliveries.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("delivery stats: %w", err)
	}

	tmp := s.cfg.TempDir
	if tmp == "" {
		tmp = os.TempDir()
	}
	free := freeDiskSpace(tmp)

	return &MediaStats{
		Probes:        s.probes.Load(),
		Downloads:     s.downloads.Load(),
		Failures:      s.failures.Load(),
		PendingFiles:  pending.Pending,
		PendingBytes:  pending.Bytes,
		TempDir:       tmp,
		TempFreeBytes: free,
		TempFree:      humanize.IBytes(uint64(free)),
	}, nil
}
