package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
	"github.com/iconidentify/vidgrab/internal/downloader"
	"github.com/iconidentify/vidgrab/internal/extractor"
	"github.com/iconidentify/vidgrab/internal/retry"
)

// Service discovers the formats available for a URL.
type Service struct {
	extractor extractor.Extractor
	profile   *extractor.Profile
	policy    retry.Policy
	opts      BuildOptions
	logger    *slog.Logger
}

// NewService creates a catalog service.
func NewService(
	ex extractor.Extractor,
	profile *extractor.Profile,
	catalogCfg config.CatalogConfig,
	retryCfg config.RetryConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		extractor: ex,
		profile:   profile,
		policy:    retry.FromConfig(retryCfg, domain.IsRestricted),
		opts:      OptionsFromConfig(catalogCfg),
		logger:    logger,
	}
}

// ListFormats probes url and returns its format menu. Transient failures
// and empty results are retried; sign-in and privacy failures are not.
// onRetry may be nil.
func (s *Service) ListFormats(ctx context.Context, url string, platform domain.Platform, onRetry retry.NotifyFunc) (*domain.Catalog, error) {
	notify := func(attempt, maxAttempts int, err error, delay time.Duration) {
		s.logger.Warn("format discovery failed, retrying",
			"url", url,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
			"delay", delay,
		)
		if onRetry != nil {
			onRetry(attempt, maxAttempts, err, delay)
		}
	}

	cat, err := retry.Do(ctx, s.policy, notify, func(attempt int) (*domain.Catalog, error) {
		md, err := s.extractor.Probe(ctx, url, s.profile.Probe(platform))
		if err != nil {
			return nil, err
		}
		if md == nil {
			return nil, domain.ErrNoMetadata
		}
		if len(md.Formats) == 0 {
			return nil, domain.ErrNoFormats
		}

		formats := Build(md.Formats, s.opts)
		if len(formats) == 0 {
			return nil, domain.ErrNoFormats
		}
		return &domain.Catalog{Title: downloader.Sanitize(md.Title), Formats: formats}, nil
	})
	if err != nil {
		return nil, domain.NewMediaError(url, "list formats", err)
	}

	s.logger.Info("formats listed",
		"url", url,
		"platform", platform,
		"title", cat.Title,
		"formats", len(cat.Formats),
	)
	return cat, nil
}
