// Package extractor is the narrow boundary to yt-dlp. Everything that
// resolves page structure into streams, muxes or transcodes lives behind it.
package extractor

import (
	"context"

	"github.com/iconidentify/vidgrab/internal/domain"
)

// Extractor lists and fetches media for a URL.
type Extractor interface {
	// Probe resolves metadata and the available formats without downloading.
	Probe(ctx context.Context, url string, opts Options) (*domain.Metadata, error)

	// Fetch downloads (and post-processes) the media selected by opts.
	// progress may be nil. The returned Metadata.Filename is the
	// extractor's output path before post-processing renamed it.
	Fetch(ctx context.Context, url string, opts Options, progress func(domain.ProgressUpdate)) (*domain.Metadata, error)
}
