// Package catalog turns the extractor's raw stream list into the short,
// de-duplicated format menu shown to the user.
package catalog

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
)

// AudioLabel is the display label of the best-audio entry.
const AudioLabel = "Audio Only (MP3)"

// BuildOptions are the menu toggles that varied between releases.
type BuildOptions struct {
	FPSMinHeight      int
	ExcludeMuxedAudio bool
	ShowFileSize      bool
	DedupeByContainer bool
	MaxHeight         int
}

// OptionsFromConfig maps catalog configuration onto build options.
func OptionsFromConfig(cfg config.CatalogConfig) BuildOptions {
	return BuildOptions{
		FPSMinHeight:      cfg.FPSMinHeight,
		ExcludeMuxedAudio: cfg.ExcludeMuxedAudio,
		ShowFileSize:      cfg.ShowFileSize,
		DedupeByContainer: cfg.DedupeByContainer,
		MaxHeight:         cfg.MaxHeight,
	}
}

type dedupKey struct {
	height int
	fps    float64
	ext    string
}

// Build produces the ordered menu: video entries highest quality first,
// then at most one best-audio entry. The input slice is not modified.
func Build(raw []domain.RawFormat, opts BuildOptions) []domain.FormatDescriptor {
	var video, audio []domain.RawFormat
	for _, f := range raw {
		if f.HasVideo() {
			if opts.MaxHeight <= 0 || f.Height <= opts.MaxHeight {
				video = append(video, f)
			}
		}
		if f.HasAudio() && !(opts.ExcludeMuxedAudio && f.HasVideo()) {
			audio = append(audio, f)
		}
	}

	sort.SliceStable(video, func(i, j int) bool {
		a, b := video[i], video[j]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.FPS != b.FPS {
			return a.FPS > b.FPS
		}
		if opts.ShowFileSize {
			return a.Size() > b.Size()
		}
		return false
	})

	formats := make([]domain.FormatDescriptor, 0, len(video)+1)
	seen := make(map[dedupKey]struct{}, len(video))
	for _, f := range video {
		key := dedupKey{height: f.Height, fps: f.FPS}
		if opts.DedupeByContainer {
			key.ext = f.Ext
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		formats = append(formats, domain.FormatDescriptor{
			ID:    f.FormatID,
			Label: videoLabel(f, opts),
		})
	}

	if len(audio) > 0 {
		label := AudioLabel
		if opts.ShowFileSize {
			var largest int64
			for _, f := range audio {
				if s := f.Size(); s > largest {
					largest = s
				}
			}
			if largest > 0 {
				label += " - " + FormatFilesize(largest)
			}
		}
		formats = append(formats, domain.FormatDescriptor{
			ID:    domain.AudioFormatID,
			Label: label,
		})
	}

	return formats
}

func videoLabel(f domain.RawFormat, opts BuildOptions) string {
	label := fmt.Sprintf("%dp", f.Height)
	if opts.FPSMinHeight <= 0 || f.Height >= opts.FPSMinHeight {
		label += " - " + formatFPS(f.FPS) + "fps"
	}
	label += " - " + f.Ext
	if opts.ShowFileSize {
		if size := f.Size(); size > 0 {
			label += " - " + FormatFilesize(size)
		}
	}
	return label
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatFilesize renders a byte count with one decimal place, dividing by
// 1024 per unit step up to TB.
func FormatFilesize(bytes int64) string {
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}
