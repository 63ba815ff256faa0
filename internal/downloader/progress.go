package downloader

import (
	"fmt"

	"github.com/iconidentify/vidgrab/internal/domain"
)

const bytesPerMB = 1024 * 1024

// MapProgress turns a raw extractor update into a display snapshot.
// ok is false when there is nothing to show, e.g. an unknown total.
func MapProgress(u domain.ProgressUpdate) (p domain.Progress, ok bool) {
	switch u.State {
	case domain.ProgressDownloading:
		if u.BytesTotal <= 0 {
			return domain.Progress{}, false
		}
		fraction := float64(u.BytesDone) / float64(u.BytesTotal)
		if fraction > 1 {
			fraction = 1
		}
		return domain.Progress{
			State:      u.State,
			BytesDone:  u.BytesDone,
			BytesTotal: u.BytesTotal,
			Fraction:   fraction,
			Text: fmt.Sprintf("Downloaded: %.1fMB / %.1fMB",
				float64(u.BytesDone)/bytesPerMB, float64(u.BytesTotal)/bytesPerMB),
		}, true

	case domain.ProgressFinished:
		return domain.Progress{
			State:      u.State,
			BytesDone:  u.BytesDone,
			BytesTotal: u.BytesTotal,
			Fraction:   1.0,
			Text:       "Download completed. Processing...",
		}, true
	}
	return domain.Progress{}, false
}
