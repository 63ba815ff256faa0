package domain

// Platform identifies the site a URL belongs to.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformUnknown   Platform = "unknown"
)

// String returns the string representation of the Platform.
func (p Platform) String() string {
	return string(p)
}

// AudioFormatID is the catalog id that asks for the best audio stream,
// transcoded to MP3. It is never a raw extractor format id.
const AudioFormatID = "bestaudio/best"

// codecNone is what the extractor reports for an absent stream.
const codecNone = "none"

// RawFormat is one stream descriptor as reported by the extractor.
type RawFormat struct {
	FormatID       string
	Ext            string
	VCodec         string
	ACodec         string
	Height         int
	FPS            float64
	Filesize       int64
	FilesizeApprox int64
}

// HasVideo reports whether the format carries a video stream.
func (f RawFormat) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != codecNone
}

// HasAudio reports whether the format carries an audio stream.
func (f RawFormat) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != codecNone
}

// Size returns the exact size when known, otherwise the estimate (or 0).
func (f RawFormat) Size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

// Metadata is what the extractor returns for a probe or a fetch.
type Metadata struct {
	Title   string
	Formats []RawFormat
	// Filename is the path the extractor wrote to, before any
	// post-processing changed the extension. Empty for probes.
	Filename string
}

// FormatDescriptor is one selectable entry in a catalog.
type FormatDescriptor struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// IsAudio reports whether the descriptor is the best-audio sentinel.
func (d FormatDescriptor) IsAudio() bool {
	return d.ID == AudioFormatID
}

// Catalog is the ordered format menu for one URL.
type Catalog struct {
	Title   string             `json:"title"`
	Formats []FormatDescriptor `json:"formats"`
}

// Label returns the label of the format with the given id.
func (c *Catalog) Label(id string) (string, bool) {
	for _, f := range c.Formats {
		if f.ID == id {
			return f.Label, true
		}
	}
	return "", false
}

// DownloadResult is a finished download held in memory for delivery.
type DownloadResult struct {
	Filename string
	Content  []byte
}

// Size returns the content length in bytes.
func (r *DownloadResult) Size() int {
	return len(r.Content)
}
