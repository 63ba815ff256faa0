package extractor

import (
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
)

// defaultUserAgents is the fixed pool a request's user agent is drawn from.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:90.0) Gecko/20100101 Firefox/90.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36",
}

// DefaultUserAgents returns a copy of the built-in user agent pool.
func DefaultUserAgents() []string {
	return append([]string(nil), defaultUserAgents...)
}

// OutputTemplate is the file name template, relative to the output dir.
const OutputTemplate = "%(title)s.%(ext)s"

// Options is one extractor invocation's configuration. It is built fresh
// for every attempt and never mutated afterwards.
type Options struct {
	Format              string
	OutputTemplate      string
	UserAgent           string
	SocketTimeout       time.Duration
	NoCheckCertificates bool
	Quiet               bool
	// PlayerClients and SkipManifests become YouTube extractor args.
	PlayerClients []string
	SkipManifests []string
	ExtractAudio  bool
	AudioFormat   string
	// AudioQuality is the target bitrate, e.g. "192K".
	AudioQuality string
}

// ExtractorArgs renders the YouTube hints in yt-dlp's
// "IE_KEY:key=v1,v2;key=v" syntax.
func (o Options) ExtractorArgs() string {
	var parts []string
	if len(o.PlayerClients) > 0 {
		parts = append(parts, "player_client="+strings.Join(o.PlayerClients, ","))
	}
	if len(o.SkipManifests) > 0 {
		parts = append(parts, "skip="+strings.Join(o.SkipManifests, ","))
	}
	if len(parts) == 0 {
		return ""
	}
	return "youtube:" + strings.Join(parts, ";")
}

// Profile builds per-platform options from configuration.
type Profile struct {
	cfg    config.ExtractorConfig
	agents []string
	pick   func(n int) int
}

// NewProfile creates a profile. An empty user agent list in cfg falls back
// to the built-in pool.
func NewProfile(cfg config.ExtractorConfig) *Profile {
	agents := cfg.UserAgents
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &Profile{
		cfg:    cfg,
		agents: append([]string(nil), agents...),
		pick:   rand.IntN,
	}
}

// UserAgent draws one agent uniformly from the pool.
func (p *Profile) UserAgent() string {
	return p.agents[p.pick(len(p.agents))]
}

func (p *Profile) base(platform domain.Platform) Options {
	opts := Options{
		UserAgent:           p.UserAgent(),
		SocketTimeout:       p.cfg.SocketTimeout,
		NoCheckCertificates: true,
	}
	switch platform {
	case domain.PlatformYouTube:
		opts.PlayerClients = append([]string(nil), p.cfg.PlayerClients...)
		opts.SkipManifests = append([]string(nil), p.cfg.SkipManifests...)
	case domain.PlatformInstagram:
		// Instagram rarely exposes granular variants.
		opts.Format = "best"
	}
	return opts
}

// Probe returns options for a metadata-only query.
func (p *Profile) Probe(platform domain.Platform) Options {
	opts := p.base(platform)
	opts.Quiet = true
	return opts
}

// Download returns options for fetching formatID into outputDir.
// The audio sentinel selects best audio transcoded to MP3 at bitrate kbps;
// any other id is combined with the best available audio stream.
func (p *Profile) Download(platform domain.Platform, formatID, outputDir string, bitrate int) Options {
	opts := p.base(platform)
	opts.OutputTemplate = filepath.Join(outputDir, OutputTemplate)

	if formatID == domain.AudioFormatID {
		opts.Format = domain.AudioFormatID
		opts.ExtractAudio = true
		opts.AudioFormat = "mp3"
		opts.AudioQuality = strconv.Itoa(bitrate) + "K"
		return opts
	}

	opts.Format = formatID + "+bestaudio/best"
	return opts
}
