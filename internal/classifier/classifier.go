// Package classifier validates user-supplied URLs and tags them by platform.
// Classification is pure string inspection; it never touches the network.
package classifier

import (
	"regexp"
	"strings"

	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
)

var (
	// genericURL mirrors the loose "looks like an http(s) URL" check.
	genericURL = regexp.MustCompile(`^https?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

	youtubeURL = regexp.MustCompile(`^https?://(?:(?:www\.|m\.)?youtube\.com/(?:watch\?(?:[^#\s]*&)?v=|shorts/)|youtu\.be/)[A-Za-z0-9_-]{11}(?:[?&#/][^\s]*)?$`)

	instagramURL = regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/(?:p|reel|reels|tv)/[A-Za-z0-9_-]+/?(?:[?#][^\s]*)?$`)
)

// Classification is the outcome of inspecting one input string.
type Classification struct {
	Valid    bool            `json:"valid"`
	Platform domain.Platform `json:"platform"`
	// Empty is set when there is nothing to classify yet.
	Empty bool `json:"empty"`
}

// Err returns the validation error for the classification, or nil.
func (c Classification) Err() error {
	switch {
	case c.Empty:
		return domain.ErrEmptyURL
	case !c.Valid:
		return domain.ErrInvalidURL
	}
	return nil
}

// Classifier validates URLs under a configured mode.
type Classifier struct {
	strict bool
}

// New creates a classifier for the given mode.
func New(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{strict: cfg.Mode != config.ModeGeneric}
}

// Classify inspects input and reports whether it is acceptable.
func (c *Classifier) Classify(input string) Classification {
	url := strings.TrimSpace(input)
	if url == "" {
		return Classification{Empty: true, Platform: domain.PlatformUnknown}
	}

	platform := DetectPlatform(url)
	if c.strict {
		return Classification{
			Valid:    platform != domain.PlatformUnknown,
			Platform: platform,
		}
	}

	return Classification{
		Valid:    genericURL.MatchString(url),
		Platform: platform,
	}
}

// DetectPlatform returns the platform whose URL shape matches url.
func DetectPlatform(url string) domain.Platform {
	switch {
	case youtubeURL.MatchString(url):
		return domain.PlatformYouTube
	case instagramURL.MatchString(url):
		return domain.PlatformInstagram
	default:
		return domain.PlatformUnknown
	}
}
