package extractor

import (
	"fmt"
	"strings"

	"github.com/iconidentify/vidgrab/internal/domain"
)

// Messages yt-dlp prints when retrying cannot change the outcome.
var (
	signInMarkers = []string{
		"sign in to confirm",
		"login required",
		"use --cookies",
		"requires authentication",
	}
	privateMarkers = []string{
		"private video",
		"video is private",
		"account is private",
		"this content isn't available",
		"members-only content",
	}
)

// classifyError maps an extractor failure onto the domain error kinds.
// stderr is the tool's diagnostic output, which usually carries the reason.
func classifyError(err error, stderr string) error {
	if err == nil {
		return nil
	}

	text := strings.ToLower(err.Error() + "\n" + stderr)
	for _, m := range signInMarkers {
		if strings.Contains(text, m) {
			return fmt.Errorf("%w: %s", domain.ErrSignInRequired, firstErrorLine(stderr, err))
		}
	}
	for _, m := range privateMarkers {
		if strings.Contains(text, m) {
			return fmt.Errorf("%w: %s", domain.ErrPrivateContent, firstErrorLine(stderr, err))
		}
	}

	if line := firstErrorLine(stderr, nil); line != "" {
		return fmt.Errorf("%s: %w", line, err)
	}
	return err
}

// firstErrorLine returns the first "ERROR:" line of stderr, falling back to
// the error text.
func firstErrorLine(stderr string, err error) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
