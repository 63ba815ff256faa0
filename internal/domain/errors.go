package domain

import "errors"

// Domain errors.
var (
	// ErrEmptyURL is returned when no URL has been entered yet.
	ErrEmptyURL = errors.New("no URL provided")

	// ErrInvalidURL is returned when the input does not look like a supported URL.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrSignInRequired is returned when the site demands a signed-in session
	// (including "confirm you're not a bot" checks). Retrying cannot help.
	ErrSignInRequired = errors.New("sign-in required")

	// ErrPrivateContent is returned when the media is private or restricted.
	ErrPrivateContent = errors.New("content is private or restricted")

	// ErrFormatRequired is returned when a download names no format.
	ErrFormatRequired = errors.New("no format selected")

	// ErrNoMetadata is returned when the extractor produced no result.
	ErrNoMetadata = errors.New("unable to extract video information")

	// ErrNoFormats is returned when the extractor listed no usable formats.
	ErrNoFormats = errors.New("no suitable formats found")

	// ErrOutputMissing is returned when the extractor reported success but
	// the expected output file does not exist.
	ErrOutputMissing = errors.New("downloaded file not found")

	// ErrFileTooLarge is returned when a finished download exceeds the
	// configured size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrDeliveryNotFound is returned when a download token is unknown,
	// already consumed, or expired.
	ErrDeliveryNotFound = errors.New("download not found or expired")

	// ErrRateLimited is returned when a client exceeds the request rate.
	ErrRateLimited = errors.New("rate limited")
)

// IsRestricted reports whether err is one of the authorization failures
// that must not be retried.
func IsRestricted(err error) bool {
	return errors.Is(err, ErrSignInRequired) || errors.Is(err, ErrPrivateContent)
}

// MediaError wraps an error with the URL and operation it belongs to.
type MediaError struct {
	URL string
	Op  string
	Err error
}

func (e *MediaError) Error() string {
	if e.URL != "" {
		return e.Op + " [" + e.URL + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewMediaError creates a new MediaError.
func NewMediaError(url, op string, err error) *MediaError {
	return &MediaError{
		URL: url,
		Op:  op,
		Err: err,
	}
}
