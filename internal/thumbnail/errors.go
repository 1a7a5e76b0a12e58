package thumbnail

import "errors"

// Thumbnail fetch errors
var (
	// ErrThumbnailUnavailable indicates the image host answered but the thumbnail is missing or broken
	ErrThumbnailUnavailable = errors.New("thumbnail unavailable")

	// ErrThumbnailTooLarge indicates the response body exceeded the configured size limit
	ErrThumbnailTooLarge = errors.New("thumbnail exceeds size limit")

	// ErrHostUnavailable indicates the breaker is open after repeated transport failures
	ErrHostUnavailable = errors.New("thumbnail host unavailable")
)

// IsUnavailable checks if the error means the thumbnail itself could not be used
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrThumbnailUnavailable) || errors.Is(err, ErrThumbnailTooLarge)
}

// IsHostUnavailable checks if the error is a fast failure from an open breaker
func IsHostUnavailable(err error) bool {
	return errors.Is(err, ErrHostUnavailable)
}
