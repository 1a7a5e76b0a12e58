package youtube

import (
	"strings"
)

const (
	// DefaultThumbnailBaseURL is the public thumbnail host
	DefaultThumbnailBaseURL = "https://img.youtube.com"

	// ThumbnailVariant is the 480x360 thumbnail every public video has
	ThumbnailVariant = "hqdefault.jpg"

	// PlaylistBaseURL builds an anonymous playlist from a list of ids
	PlaylistBaseURL = "https://www.youtube.com/watch_videos?video_ids="
)

// ThumbnailURL returns the thumbnail address for id under baseURL
func ThumbnailURL(baseURL, id string) string {
	if baseURL == "" {
		baseURL = DefaultThumbnailBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/vi/" + id + "/" + ThumbnailVariant
}

// PlaylistURL joins ids, in order and with duplicates kept, into a watch_videos
// link. It reports false when fewer than minIDs ids are given.
func PlaylistURL(ids []string, minIDs int) (string, bool) {
	if len(ids) == 0 || len(ids) < minIDs {
		return "", false
	}
	return PlaylistBaseURL + strings.Join(ids, ","), true
}

// ExtractVideoIDs runs ExtractVideoID over inputs and keeps the valid ids in order
func ExtractVideoIDs(inputs []string) []string {
	ids := make([]string, 0, len(inputs))
	for _, raw := range inputs {
		if id, ok := ExtractVideoID(raw); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
