package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

// VideoIDLength is the fixed length of a YouTube video id
const VideoIDLength = 11

var reVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Hosts serving /watch?v=<id>
var watchHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

// Hosts serving /<prefix>/<id>, keyed by host then path prefix
var pathHosts = map[string][]string{
	"youtube.com":              {"/shorts/", "/embed/", "/live/", "/v/"},
	"www.youtube.com":          {"/shorts/", "/embed/", "/live/", "/v/"},
	"m.youtube.com":            {"/shorts/", "/embed/", "/live/", "/v/"},
	"youtube-nocookie.com":     {"/embed/"},
	"www.youtube-nocookie.com": {"/embed/"},
}

const shortHost = "youtu.be"

// IsValidVideoID reports whether id is exactly 11 id-legal characters
func IsValidVideoID(id string) bool {
	return reVideoID.MatchString(id)
}

// ExtractVideoID returns the video id named by raw, or false when raw is not a
// recognized YouTube video link. It never panics and does no I/O.
func ExtractVideoID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if !hasScheme(raw) {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())

	var candidate string
	switch {
	case host == shortHost:
		candidate = pathSegment(u.Path, "/")
	case watchHosts[host] && strings.TrimSuffix(u.Path, "/") == "/watch":
		candidate = u.Query().Get("v")
	default:
		for _, prefix := range pathHosts[host] {
			if strings.HasPrefix(u.Path, prefix) {
				candidate = pathSegment(u.Path, prefix)
				break
			}
		}
	}

	if !IsValidVideoID(candidate) {
		return "", false
	}
	return candidate, true
}

// pathSegment returns the single path segment following prefix, allowing one
// trailing slash. Deeper paths yield "".
func pathSegment(path, prefix string) string {
	rest := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	if strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// hasScheme reports whether raw opens with a URL scheme. A "://" later in the
// string, such as inside a query value, does not count.
func hasScheme(raw string) bool {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return false
	}
	return !strings.ContainsAny(raw[:i], "/?#.")
}
