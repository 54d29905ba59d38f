// Package validate checks intake URLs and extracts YouTube video ids.
package validate

import (
	"net/url"
	"regexp"
	"strings"
)

var youtubeURLPattern = regexp.MustCompile(`^(https?://)?(www\.youtube\.com|youtu\.be)/.+$`)

// IsYouTubeURL reports whether raw looks like a YouTube video URL
func IsYouTubeURL(raw string) bool {
	return youtubeURLPattern.MatchString(raw)
}

// ExtractVideoID pulls the video id out of the supported URL forms:
// youtu.be/<id>, youtube.com/watch?v=<id>, /embed/<id> and /v/<id>.
func ExtractVideoID(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := parsed.Hostname()
	switch host {
	case "youtu.be":
		id := strings.TrimPrefix(parsed.Path, "/")
		return id, id != ""
	case "www.youtube.com", "youtube.com":
		if parsed.Path == "/watch" {
			id := parsed.Query().Get("v")
			return id, id != ""
		}
		for _, prefix := range []string{"/embed/", "/v/"} {
			if strings.HasPrefix(parsed.Path, prefix) {
				rest := strings.TrimPrefix(parsed.Path, prefix)
				id := strings.SplitN(rest, "/", 2)[0]
				return id, id != ""
			}
		}
	}

	return "", false
}
