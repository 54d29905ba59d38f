package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsYouTubeURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"standard watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", true},
		{"no scheme", "www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"http scheme", "http://youtu.be/dQw4w9WgXcQ", true},
		{"other host", "https://vimeo.com/12345", false},
		{"bare host", "https://www.youtube.com/", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsYouTubeURL(tt.url))
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch url bare host", "https://youtube.com/watch?v=abc123", "abc123", true},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"v url", "https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed with trailing segment", "https://www.youtube.com/embed/abc/extra", "abc", true},
		{"watch without v param", "https://www.youtube.com/watch?t=10", "", false},
		{"unrelated path", "https://www.youtube.com/feed/trending", "", false},
		{"other host", "https://vimeo.com/12345", "", false},
		{"empty short url", "https://youtu.be/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractVideoID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
