package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIconKind(t *testing.T) {
	cases := map[string]string{
		"image/png":       "image",
		"image/jpeg":      "image",
		"video/mp4":       "video",
		"audio/mpeg":      "audio",
		"application/pdf": "pdf",
		"text/plain":      "text",
		"application/zip": "archive",
		"application/octet-stream": "file",
		"": "file",
	}
	for contentType, want := range cases {
		assert.Equal(t, want, IconKind(contentType), contentType)
	}
}
