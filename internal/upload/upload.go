// Package upload pushes comment attachments to blob storage and hands back a
// public URL, which doubles as the attachment's identifier.
package upload

import (
	"context"
	"io"
	"strings"

	"moosedocs/internal/document/model"
)

// Uploader stores a single file and returns the resulting attachment. No
// size or type validation is enforced; the MIME type is only used to pick a
// display icon.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, size int64, r io.Reader) (model.FileAttachment, error)
}

// IconKind classifies a MIME type for display purposes.
func IconKind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case contentType == "application/pdf":
		return "pdf"
	case strings.HasPrefix(contentType, "text/"):
		return "text"
	case contentType == "application/zip", contentType == "application/gzip",
		contentType == "application/x-tar":
		return "archive"
	default:
		return "file"
	}
}
