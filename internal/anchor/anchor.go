// Package anchor implements the textual comment anchors: a comment is tied to
// the selected text plus the offset of its first occurrence in the serialized
// HTML. Markers are re-located by substring search at render time, so a
// marker can attach to the wrong occurrence after the document is edited.
// That fragility is inherent to the data model and deliberately preserved.
package anchor

import (
	"errors"
	"strings"

	"moosedocs/internal/document/model"
)

var ErrInvalidRange = errors.New("selection out of range")

// Capture records the selection [start, end) as an anchor. The stored offsets
// point at the first occurrence of the selected text, which may differ from
// the selection itself when the text repeats.
func Capture(content string, start, end int) (model.Position, error) {
	if start < 0 || end > len(content) || start >= end {
		return model.Position{}, ErrInvalidRange
	}
	text := content[start:end]
	first := strings.Index(content, text)
	return model.Position{
		StartOffset: first,
		EndOffset:   first + len(text),
		Text:        text,
	}, nil
}

// Locate re-finds the anchored text in the current content. It reports false
// when the text no longer occurs, which happens after edits remove it.
func Locate(content string, pos model.Position) (start, end int, ok bool) {
	if pos.Text == "" {
		return 0, 0, false
	}
	idx := strings.Index(content, pos.Text)
	if idx < 0 {
		return 0, 0, false
	}
	return idx, idx + len(pos.Text), true
}

// Marker is an overlay span for one comment, positioned against the current
// content.
type Marker struct {
	CommentID string `json:"comment_id"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Resolved  bool   `json:"resolved"`
}

// Markers computes the overlay spans for a document's comments. Comments
// whose anchor text no longer occurs are skipped.
func Markers(content string, comments []model.Comment) []Marker {
	markers := []Marker{}
	for _, c := range comments {
		start, end, ok := Locate(content, c.Position)
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			CommentID: c.ID,
			Start:     start,
			End:       end,
			Resolved:  c.Resolved,
		})
	}
	return markers
}
