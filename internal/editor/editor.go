// Package editor models the content-editable surface: a working HTML blob,
// execCommand-style formatting applied to the current selection, and a
// debounced auto-save into the document store.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"moosedocs/pkg/logger"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoSelection    = errors.New("nothing selected")
)

const defaultDebounce = time.Second

// Saver receives the auto-saved content. The document store satisfies it.
type Saver interface {
	UpdateContent(ctx context.Context, id, content string) error
}

type Surface struct {
	mu        sync.Mutex
	saver     Saver
	docID     string
	content   string
	lastSaved string
	selStart  int
	selEnd    int
	debounce  time.Duration
	timer     *time.Timer
	policy    *bluemonday.Policy
}

// NewSurface binds an editing surface to a document. The initial content is
// treated as already saved.
func NewSurface(saver Saver, docID, content string) *Surface {
	return &Surface{
		saver:     saver,
		docID:     docID,
		content:   content,
		lastSaved: sanitizePolicy().Sanitize(content),
		debounce:  defaultDebounce,
		policy:    sanitizePolicy(),
	}
}

// The UGC policy plus the style-bearing tags the formatting commands emit.
func sanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").OnElements("span", "div", "p", "h1", "h2", "h3", "li", "img")
	p.AllowStyles("font-family", "font-size", "color", "background-color", "text-align").Globally()
	return p
}

// SetDebounce overrides the auto-save inactivity window.
func (s *Surface) SetDebounce(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

func (s *Surface) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Select sets the active selection range over the serialized content.
func (s *Surface) Select(start, end int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if start < 0 || end > len(s.content) || start > end {
		return fmt.Errorf("selection [%d,%d) out of range", start, end)
	}
	s.selStart, s.selEnd = start, end
	return nil
}

// Selection returns the current selection range.
func (s *Surface) Selection() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selStart, s.selEnd
}

// SetContent replaces the whole blob, as a paste or programmatic load would,
// and schedules an auto-save.
func (s *Surface) SetContent(html string) {
	s.mu.Lock()
	s.content = html
	s.selStart, s.selEnd = 0, 0
	s.mu.Unlock()
	s.scheduleSave()
}

// Exec applies a formatting command to the current selection, mirroring the
// browser's execCommand names.
func (s *Surface) Exec(command, value string) error {
	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.scheduleSave()
	}()

	selected := s.content[s.selStart:s.selEnd]

	var fragment string
	switch command {
	case "bold":
		fragment = "<b>" + selected + "</b>"
	case "italic":
		fragment = "<i>" + selected + "</i>"
	case "underline":
		fragment = "<u>" + selected + "</u>"
	case "justifyLeft", "justifyCenter", "justifyRight":
		align := strings.ToLower(strings.TrimPrefix(command, "justify"))
		fragment = fmt.Sprintf(`<div style="text-align:%s">%s</div>`, align, selected)
	case "insertUnorderedList":
		fragment = "<ul><li>" + selected + "</li></ul>"
	case "insertOrderedList":
		fragment = "<ol><li>" + selected + "</li></ol>"
	case "fontName":
		fragment = fmt.Sprintf(`<span style="font-family:%s">%s</span>`, value, selected)
	case "fontSize":
		fragment = fmt.Sprintf(`<span style="font-size:%s">%s</span>`, value, selected)
	case "foreColor":
		fragment = fmt.Sprintf(`<span style="color:%s">%s</span>`, value, selected)
	case "hiliteColor":
		fragment = fmt.Sprintf(`<span style="background-color:%s">%s</span>`, value, selected)
	case "insertHTML":
		fragment = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	// Checked only after the command is known, so a bad command name is
	// reported as such even with nothing selected.
	if selected == "" && command != "insertHTML" {
		return ErrNoSelection
	}

	s.content = s.content[:s.selStart] + fragment + s.content[s.selEnd:]
	s.selEnd = s.selStart + len(fragment)
	return nil
}

// InsertImage places an img element at the caret.
func (s *Surface) InsertImage(url string) error {
	return s.Exec("insertHTML", fmt.Sprintf(`<img src="%s">`, url))
}

func (s *Surface) scheduleSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(context.Background()); err != nil {
			logger.Sugar.Errorf("Failed to auto-save document %s: %v", s.docID, err)
		}
	})
}

// Flush sanitizes and writes the content to the store, skipping the write
// when nothing changed since the last save.
func (s *Surface) Flush(ctx context.Context) error {
	s.mu.Lock()
	clean := s.policy.Sanitize(s.content)
	if clean == s.lastSaved {
		s.mu.Unlock()
		return nil
	}
	docID := s.docID
	s.mu.Unlock()

	if err := s.saver.UpdateContent(ctx, docID, clean); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastSaved = clean
	s.mu.Unlock()
	return nil
}

// Close cancels any pending auto-save and flushes outstanding changes.
func (s *Surface) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.Flush(ctx)
}
