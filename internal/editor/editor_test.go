package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	mu    sync.Mutex
	saves []string
}

func (r *recordingSaver) UpdateContent(_ context.Context, _ string, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, content)
	return nil
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *recordingSaver) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return ""
	}
	return r.saves[len(r.saves)-1]
}

func TestExecFormatting(t *testing.T) {
	cases := []struct {
		command string
		value   string
		want    string
	}{
		{"bold", "", "<p><b>hello</b> world</p>"},
		{"italic", "", "<p><i>hello</i> world</p>"},
		{"underline", "", "<p><u>hello</u> world</p>"},
		{"justifyCenter", "", `<p><div style="text-align:center">hello</div> world</p>`},
		{"insertUnorderedList", "", "<p><ul><li>hello</li></ul> world</p>"},
		{"fontName", "Georgia", `<p><span style="font-family:Georgia">hello</span> world</p>`},
		{"foreColor", "#ff0000", `<p><span style="color:#ff0000">hello</span> world</p>`},
		{"hiliteColor", "#ffff00", `<p><span style="background-color:#ffff00">hello</span> world</p>`},
	}

	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			surface := NewSurface(&recordingSaver{}, "doc1", "<p>hello world</p>")
			require.NoError(t, surface.Select(3, 8)) // "hello"
			require.NoError(t, surface.Exec(tc.command, tc.value))
			assert.Equal(t, tc.want, surface.Content())
		})
	}
}

func TestExecErrors(t *testing.T) {
	surface := NewSurface(&recordingSaver{}, "doc1", "<p>hi</p>")

	// A bad command name wins over the empty selection.
	err := surface.Exec("blink", "")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	// No selection, nothing to format.
	err = surface.Exec("bold", "")
	assert.ErrorIs(t, err, ErrNoSelection)

	require.NoError(t, surface.Select(3, 5))
	err = surface.Exec("blink", "")
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, "<p>hi</p>", surface.Content(), "failed command must not touch content")

	assert.Error(t, surface.Select(0, 100))
}

func TestInsertImageAtCaret(t *testing.T) {
	surface := NewSurface(&recordingSaver{}, "doc1", "<p>before after</p>")
	require.NoError(t, surface.Select(10, 10))
	require.NoError(t, surface.InsertImage("https://img.example.com/moose.png"))
	assert.Equal(t, `<p>before <img src="https://img.example.com/moose.png">after</p>`, surface.Content())
}

func TestDebouncedAutoSave(t *testing.T) {
	saver := &recordingSaver{}
	surface := NewSurface(saver, "doc1", "<p>start</p>")
	surface.SetDebounce(20 * time.Millisecond)

	surface.SetContent("<p>first</p>")
	surface.SetContent("<p>second</p>")

	// Both edits land inside one debounce window: a single save.
	require.Eventually(t, func() bool { return saver.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "<p>second</p>", saver.last())

	// Idle surface does not save again.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, saver.count())
}

func TestFlushSkipsRedundantWrites(t *testing.T) {
	saver := &recordingSaver{}
	surface := NewSurface(saver, "doc1", "<p>start</p>")

	// Content equals the saved snapshot, nothing to write.
	require.NoError(t, surface.Flush(context.Background()))
	assert.Equal(t, 0, saver.count())

	surface.SetContent("<p>changed</p>")
	require.NoError(t, surface.Close(context.Background()))
	assert.Equal(t, 1, saver.count())

	// A second flush after saving is a no-op.
	require.NoError(t, surface.Flush(context.Background()))
	assert.Equal(t, 1, saver.count())
}

func TestFlushSanitizesContent(t *testing.T) {
	saver := &recordingSaver{}
	surface := NewSurface(saver, "doc1", "<p>safe</p>")

	surface.SetContent(`<p>safe</p><script>alert("x")</script><span style="color:#00f">blue</span>`)
	require.NoError(t, surface.Close(context.Background()))

	saved := saver.last()
	assert.NotContains(t, saved, "<script>")
	assert.NotContains(t, saved, "alert")
	assert.Contains(t, saved, "blue")
	assert.Contains(t, saved, "color")
}
