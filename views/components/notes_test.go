package components

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"voicenotes/views/models"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestNoteCard(t *testing.T) {
	note := models.NoteView{
		ID:        "abc",
		Content:   "<i>first</i>\nsecond\n\nfourth",
		CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	html := render(t, NoteCard(note))
	require.Contains(t, html, `id="note-abc"`)
	require.Contains(t, html, `<time datetime="2024-03-01T09:30:00Z">`)
	require.Contains(t, html, "&lt;i&gt;first&lt;/i&gt;<br>second<br><br>fourth")
	require.Contains(t, html, `action="/notes/abc/delete"`)
	require.NotContains(t, html, "<i>")
}

func TestNoteCardList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		require.Contains(t, render(t, NoteCardList(nil, "")), "No notes yet.")
	})

	t.Run("no matches", func(t *testing.T) {
		html := render(t, NoteCardList(nil, "milk"))
		require.Contains(t, html, "No notes match &#34;milk&#34;.")
	})

	t.Run("cards in order", func(t *testing.T) {
		html := render(t, NoteCardList([]models.NoteView{
			{ID: "1", Content: "one", CreatedAt: time.Now()},
			{ID: "2", Content: "two", CreatedAt: time.Now()},
		}, ""))
		first, second := strings.Index(html, `id="note-1"`), strings.Index(html, `id="note-2"`)
		require.NotEqual(t, -1, first)
		require.Less(t, first, second)
		require.NotContains(t, html, "No notes")
	})
}

func TestNewNoteCard(t *testing.T) {
	html := render(t, NewNoteCard())
	require.Contains(t, html, `id="record" data-state="idle"`)
	require.Contains(t, html, `<textarea name="content" id="content"`)
}
