package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"voicenotes/internal/notes"
	"voicenotes/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
)

type failingStorage struct{ storage.Storage }

func (failingStorage) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func newTestService(t *testing.T, st storage.Storage) *notes.Service {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notes.NewService(notes.NewStore(st), log)
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func decodeNotes(t *testing.T, res *mcp.CallToolResult) []NoteResult {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var out []NoteResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	return out
}

func TestTools_CreateListSearchDelete(t *testing.T) {
	svc := newTestService(t, storage.NewMemory())

	res := call(t, handleCreateNote(svc), map[string]any{"content": "Buy milk"})
	require.False(t, res.IsError)
	var created NoteResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &created))
	require.Equal(t, "Buy milk", created.Content)
	call(t, handleCreateNote(svc), map[string]any{"content": "Call mom"})

	listed := decodeNotes(t, call(t, handleListNotes(svc), nil))
	require.Len(t, listed, 2)
	require.Equal(t, "Call mom", listed[0].Content)

	found := decodeNotes(t, call(t, handleSearchNotes(svc), map[string]any{"query": "MILK"}))
	require.Len(t, found, 1)
	require.Equal(t, created.ID, found[0].ID)

	res = call(t, handleGetNote(svc), map[string]any{"id": created.ID})
	require.False(t, res.IsError)
	require.Contains(t, text(t, res), "Buy milk")

	res = call(t, handleDeleteNote(svc), map[string]any{"id": created.ID})
	require.False(t, res.IsError)
	require.Len(t, decodeNotes(t, call(t, handleListNotes(svc), nil)), 1)

	res = call(t, handleGetNote(svc), map[string]any{"id": created.ID})
	require.True(t, res.IsError)
}

func TestTools_Validation(t *testing.T) {
	svc := newTestService(t, storage.NewMemory())

	require.True(t, call(t, handleCreateNote(svc), map[string]any{"content": "   "}).IsError)
	require.True(t, call(t, handleCreateNote(svc), nil).IsError)
	require.True(t, call(t, handleSearchNotes(svc), nil).IsError)
	require.True(t, call(t, handleGetNote(svc), nil).IsError)
	require.True(t, call(t, handleDeleteNote(svc), nil).IsError)
	require.True(t, call(t, handleListNotes(svc), map[string]any{"since": "last week"}).IsError)
}

func TestTools_LimitAndSince(t *testing.T) {
	svc := newTestService(t, storage.NewMemory())
	for _, c := range []string{"one", "two", "three"} {
		call(t, handleCreateNote(svc), map[string]any{"content": c})
	}

	limited := decodeNotes(t, call(t, handleListNotes(svc), map[string]any{"limit": 2}))
	require.Equal(t, []string{"three", "two"}, []string{limited[0].Content, limited[1].Content})

	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	require.Empty(t, decodeNotes(t, call(t, handleListNotes(svc), map[string]any{"since": future})))
	require.Len(t, decodeNotes(t, call(t, handleSearchNotes(svc), map[string]any{"query": "o", "since": "2000-01-01"})), 2)
}

func TestTools_PersistenceFailure(t *testing.T) {
	svc := newTestService(t, failingStorage{storage.NewMemory()})

	res := call(t, handleCreateNote(svc), map[string]any{"content": "kept in memory"})
	require.False(t, res.IsError)
	require.Contains(t, text(t, res), "warning: note was not persisted")
	require.Len(t, svc.List(context.Background()), 1)

	res = call(t, handleDeleteNote(svc), map[string]any{"id": "missing"})
	require.True(t, res.IsError)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-01")
	require.NoError(t, err)
	require.Equal(t, 2024, d.Year())

	_, err = parseDate("2024-03-01T10:00:00Z")
	require.NoError(t, err)

	_, err = parseDate("yesterday")
	require.Error(t, err)
}

func TestNewServer(t *testing.T) {
	require.NotNil(t, NewServer(newTestService(t, storage.NewMemory())))
}
