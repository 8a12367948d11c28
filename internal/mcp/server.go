package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voicenotes/internal/notes"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// NewServer creates an MCP server with tools for note operations
func NewServer(svc *notes.Service) *server.MCPServer {
	s := server.NewMCPServer(
		"Voice Notes",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Tool: list_notes - Newest notes first
	s.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List notes, newest first. Use this to get an overview of what has been written or dictated."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notes to return (default: 50, max: 200)"),
			),
			mcp.WithString("since",
				mcp.Description("Optional: Only return notes created after this date (ISO format: YYYY-MM-DD or RFC3339)"),
			),
		),
		handleListNotes(svc),
	)

	// Tool: search_notes - Case-insensitive substring search
	s.AddTool(
		mcp.NewTool("search_notes",
			mcp.WithDescription("Search notes by a case-insensitive substring of their content. Results keep newest-first order."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Text to look for in note content"),
			),
			mcp.WithString("since",
				mcp.Description("Optional: Only return notes created after this date (ISO format: YYYY-MM-DD or RFC3339)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notes to return (default: 50, max: 200)"),
			),
		),
		handleSearchNotes(svc),
	)

	// Tool: get_note - Get a specific note by ID
	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Get a specific note by its ID. Use this when you have a note ID and need the full content."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("The note ID (UUID)"),
			),
		),
		handleGetNote(svc),
	)

	// Tool: create_note - Save a new note
	s.AddTool(
		mcp.NewTool("create_note",
			mcp.WithDescription("Save a new plain-text note. It appears at the top of the list."),
			mcp.WithString("content",
				mcp.Required(),
				mcp.Description("Note text; must not be blank"),
			),
		),
		handleCreateNote(svc),
	)

	// Tool: delete_note - Delete a note by ID
	s.AddTool(
		mcp.NewTool("delete_note",
			mcp.WithDescription("Delete a note by its ID. Deleting an unknown ID does nothing."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("The note ID (UUID)"),
			),
			mcp.WithDestructiveHintAnnotation(true),
		),
		handleDeleteNote(svc),
	)

	return s
}

// NoteResult represents a note in tool responses
type NoteResult struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func handleListNotes(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		noteList, errResult := filterNotes(svc.List(ctx), req)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(notesToResults(noteList))
	}
}

func handleSearchNotes(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		noteList, errResult := filterNotes(svc.Search(ctx, query), req)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(notesToResults(noteList))
	}
}

func handleGetNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		note, err := svc.GetByID(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get note: %v", err)), nil
		}
		return jsonResult(noteToResult(*note))
	}
}

func handleCreateNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}

		note, err := svc.Create(ctx, notes.CreateNoteInput{Content: content})
		switch {
		case errors.Is(err, notes.ErrPersistence) && note != nil:
			// Saved for this session only; report the note with a warning.
			data, _ := json.MarshalIndent(noteToResult(*note), "", "  ")
			return mcp.NewToolResultText(string(data) + "\nwarning: note was not persisted and will be lost on restart"), nil
		case err != nil:
			return mcp.NewToolResultError(fmt.Sprintf("failed to create note: %v", err)), nil
		}
		return jsonResult(noteToResult(*note))
	}
}

func handleDeleteNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		if err := svc.Delete(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("deleted for this session only: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("deleted note %s", id)), nil
	}
}

// Helper functions

// filterNotes applies the optional since and limit arguments.
func filterNotes(noteList []notes.Note, req mcp.CallToolRequest) ([]notes.Note, *mcp.CallToolResult) {
	if since := req.GetString("since", ""); since != "" {
		t, err := parseDate(since)
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("invalid 'since' date format: %v", err))
		}
		filtered := noteList[:0]
		for _, n := range noteList {
			if n.CreatedAt.After(t) {
				filtered = append(filtered, n)
			}
		}
		noteList = filtered
	}

	limit := req.GetInt("limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	if len(noteList) > limit {
		noteList = noteList[:limit]
	}
	return noteList, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func noteToResult(note notes.Note) NoteResult {
	return NoteResult{
		ID:        note.ID,
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
	}
}

func notesToResults(noteList []notes.Note) []NoteResult {
	results := make([]NoteResult, len(noteList))
	for i, note := range noteList {
		results[i] = noteToResult(note)
	}
	return results
}

func parseDate(s string) (time.Time, error) {
	// Try RFC3339 first
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}

	// Try YYYY-MM-DD
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339 format")
}
