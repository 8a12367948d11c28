package models

import "time"

// NoteView represents a note for template rendering
type NoteView struct {
	ID        string
	Content   string
	CreatedAt time.Time
}

// PageView carries page-level state
type PageView struct {
	Query      string
	TotalNotes int
	Flash      string
	FlashError bool
}
