package notes

import "time"

// Note is a single plain-text note. Notes never change after creation;
// they are only created and deleted.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateNoteInput is the input for creating a note
type CreateNoteInput struct {
	Content string `json:"content"`
}

// record is the persisted shape of a note. The field names match the
// payload the browser widget stored, so existing blobs keep loading.
type record struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}
