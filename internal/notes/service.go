package notes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

var ErrEmptyContent = errors.New("content is required")

// Service applies the caller-side policy on top of the Store: blank notes are
// refused before they reach it, and persistence trouble is logged as a
// warning while the in-memory collection stays authoritative.
type Service struct {
	store *Store
	log   *slog.Logger
}

func NewService(store *Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// Create creates a new note. A non-nil note is returned whenever the note
// made it into the collection, even if persisting it failed.
func (s *Service) Create(ctx context.Context, input CreateNoteInput) (*Note, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrEmptyContent
	}

	note, err := s.store.Create(ctx, input.Content)
	if err != nil {
		s.log.Warn("note kept in memory only", "id", note.ID, "error", err)
		return &note, err
	}
	return &note, nil
}

// GetByID retrieves a note by ID
func (s *Service) GetByID(_ context.Context, id string) (*Note, error) {
	note, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// List returns every note, newest first
func (s *Service) List(_ context.Context) []Note {
	return s.store.List()
}

// Search filters notes by a case-insensitive substring
func (s *Service) Search(_ context.Context, query string) []Note {
	return s.store.Search(query)
}

// Delete removes a note by ID. Unknown IDs are not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Warn("note deletion not persisted", "id", id, "error", err)
		return err
	}
	return nil
}

// Count returns total note count
func (s *Service) Count(_ context.Context) int {
	return s.store.Count()
}
