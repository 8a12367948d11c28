package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"voicenotes/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNoteNotFound  = errors.New("note not found")
	ErrPersistence   = errors.New("persisting notes failed")
	ErrMalformedData = errors.New("stored notes are malformed")
)

// DefaultKey is the storage key the collection is persisted under.
const DefaultKey = "notes"

// Store owns the canonical note collection, newest first, and rewrites the
// whole collection to storage after every mutation.
type Store struct {
	storage storage.Storage
	key     string
	now     func() time.Time
	newID   func() string

	mu    sync.RWMutex
	notes []Note
}

type StoreOption func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides note ID generation.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

func NewStore(st storage.Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: st,
		key:     DefaultKey,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one. A missing
// blob yields an empty collection. A corrupt blob is copied aside to
// "<key>.corrupt" and also yields an empty collection, together with an
// error wrapping ErrMalformedData so the caller can warn about it.
func (s *Store) Load(ctx context.Context) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = nil

	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []Note{}, nil
	}
	if err != nil {
		return []Note{}, fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}

	notes, err := decode(data)
	if err != nil {
		if backupErr := s.storage.Set(ctx, s.key+".corrupt", data); backupErr != nil {
			return []Note{}, fmt.Errorf("%w: %v (backup failed: %v)", ErrMalformedData, err, backupErr)
		}
		return []Note{}, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	s.notes = notes
	return cloneNotes(notes), nil
}

// Create prepends a new note and persists the collection. The store does not
// validate content. When persisting fails the note is kept in memory and
// returned together with an error wrapping ErrPersistence.
func (s *Store) Create(ctx context.Context, content string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := Note{
		ID:        s.newID(),
		Content:   content,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	notes := make([]Note, 0, len(s.notes)+1)
	notes = append(notes, note)
	s.notes = append(notes, s.notes...)

	return note, s.persistLocked(ctx)
}

// Delete removes the note with the given id, if any, and persists the
// collection either way.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i:i], s.notes[i+1:]...)
			break
		}
	}

	return s.persistLocked(ctx)
}

// Search returns the notes whose content contains query, ignoring case, in
// collection order. An empty query returns every note.
func (s *Store) Search(query string) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if query == "" {
		return cloneNotes(s.notes)
	}

	needle := strings.ToLower(query)
	out := make([]Note, 0)
	for _, n := range s.notes {
		if strings.Contains(strings.ToLower(n.Content), needle) {
			out = append(out, n)
		}
	}
	return out
}

// List returns the whole collection, newest first.
func (s *Store) List() []Note {
	return s.Search("")
}

func (s *Store) Get(id string) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return Note{}, ErrNoteNotFound
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := encode(s.notes)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func encode(notes []Note) ([]byte, error) {
	records := make([]record, len(notes))
	for i, n := range notes {
		records[i] = record{ID: n.ID, Content: n.Content, Date: n.CreatedAt}
	}
	return json.Marshal(records)
}

func decode(data []byte) ([]Note, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	notes := make([]Note, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("note %d has no id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate note id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
		notes = append(notes, Note{ID: r.ID, Content: r.Content, CreatedAt: r.Date})
	}
	return notes, nil
}

func cloneNotes(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)
	return out
}
