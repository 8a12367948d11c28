package notes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"voicenotes/views/components"
	"voicenotes/views/models"
	"voicenotes/views/pages"
)

// persistWarning is sent in the Warning header when a mutation was applied in
// memory but could not be written to storage.
const persistWarning = `199 - "change not persisted; it will be lost on restart"`

var flashMessages = map[string]struct {
	text  string
	isErr bool
}{
	"saved":   {"Note saved", false},
	"deleted": {"Note deleted", false},
	"empty":   {"You must write a note before saving it", true},
	"unsaved": {"Saved for this session only: storage is unavailable", true},
	"failed":  {"Something went wrong", true},
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// --- REST API Handlers ---

// CreateNote handles POST /api/notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var input CreateNoteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	note, err := h.svc.Create(r.Context(), input)
	switch {
	case errors.Is(err, ErrEmptyContent):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrPersistence) && note != nil:
		w.Header().Set("Warning", persistWarning)
	case err != nil:
		h.log.Error("failed to create note", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, note, http.StatusCreated)
}

// GetNote handles GET /api/notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.jsonError(w, "note ID required", http.StatusBadRequest)
		return
	}

	note, err := h.svc.GetByID(r.Context(), id)
	if errors.Is(err, ErrNoteNotFound) {
		h.jsonError(w, "note not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("failed to get note", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, note, http.StatusOK)
}

// ListNotes handles GET /api/notes, filtered by ?q= when present
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	h.jsonResponse(w, notes, http.StatusOK)
}

// DeleteNote handles DELETE /api/notes/{id}. Deleting an unknown ID succeeds.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.jsonError(w, "note ID required", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if !errors.Is(err, ErrPersistence) {
			h.log.Error("failed to delete note", "error", err)
			h.jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Warning", persistWarning)
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helper methods ---

func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func redirectHome(w http.ResponseWriter, r *http.Request, flash string) {
	http.Redirect(w, r, "/?flash="+url.QueryEscape(flash), http.StatusSeeOther)
}

// --- View model converters ---

func (h *Handler) notesToViews(notes []Note) []models.NoteView {
	views := make([]models.NoteView, len(notes))
	for i, note := range notes {
		views[i] = models.NoteView{
			ID:        note.ID,
			Content:   note.Content,
			CreatedAt: note.CreatedAt,
		}
	}
	return views
}

// --- HTMX Web Handlers ---

// HomePage handles GET /
func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query().Get("q")
	page := models.PageView{
		Query:      query,
		TotalNotes: h.svc.Count(r.Context()),
	}
	if f, ok := flashMessages[r.URL.Query().Get("flash")]; ok {
		page.Flash = f.text
		page.FlashError = f.isErr
	}

	noteViews := h.notesToViews(h.svc.Search(r.Context(), query))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.HomePage(page, noteViews).Render(r.Context(), w); err != nil {
		h.log.Error("failed to render home page", "error", err)
	}
}

// NotesFragment handles GET /fragments/notes (HTMX partial)
func (h *Handler) NotesFragment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	noteViews := h.notesToViews(h.svc.Search(r.Context(), query))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := components.NoteCardList(noteViews, query).Render(r.Context(), w); err != nil {
		h.log.Error("failed to render notes fragment", "error", err)
	}
}

// CreateNoteForm handles POST /notes
func (h *Handler) CreateNoteForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, err := h.svc.Create(r.Context(), CreateNoteInput{Content: r.PostFormValue("content")})
	switch {
	case err == nil:
		redirectHome(w, r, "saved")
	case errors.Is(err, ErrEmptyContent):
		redirectHome(w, r, "empty")
	case errors.Is(err, ErrPersistence):
		redirectHome(w, r, "unsaved")
	default:
		h.log.Error("failed to create note", "error", err)
		redirectHome(w, r, "failed")
	}
}

// DeleteNoteForm handles POST /notes/{id}/delete
func (h *Handler) DeleteNoteForm(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		redirectHome(w, r, "deleted")
	case errors.Is(err, ErrPersistence):
		redirectHome(w, r, "unsaved")
	default:
		h.log.Error("failed to delete note", "error", err)
		redirectHome(w, r, "failed")
	}
}

// Register mounts the note routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/notes", h.CreateNote)
	mux.HandleFunc("GET /api/notes", h.ListNotes)
	mux.HandleFunc("GET /api/notes/{id}", h.GetNote)
	mux.HandleFunc("DELETE /api/notes/{id}", h.DeleteNote)

	mux.HandleFunc("GET /{$}", h.HomePage)
	mux.HandleFunc("GET /fragments/notes", h.NotesFragment)
	mux.HandleFunc("POST /notes", h.CreateNoteForm)
	mux.HandleFunc("POST /notes/{id}/delete", h.DeleteNoteForm)
}
