package dictation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout = 5 * time.Second
	maxFrameSize = 1 << 20
)

// message is pushed to the browser over the dictation socket.
type message struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// command is sent by the browser as a text frame.
type command struct {
	Type string `json:"type"`
}

type status struct {
	State      string `json:"state"`
	Available  bool   `json:"available"`
	Transcript string `json:"transcript"`
}

type Handler struct {
	bridge *Bridge
	log    *slog.Logger
}

func NewHandler(bridge *Bridge, log *slog.Logger) *Handler {
	return &Handler{bridge: bridge, log: log}
}

// Status handles GET /api/dictation
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.status(), http.StatusOK)
}

// Stop handles POST /api/dictation/stop
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	err := h.bridge.Stop()
	switch {
	case errors.Is(err, ErrNotRecording):
		h.jsonError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.log.Error("failed to stop dictation", "error", err)
		h.jsonError(w, "failed to stop recognizer", http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, h.status(), http.StatusOK)
}

// Stream handles GET /api/dictation/ws. Binary frames carry PCM16LE mono
// 16 kHz audio; a {"type":"stop"} text frame ends the session. Closing the
// socket also stops it.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameSize)

	ctx := r.Context()
	send := func(m message) {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		if err := wsjson.Write(wctx, conn, m); err != nil {
			h.log.Debug("dictation write failed", "type", m.Type, "error", err)
		}
	}

	gen, err := h.bridge.start(ctx, Listener{
		Transcript: func(text string) {
			send(message{Type: "transcript", Text: text})
		},
		Error: func(err error) {
			send(errorMessage(err))
		},
	})
	if err != nil {
		send(errorMessage(err))
		conn.Close(websocket.StatusPolicyViolation, "dictation unavailable")
		return
	}

	stopped := false
	defer func() {
		if stopped {
			return
		}
		if err := h.bridge.stop(gen); err != nil && !errors.Is(err, ErrNotRecording) {
			h.log.Warn("failed to stop dictation on disconnect", "error", err)
		}
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug("dictation socket closed", "error", err)
			return
		}

		switch typ {
		case websocket.MessageBinary:
			if err := h.bridge.Feed(data); err != nil {
				send(errorMessage(err))
				conn.Close(websocket.StatusNormalClosure, "not recording")
				return
			}
		case websocket.MessageText:
			var cmd command
			if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type != "stop" {
				send(message{Type: "error", Error: "unknown command", Code: "bad-command"})
				continue
			}
			stopped = true
			if err := h.bridge.stop(gen); err != nil && !errors.Is(err, ErrNotRecording) {
				send(errorMessage(err))
			}
			send(message{Type: "stopped", Text: h.bridge.Transcript()})
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (h *Handler) status() status {
	return status{
		State:      h.bridge.State().String(),
		Available:  h.bridge.Available(),
		Transcript: h.bridge.Transcript(),
	}
}

func errorMessage(err error) message {
	m := message{Type: "error", Error: err.Error()}
	var recErr *RecognitionError
	switch {
	case errors.As(err, &recErr):
		m.Code = recErr.Code
	case errors.Is(err, ErrCapabilityUnavailable):
		m.Code = "unavailable"
	case errors.Is(err, ErrAlreadyRecording):
		m.Code = "busy"
	case errors.Is(err, ErrNotRecording):
		m.Code = "not-recording"
	default:
		m.Code = "start-failed"
	}
	return m
}

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

// Register mounts the dictation routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dictation", h.Status)
	mux.HandleFunc("POST /api/dictation/stop", h.Stop)
	mux.HandleFunc("GET /api/dictation/ws", h.Stream)
}
