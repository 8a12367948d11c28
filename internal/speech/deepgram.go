package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"voicenotes/internal/dictation"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	deepgramModel    = "nova-3"
	closeTimeout     = 500 * time.Millisecond
)

// Deepgram streams audio to Deepgram's live transcription API. Sessions are
// always continuous; they end only when stopped.
type Deepgram struct {
	apiKey   string
	endpoint string
	model    string
	log      *slog.Logger
}

func NewDeepgram(apiKey string, log *slog.Logger) *Deepgram {
	return &Deepgram{apiKey: apiKey, endpoint: deepgramEndpoint, model: deepgramModel, log: log}
}

func (d *Deepgram) Name() string    { return "deepgram" }
func (d *Deepgram) Available() bool { return d.apiKey != "" }

type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	Description string `json:"description"`
}

func (d *Deepgram) Start(ctx context.Context, cfg dictation.Config, events dictation.Events) (dictation.Session, error) {
	endpoint, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, err
	}

	q := endpoint.Query()
	q.Set("model", d.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(SampleRate))
	q.Set("channels", strconv.Itoa(Channels))
	q.Set("punctuate", "true")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	if cfg.MaxAlternatives > 0 {
		q.Set("alternatives", strconv.Itoa(cfg.MaxAlternatives))
	}
	endpoint.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	streamCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(streamCtx, endpoint.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	s := &deepgramSession{
		conn:       conn,
		ctx:        streamCtx,
		cancel:     cancel,
		events:     events,
		log:        d.log,
		done:       make(chan struct{}),
	}
	go s.receive()
	return s, nil
}

type deepgramSession struct {
	conn       *websocket.Conn
	ctx        context.Context
	cancel     context.CancelFunc
	events     dictation.Events
	log        *slog.Logger
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.Mutex
	finals  []dictation.Result
	closing bool
}

func (s *deepgramSession) Feed(pcm []byte) {
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		return
	}
	if err := s.conn.Write(s.ctx, websocket.MessageBinary, pcm); err != nil {
		s.fail(dictation.CodeNetwork, err)
	}
}

// Stop tells Deepgram the stream is over and closes the socket without
// waiting for trailing results; nothing is delivered after Stop.
func (s *deepgramSession) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		wctx, cancel := context.WithTimeout(s.ctx, closeTimeout)
		if werr := s.conn.Write(wctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); werr != nil && s.ctx.Err() == nil {
			err = fmt.Errorf("deepgram: close stream: %w", werr)
		}
		cancel()
		s.cancel()
		s.conn.CloseNow()
		<-s.done
	})
	return err
}

func (s *deepgramSession) receive() {
	defer close(s.done)
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing && s.ctx.Err() == nil {
				s.fail(dictation.CodeNetwork, err)
			}
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			s.fail(dictation.CodeService, fmt.Errorf("decode response: %w", err))
			continue
		}

		switch resp.Type {
		case "Results":
			s.handle(resp)
		case "Error":
			s.fail(dictation.CodeService, fmt.Errorf("%s", resp.Description))
		}
	}
}

// handle folds one response into the session results.
func (s *deepgramSession) handle(resp deepgramResponse) {
	result := dictation.Result{Final: resp.IsFinal}
	empty := true
	for _, a := range resp.Channel.Alternatives {
		text := strings.TrimSpace(a.Transcript)
		if text != "" {
			empty = false
		}
		result.Alternatives = append(result.Alternatives, dictation.Alternative{Transcript: text, Confidence: a.Confidence})
	}

	s.mu.Lock()
	if len(s.finals) > 0 {
		result = spaced(result)
	}
	var current []dictation.Result
	switch {
	case empty && resp.IsFinal:
		// The interim tail was retracted.
		current = append(current, s.finals...)
	case empty:
		s.mu.Unlock()
		return
	case resp.IsFinal:
		s.finals = append(s.finals, result)
		current = append(current, s.finals...)
	default:
		current = append(append(current, s.finals...), result)
	}
	s.mu.Unlock()

	if s.events.OnResult != nil {
		s.events.OnResult(current)
	}
}

func (s *deepgramSession) fail(code string, err error) {
	s.log.Debug("deepgram session error", "code", code, "error", err)
	if s.events.OnError != nil {
		s.events.OnError(&dictation.RecognitionError{Code: code, Err: err})
	}
}
