package dictation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrCapabilityUnavailable = errors.New("speech recognition is not available")
	ErrAlreadyRecording      = errors.New("dictation is already recording")
	ErrNotRecording          = errors.New("dictation is not recording")
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Listener receives the output of one recording session. Transcript is
// called with the full accumulated text each time; callers replace their
// text with it. Error is optional.
type Listener struct {
	Transcript func(text string)
	Error      func(err error)
}

// Bridge is the Idle/Recording state machine over a Recognizer. At most one
// session is active per Bridge.
type Bridge struct {
	rec Recognizer
	cfg Config
	log *slog.Logger

	mu         sync.Mutex
	state      State
	session    Session
	generation uint64
	transcript string
	listener   Listener
}

type Option func(*Bridge)

func WithConfig(cfg Config) Option {
	return func(b *Bridge) { b.cfg = cfg }
}

// WithLanguage overrides only the language of the default configuration.
func WithLanguage(lang string) Option {
	return func(b *Bridge) {
		if lang != "" {
			b.cfg.Language = lang
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

func NewBridge(rec Recognizer, opts ...Option) *Bridge {
	b := &Bridge{
		rec: rec,
		cfg: DefaultConfig(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start begins a recording session. It fails with ErrAlreadyRecording when a
// session is active and with ErrCapabilityUnavailable when the recognizer is
// missing; in both cases the state is left as it was.
func (b *Bridge) Start(ctx context.Context, l Listener) error {
	_, err := b.start(ctx, l)
	return err
}

// start returns the generation of the new session so the caller can later
// stop exactly that session.
func (b *Bridge) start(ctx context.Context, l Listener) (uint64, error) {
	b.mu.Lock()
	if b.state == Recording {
		b.mu.Unlock()
		return 0, ErrAlreadyRecording
	}
	if b.rec == nil || !b.rec.Available() {
		b.mu.Unlock()
		b.log.Warn("dictation unavailable", "error", ErrCapabilityUnavailable)
		return 0, ErrCapabilityUnavailable
	}
	b.generation++
	gen := b.generation
	b.state = Recording
	b.transcript = ""
	b.listener = l
	b.mu.Unlock()

	session, err := b.rec.Start(ctx, b.cfg, Events{
		OnResult: func(results []Result) { b.handleResults(gen, results) },
		OnError:  func(err error) { b.handleError(gen, err) },
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		if b.generation == gen {
			b.state = Idle
			b.listener = Listener{}
		}
		b.log.Error("dictation start failed", "error", err)
		return 0, fmt.Errorf("start recognizer: %w", err)
	}
	if b.generation != gen {
		// Stopped while the recognizer was still starting.
		_ = session.Stop()
		return 0, ErrNotRecording
	}
	b.session = session
	b.log.Info("dictation started", "language", b.cfg.Language)
	return gen, nil
}

// Stop halts the active session. The last transcript stays available through
// Transcript; nothing is delivered after Stop returns.
func (b *Bridge) Stop() error {
	return b.stop(0)
}

// stop halts the active session. A non-zero gen only matches the session
// started with that generation.
func (b *Bridge) stop(gen uint64) error {
	b.mu.Lock()
	if b.state != Recording || (gen != 0 && gen != b.generation) {
		b.mu.Unlock()
		return ErrNotRecording
	}
	session := b.session
	b.state = Idle
	b.session = nil
	b.generation++
	b.listener = Listener{}
	b.mu.Unlock()

	b.log.Info("dictation stopped")
	if session == nil {
		return nil
	}
	if err := session.Stop(); err != nil {
		b.log.Warn("recognizer stop failed", "error", err)
		return fmt.Errorf("stop recognizer: %w", err)
	}
	return nil
}

// Feed forwards audio to the active session.
func (b *Bridge) Feed(pcm []byte) error {
	b.mu.Lock()
	if b.state != Recording {
		b.mu.Unlock()
		return ErrNotRecording
	}
	session := b.session
	b.mu.Unlock()

	if session != nil {
		session.Feed(pcm)
	}
	return nil
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Transcript returns the last text delivered to the listener.
func (b *Bridge) Transcript() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transcript
}

// Available reports whether Start could reach a recognizer right now.
func (b *Bridge) Available() bool {
	return b.rec != nil && b.rec.Available()
}

func (b *Bridge) handleResults(gen uint64, results []Result) {
	text := Transcript(results)

	b.mu.Lock()
	if gen != b.generation || b.state != Recording {
		b.mu.Unlock()
		return
	}
	b.transcript = text
	deliver := b.listener.Transcript
	b.mu.Unlock()

	if deliver != nil {
		deliver(text)
	}
}

func (b *Bridge) handleError(gen uint64, err error) {
	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		recErr = &RecognitionError{Code: CodeService, Err: err}
	}

	b.mu.Lock()
	current := gen == b.generation && b.state == Recording
	report := b.listener.Error
	b.mu.Unlock()

	b.log.Error("recognition error", "code", recErr.Code, "error", recErr.Err, "current", current)
	if current && report != nil {
		report(recErr)
	}
}
