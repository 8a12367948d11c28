package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"

	"voicenotes/internal/dictation"
)

const (
	defaultSegment      = 5 * time.Second
	defaultInterimEvery = time.Second
	defaultMinInterim   = time.Second
)

type transcribeFunc func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)

// Whisper approximates continuous recognition with the OpenAI transcription
// API: audio is cut into fixed segments and each transcribed segment is
// appended as a final result. With interim results enabled the partial
// segment is transcribed periodically and reported as a non-final tail.
type Whisper struct {
	transcribe   transcribeFunc
	available    bool
	segment      time.Duration
	interimEvery time.Duration
	minInterim   time.Duration
	log          *slog.Logger
}

func NewWhisper(apiKey string, segment time.Duration, log *slog.Logger) *Whisper {
	client := openai.NewClient(apiKey)
	return newWhisper(client.CreateTranscription, apiKey != "", segment, log)
}

func newWhisper(fn transcribeFunc, available bool, segment time.Duration, log *slog.Logger) *Whisper {
	if segment <= 0 {
		segment = defaultSegment
	}
	return &Whisper{
		transcribe:   fn,
		available:    available,
		segment:      segment,
		interimEvery: defaultInterimEvery,
		minInterim:   defaultMinInterim,
		log:          log,
	}
}

func (w *Whisper) Name() string    { return "whisper" }
func (w *Whisper) Available() bool { return w.available }

func (w *Whisper) Start(ctx context.Context, cfg dictation.Config, events dictation.Events) (dictation.Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &whisperSession{
		w:               w,
		ctx:             ctx,
		cancel:          cancel,
		events:          events,
		language:        baseLanguage(cfg.Language),
		segmentBytes:    pcmBytes(w.segment),
		minInterimBytes: pcmBytes(w.minInterim),
		jobs:            make(chan whisperJob, 4),
		done:            make(chan struct{}),
	}
	go s.run()
	if cfg.InterimResults {
		go s.tick(w.interimEvery)
	}
	return s, nil
}

// pcmBytes is the size of d worth of audio, rounded down to whole samples.
func pcmBytes(d time.Duration) int {
	n := int(d.Seconds() * bytesPerSecond)
	return n - n%2
}

// baseLanguage reduces a locale tag such as "en-GB" to the ISO-639-1 code
// Whisper expects.
func baseLanguage(tag string) string {
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, _ := t.Base()
	return base.String()
}

// whisperJob is one transcription request. Interim jobs carry the segment
// count at the time of the snapshot and are skipped once a newer segment has
// been cut.
type whisperJob struct {
	pcm     []byte
	final   bool
	segment int64
}

type whisperSession struct {
	w               *Whisper
	ctx             context.Context
	cancel          context.CancelFunc
	events          dictation.Events
	language        string
	segmentBytes    int
	minInterimBytes int
	jobs            chan whisperJob
	done            chan struct{}
	segments        atomic.Int64

	mu          sync.Mutex // guards buf, closed, lastInterim and sends on jobs
	buf         []byte
	closed      bool
	lastInterim int

	resultsMu sync.Mutex
	results   []dictation.Result
}

func (s *whisperSession) Feed(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.buf = append(s.buf, pcm...)
	for len(s.buf) >= s.segmentBytes {
		segment := make([]byte, s.segmentBytes)
		copy(segment, s.buf)
		s.buf = s.buf[s.segmentBytes:]
		s.lastInterim = 0
		n := s.segments.Add(1)
		select {
		case s.jobs <- whisperJob{pcm: segment, final: true, segment: n}:
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop drops untranscribed audio and abandons in-flight requests. Any text
// for the partial segment has already been delivered as an interim result.
func (s *whisperSession) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.buf = nil
	close(s.jobs)
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

// tick queues the partial segment for an interim transcription whenever it
// has grown since the last one.
func (s *whisperSession) tick(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if !s.closed && len(s.buf) >= s.minInterimBytes && len(s.buf) != s.lastInterim {
			pcm := append([]byte(nil), s.buf...)
			select {
			case s.jobs <- whisperJob{pcm: pcm, segment: s.segments.Load()}:
				s.lastInterim = len(pcm)
			default:
				// Worker is behind; try again on the next tick.
			}
		}
		s.mu.Unlock()
	}
}

func (s *whisperSession) run() {
	defer close(s.done)
	for job := range s.jobs {
		if s.ctx.Err() != nil {
			continue
		}
		if !job.final && job.segment != s.segments.Load() {
			continue
		}
		text, err := s.transcribeSegment(job.pcm)
		if err != nil {
			if s.ctx.Err() != nil {
				continue
			}
			s.w.log.Debug("whisper segment failed", "final", job.final, "error", err)
			if s.events.OnError != nil {
				s.events.OnError(&dictation.RecognitionError{Code: errorCode(err), Err: err})
			}
			continue
		}
		if job.final {
			s.deliverFinal(text)
		} else if job.segment == s.segments.Load() {
			s.deliverInterim(text)
		}
	}
}

func (s *whisperSession) deliverFinal(text string) {
	if text == "" {
		return
	}
	s.resultsMu.Lock()
	s.results = append(s.results, s.result(text, true))
	current := append([]dictation.Result(nil), s.results...)
	s.resultsMu.Unlock()

	if s.events.OnResult != nil {
		s.events.OnResult(current)
	}
}

func (s *whisperSession) deliverInterim(text string) {
	s.resultsMu.Lock()
	current := append([]dictation.Result(nil), s.results...)
	if text != "" {
		current = append(current, s.result(text, false))
	}
	s.resultsMu.Unlock()

	if s.events.OnResult != nil {
		s.events.OnResult(current)
	}
}

// result wraps text as a result following the ones already committed.
// Callers hold resultsMu.
func (s *whisperSession) result(text string, final bool) dictation.Result {
	r := dictation.Result{
		Alternatives: []dictation.Alternative{{Transcript: text, Confidence: 1}},
		Final:        final,
	}
	if len(s.results) > 0 {
		r = spaced(r)
	}
	return r
}

func (s *whisperSession) transcribeSegment(pcm []byte) (string, error) {
	audio, err := encodeFLAC(pcm)
	if err != nil {
		return "", err
	}
	resp, err := s.w.transcribe(s.ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "segment.flac",
		Reader:   bytes.NewReader(audio),
		Language: s.language,
	})
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func errorCode(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return dictation.CodeService
	}
	return dictation.CodeNetwork
}
