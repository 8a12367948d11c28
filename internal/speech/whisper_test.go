package speech

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"voicenotes/internal/dictation"
)

type stubTranscriber struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []openai.AudioRequest
	audio    [][]byte
}

func (s *stubTranscriber) transcribe(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	data, _ := io.ReadAll(req.Reader)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	s.audio = append(s.audio, data)
	if s.err != nil {
		return openai.AudioResponse{}, s.err
	}
	reply := ""
	if len(s.replies) > 0 {
		reply, s.replies = s.replies[0], s.replies[1:]
	}
	return openai.AudioResponse{Text: reply}, nil
}

func (s *stubTranscriber) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type eventLog struct {
	mu          sync.Mutex
	transcripts []string
	errs        []error
}

func (l *eventLog) events() dictation.Events {
	return dictation.Events{
		OnResult: func(results []dictation.Result) {
			l.mu.Lock()
			l.transcripts = append(l.transcripts, dictation.Transcript(results))
			l.mu.Unlock()
		},
		OnError: func(err error) {
			l.mu.Lock()
			l.errs = append(l.errs, err)
			l.mu.Unlock()
		},
	}
}

func (l *eventLog) Transcripts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.transcripts...)
}

func (l *eventLog) Errors() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...)
}

const segment = 100 * time.Millisecond

var segmentSamples = int(segment.Seconds() * SampleRate)

func TestWhisper_Segments(t *testing.T) {
	stub := &stubTranscriber{replies: []string{" Buy milk. ", "Call mom."}}
	w := newWhisper(stub.transcribe, true, segment, discardLogger())
	events := &eventLog{}

	session, err := w.Start(context.Background(), dictation.DefaultConfig(), events.events())
	require.NoError(t, err)

	session.Feed(tone(segmentSamples / 2))
	session.Feed(tone(segmentSamples + segmentSamples/2))
	session.Feed(tone(100))

	waitFor(t, func() bool { return len(events.Transcripts()) == 2 })
	require.Equal(t, []string{"Buy milk.", "Buy milk. Call mom."}, events.Transcripts())

	require.NoError(t, session.Stop())
	require.Equal(t, 2, stub.calls())

	stub.mu.Lock()
	defer stub.mu.Unlock()
	for i, req := range stub.requests {
		require.Equal(t, openai.Whisper1, req.Model)
		require.Equal(t, "en", req.Language)
		require.Equal(t, "segment.flac", req.FilePath)
		require.Equal(t, "fLaC", string(stub.audio[i][:4]))
	}
}

func TestWhisper_SkipsSilence(t *testing.T) {
	stub := &stubTranscriber{replies: []string{"  ", "hello"}}
	w := newWhisper(stub.transcribe, true, segment, discardLogger())
	events := &eventLog{}

	session, err := w.Start(context.Background(), dictation.DefaultConfig(), events.events())
	require.NoError(t, err)
	session.Feed(tone(2 * segmentSamples))

	waitFor(t, func() bool { return len(events.Transcripts()) == 1 })
	require.Equal(t, []string{"hello"}, events.Transcripts())
	require.NoError(t, session.Stop())
}

func TestWhisper_Errors(t *testing.T) {
	stub := &stubTranscriber{err: &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}}
	w := newWhisper(stub.transcribe, true, segment, discardLogger())
	events := &eventLog{}

	session, err := w.Start(context.Background(), dictation.DefaultConfig(), events.events())
	require.NoError(t, err)
	session.Feed(tone(segmentSamples))

	waitFor(t, func() bool { return len(events.Errors()) == 1 })
	var recErr *dictation.RecognitionError
	require.ErrorAs(t, events.Errors()[0], &recErr)
	require.Equal(t, dictation.CodeService, recErr.Code)
	require.Empty(t, events.Transcripts())

	stub.mu.Lock()
	stub.err = errors.New("connection reset")
	stub.mu.Unlock()
	session.Feed(tone(segmentSamples))

	waitFor(t, func() bool { return len(events.Errors()) == 2 })
	require.ErrorAs(t, events.Errors()[1], &recErr)
	require.Equal(t, dictation.CodeNetwork, recErr.Code)
	require.NoError(t, session.Stop())
}

func TestWhisper_StopIsIdempotent(t *testing.T) {
	stub := &stubTranscriber{}
	w := newWhisper(stub.transcribe, true, 0, discardLogger())
	require.Equal(t, defaultSegment, w.segment)

	session, err := w.Start(context.Background(), dictation.DefaultConfig(), dictation.Events{})
	require.NoError(t, err)
	session.Feed(tone(100))
	require.NoError(t, session.Stop())
	require.NoError(t, session.Stop())
	session.Feed(tone(100))
	require.Zero(t, stub.calls())
}

func TestWhisper_ShortRecordingUsesInterimTail(t *testing.T) {
	stub := &stubTranscriber{replies: []string{"hello"}}
	w := newWhisper(stub.transcribe, true, 5*time.Second, discardLogger())
	w.interimEvery = 10 * time.Millisecond

	b := dictation.NewBridge(w, dictation.WithLogger(discardLogger()))
	require.NoError(t, b.Start(context.Background(), dictation.Listener{}))
	require.NoError(t, b.Feed(tone(3*SampleRate)))

	waitFor(t, func() bool { return b.Transcript() == "hello" })
	require.NoError(t, b.Stop())
	require.Equal(t, "hello", b.Transcript())
	require.Equal(t, 1, stub.calls())
}

func TestWhisper_InterimReplacedByFinal(t *testing.T) {
	stub := &stubTranscriber{replies: []string{"buy", "Buy milk."}}
	w := newWhisper(stub.transcribe, true, 200*time.Millisecond, discardLogger())
	w.interimEvery = 10 * time.Millisecond
	w.minInterim = 50 * time.Millisecond
	events := &eventLog{}

	session, err := w.Start(context.Background(), dictation.DefaultConfig(), events.events())
	require.NoError(t, err)

	half := int((100 * time.Millisecond).Seconds() * SampleRate)
	session.Feed(tone(half))
	waitFor(t, func() bool { return len(events.Transcripts()) == 1 })
	session.Feed(tone(half))
	waitFor(t, func() bool { return len(events.Transcripts()) == 2 })

	require.Equal(t, []string{"buy", "Buy milk."}, events.Transcripts())
	require.NoError(t, session.Stop())
	require.Equal(t, 2, stub.calls())
}

func TestWhisper_NoInterimWhenDisabled(t *testing.T) {
	stub := &stubTranscriber{replies: []string{"hello"}}
	w := newWhisper(stub.transcribe, true, 5*time.Second, discardLogger())
	w.interimEvery = 10 * time.Millisecond

	cfg := dictation.DefaultConfig()
	cfg.InterimResults = false
	session, err := w.Start(context.Background(), cfg, dictation.Events{})
	require.NoError(t, err)
	session.Feed(tone(3 * SampleRate))

	require.Never(t, func() bool { return stub.calls() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, session.Stop())
}
