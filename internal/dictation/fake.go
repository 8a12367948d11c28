package dictation

import (
	"context"
	"sync"
)

// Fake is a scripted Recognizer. Tests drive it with Emit and Fail after the
// bridge has started a session.
type Fake struct {
	mu         sync.Mutex
	available  bool
	startErr   error
	starts     int
	lastConfig Config
	events     Events
	session    *FakeSession
}

func NewFake(available bool) *Fake {
	return &Fake{available: available}
}

func (f *Fake) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *Fake) SetAvailable(v bool) {
	f.mu.Lock()
	f.available = v
	f.mu.Unlock()
}

// FailStart makes the next Start calls return err.
func (f *Fake) FailStart(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *Fake) Start(_ context.Context, cfg Config, events Events) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.lastConfig = cfg
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.events = events
	f.session = &FakeSession{}
	return f.session, nil
}

// Emit delivers a result event carrying the given results. Events from a
// stopped session are still delivered; dropping them is the bridge's job.
func (f *Fake) Emit(results ...Result) {
	f.mu.Lock()
	onResult := f.events.OnResult
	f.mu.Unlock()
	if onResult != nil {
		onResult(results)
	}
}

// EmitText delivers one result per segment, all final.
func (f *Fake) EmitText(segments ...string) {
	results := make([]Result, len(segments))
	for i, s := range segments {
		results[i] = Result{Alternatives: []Alternative{{Transcript: s, Confidence: 1}}, Final: true}
	}
	f.Emit(results...)
}

func (f *Fake) Fail(err error) {
	f.mu.Lock()
	onError := f.events.OnError
	f.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *Fake) LastConfig() Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastConfig
}

// Session returns the most recently started session, or nil.
func (f *Fake) Session() *FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

type FakeSession struct {
	mu      sync.Mutex
	audio   []byte
	stopped bool
	stopErr error
}

func (s *FakeSession) Feed(pcm []byte) {
	s.mu.Lock()
	s.audio = append(s.audio, pcm...)
	s.mu.Unlock()
}

func (s *FakeSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return s.stopErr
}

func (s *FakeSession) FailStop(err error) {
	s.mu.Lock()
	s.stopErr = err
	s.mu.Unlock()
}

func (s *FakeSession) Audio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.audio...)
}

func (s *FakeSession) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
