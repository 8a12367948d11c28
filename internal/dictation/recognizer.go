// Package dictation drives a continuous speech-to-text capability and hands
// the accumulated transcript to whichever editor is listening.
package dictation

import (
	"context"
	"fmt"
	"strings"
)

// Config is the configuration surface of a recognizer session.
type Config struct {
	Language        string // BCP 47 tag, e.g. "en-GB"
	Continuous      bool
	InterimResults  bool
	MaxAlternatives int
}

// DefaultConfig is continuous, interim-result, single-best transcription in
// British English.
func DefaultConfig() Config {
	return Config{
		Language:        "en-GB",
		Continuous:      true,
		InterimResults:  true,
		MaxAlternatives: 1,
	}
}

type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is one recognized segment. Non-final results may still be revised
// by later events.
type Result struct {
	Alternatives []Alternative
	Final        bool
}

// Events receives session callbacks. OnResult always carries every result of
// the session so far, in order, not just the newest one.
type Events struct {
	OnResult func(results []Result)
	OnError  func(err error)
}

// Session is one running recognition.
type Session interface {
	// Feed passes PCM16LE mono 16 kHz audio to the recognizer.
	Feed(pcm []byte)
	Stop() error
}

// Recognizer is the platform speech-to-text capability.
type Recognizer interface {
	Available() bool
	Start(ctx context.Context, cfg Config, events Events) (Session, error)
}

// Recognition error codes.
const (
	CodeNoSpeech = "no-speech"
	CodeNetwork  = "network"
	CodeService  = "service"
)

// RecognitionError is a session-level failure. It never ends the session on
// its own.
type RecognitionError struct {
	Code string
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return "recognition error: " + e.Code
	}
	return fmt.Sprintf("recognition error: %s: %v", e.Code, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Transcript concatenates the best alternative of each result in order.
func Transcript(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		if len(r.Alternatives) > 0 {
			b.WriteString(r.Alternatives[0].Transcript)
		}
	}
	return b.String()
}
