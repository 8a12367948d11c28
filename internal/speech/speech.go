// Package speech provides the recognizers behind dictation: Deepgram
// streaming, OpenAI Whisper segments, or nothing at all.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voicenotes/internal/dictation"
)

// Audio format accepted by every session's Feed.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16

	bytesPerSecond = SampleRate * Channels * BitsPerSample / 8
)

var ErrUnknownProvider = errors.New("unknown dictation provider")

type Options struct {
	Provider       string // "", "auto", "deepgram", "whisper", "none"
	DeepgramAPIKey string
	OpenAIAPIKey   string
	WhisperSegment time.Duration
	Log            *slog.Logger
}

// New picks a recognizer. With no explicit provider the first configured API
// key wins; with none configured dictation is unavailable.
func New(opts Options) (dictation.Recognizer, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" || provider == "auto" {
		switch {
		case opts.DeepgramAPIKey != "":
			provider = "deepgram"
		case opts.OpenAIAPIKey != "":
			provider = "whisper"
		default:
			provider = "none"
		}
	}

	switch provider {
	case "deepgram":
		if opts.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("deepgram: DEEPGRAM_API_KEY is not set")
		}
		return NewDeepgram(opts.DeepgramAPIKey, log), nil
	case "whisper", "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("whisper: OPENAI_API_KEY is not set")
		}
		return NewWhisper(opts.OpenAIAPIKey, opts.WhisperSegment, log), nil
	case "none":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}

// Name reports which provider r is, for logs.
func Name(r dictation.Recognizer) string {
	if n, ok := r.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", r)
}

// Unavailable is the recognizer used when no provider is configured.
type Unavailable struct{}

func (Unavailable) Name() string    { return "none" }
func (Unavailable) Available() bool { return false }

func (Unavailable) Start(context.Context, dictation.Config, dictation.Events) (dictation.Session, error) {
	return nil, dictation.ErrCapabilityUnavailable
}

// spaced prefixes every alternative with a space so results concatenate into
// readable text.
func spaced(r dictation.Result) dictation.Result {
	alts := make([]dictation.Alternative, len(r.Alternatives))
	for i, a := range r.Alternatives {
		alts[i] = dictation.Alternative{Transcript: " " + a.Transcript, Confidence: a.Confidence}
	}
	return dictation.Result{Alternatives: alts, Final: r.Final}
}
