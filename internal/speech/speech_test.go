package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mewkiz/flac"
	"github.com/stretchr/testify/require"

	"voicenotes/internal/dictation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr string
	}{
		{name: "no keys", opts: Options{}, want: "none"},
		{name: "deepgram key wins", opts: Options{DeepgramAPIKey: "dg", OpenAIAPIKey: "sk"}, want: "deepgram"},
		{name: "openai key", opts: Options{OpenAIAPIKey: "sk"}, want: "whisper"},
		{name: "explicit whisper", opts: Options{Provider: "Whisper", DeepgramAPIKey: "dg", OpenAIAPIKey: "sk"}, want: "whisper"},
		{name: "explicit none", opts: Options{Provider: "none", DeepgramAPIKey: "dg"}, want: "none"},
		{name: "missing key", opts: Options{Provider: "deepgram"}, wantErr: "DEEPGRAM_API_KEY"},
		{name: "unknown", opts: Options{Provider: "siri"}, wantErr: "unknown dictation provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Log = discardLogger()
			rec, err := New(tt.opts)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, Name(rec))
		})
	}
}

func TestUnavailable(t *testing.T) {
	var rec dictation.Recognizer = Unavailable{}
	require.False(t, rec.Available())
	_, err := rec.Start(context.Background(), dictation.DefaultConfig(), dictation.Events{})
	require.ErrorIs(t, err, dictation.ErrCapabilityUnavailable)

	b := dictation.NewBridge(rec, dictation.WithLogger(discardLogger()))
	require.ErrorIs(t, b.Start(context.Background(), dictation.Listener{}), dictation.ErrCapabilityUnavailable)
}

func TestBaseLanguage(t *testing.T) {
	for tag, want := range map[string]string{
		"en-GB":   "en",
		"fr":      "fr",
		"pt-BR":   "pt",
		"":        "",
		"!!nope!": "",
	} {
		require.Equal(t, want, baseLanguage(tag), tag)
	}
}

// tone returns n samples of a square wave as PCM16LE.
func tone(n int) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(1200)
		if (i/40)%2 == 0 {
			v = -1200
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestEncodeFLAC(t *testing.T) {
	pcm := tone(flacBlockSize + 1000)

	data, err := encodeFLAC(pcm)
	require.NoError(t, err)
	require.Equal(t, "fLaC", string(data[:4]))

	stream, err := flac.New(bytes.NewReader(data))
	require.NoError(t, err)
	require.EqualValues(t, SampleRate, stream.Info.SampleRate)
	require.EqualValues(t, Channels, stream.Info.NChannels)

	var decoded []byte
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		for _, s := range f.Subframes[0].Samples {
			decoded = binary.LittleEndian.AppendUint16(decoded, uint16(int16(s)))
		}
	}
	require.Equal(t, pcm, decoded)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond)
}
