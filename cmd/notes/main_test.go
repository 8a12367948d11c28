package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voicenotes/internal/dictation"
	"voicenotes/internal/notes"
	"voicenotes/internal/speech"

	"github.com/atotto/clipboard"
	"github.com/stretchr/testify/require"
)

func clipboardUnsupported() bool { return clipboard.Unsupported }

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("STORAGE_KEY", "notes")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DICTATION_PROVIDER", "")
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	verbose, listJSON, listSearch = false, false, ""
	dictateAudio, dictateSave, dictateSettle = "", false, 0

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func listNotes(t *testing.T, args ...string) []notes.Note {
	t.Helper()
	out, err := run(t, "", append([]string{"list", "--json"}, args...)...)
	require.NoError(t, err)
	var got []notes.Note
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	return got
}

func TestAddListRm(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "", "add", "Buy", "milk")
	require.NoError(t, err)
	require.Contains(t, out, "Note saved: ")

	_, err = run(t, "Call mom\nafter work\n", "add")
	require.NoError(t, err)

	got := listNotes(t)
	require.Len(t, got, 2)
	require.Equal(t, "Call mom\nafter work", got[0].Content)
	require.Equal(t, "Buy milk", got[1].Content)

	filtered := listNotes(t, "--search", "MILK")
	require.Len(t, filtered, 1)

	out, err = run(t, "", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Call mom …")
	require.Contains(t, out, got[1].ID)

	out, err = run(t, "", "rm", got[1].ID)
	require.NoError(t, err)
	require.Contains(t, out, "Note deleted: "+got[1].ID)
	require.Len(t, listNotes(t), 1)

	out, err = run(t, "", "rm", "missing")
	require.NoError(t, err)
	require.Contains(t, out, "No note with ID missing")

	_, err = os.Stat(filepath.Join(dir, "notes.json"))
	require.NoError(t, err)
}

func TestAddRejectsBlank(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "   \n", "add")
	require.ErrorIs(t, err, notes.ErrEmptyContent)
	require.Empty(t, listNotes(t))
}

// echoRecognizer reports how much audio it has heard after every Feed.
type echoRecognizer struct{}

func (echoRecognizer) Available() bool { return true }

func (echoRecognizer) Start(_ context.Context, _ dictation.Config, events dictation.Events) (dictation.Session, error) {
	return &echoSession{events: events}, nil
}

type echoSession struct {
	events dictation.Events
	heard  int
}

func (s *echoSession) Feed(pcm []byte) {
	s.heard += len(pcm)
	s.events.OnResult([]dictation.Result{{
		Alternatives: []dictation.Alternative{{Transcript: fmt.Sprintf("heard %d bytes", s.heard)}},
	}})
}

func (s *echoSession) Stop() error { return nil }

func TestDictate(t *testing.T) {
	setupEnv(t)
	orig := newRecognizer
	t.Cleanup(func() { newRecognizer = orig })
	newRecognizer = func(speech.Options) (dictation.Recognizer, error) { return echoRecognizer{}, nil }

	audio := filepath.Join(t.TempDir(), "clip.pcm")
	require.NoError(t, os.WriteFile(audio, make([]byte, dictateChunkBytes+100), 0o644))

	out, err := run(t, "", "dictate", "--audio", audio, "--settle", "0s")
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("heard %d bytes\n", dictateChunkBytes+100), out)
	require.Empty(t, listNotes(t))

	_, err = run(t, string(make([]byte, 10)), "dictate", "--audio", "-", "--save", "--settle", "0s")
	require.NoError(t, err)
	saved := listNotes(t)
	require.Len(t, saved, 1)
	require.Equal(t, "heard 10 bytes", saved[0].Content)
}

func TestDictateUnavailable(t *testing.T) {
	setupEnv(t)
	audio := filepath.Join(t.TempDir(), "clip.pcm")
	require.NoError(t, os.WriteFile(audio, make([]byte, 10), 0o644))

	_, err := run(t, "", "dictate", "--audio", audio)
	require.ErrorIs(t, err, dictation.ErrCapabilityUnavailable)

	_, err = run(t, "", "dictate")
	require.ErrorContains(t, err, "--audio is required")
}

func TestCp(t *testing.T) {
	setupEnv(t)
	if clipboardUnsupported() {
		t.Skip("no clipboard on this system")
	}
	var copied string
	orig := writeClipboard
	t.Cleanup(func() { writeClipboard = orig })
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}

	_, err := run(t, "", "add", "Buy milk")
	require.NoError(t, err)
	id := listNotes(t)[0].ID

	out, err := run(t, "", "cp", id)
	require.NoError(t, err)
	require.Contains(t, out, "Copied note "+id)
	require.Equal(t, "Buy milk", copied)

	_, err = run(t, "", "cp", "missing")
	require.ErrorIs(t, err, notes.ErrNoteNotFound)
}
