package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"voicenotes/internal/dictation"
	"voicenotes/internal/notes"
	"voicenotes/internal/speech"

	"github.com/spf13/cobra"
)

// 200 ms of PCM16LE mono 16 kHz audio.
const dictateChunkBytes = 6400

var (
	dictateAudio  string
	dictateSave   bool
	dictateSettle time.Duration
)

// newRecognizer is replaced in tests.
var newRecognizer = speech.New

var dictateCmd = &cobra.Command{
	Use:   "dictate",
	Short: "Transcribe a raw audio file and optionally save it as a note",
	Long: `Dictate streams a raw PCM16LE mono 16 kHz file ("-" for stdin) through the
configured dictation provider and prints the transcript.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dictateAudio == "" {
			return errors.New("--audio is required")
		}
		var in io.Reader = cmd.InOrStdin()
		if dictateAudio != "-" {
			f, err := os.Open(dictateAudio)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := newRecognizer(speech.Options{
			Provider:       a.cfg.DictationProvider,
			DeepgramAPIKey: a.cfg.DeepgramAPIKey,
			OpenAIAPIKey:   a.cfg.OpenAIAPIKey,
			WhisperSegment: a.cfg.WhisperSegment,
			Log:            slog.Default(),
		})
		if err != nil {
			return err
		}
		bridge := dictation.NewBridge(rec,
			dictation.WithLanguage(a.cfg.DictationLanguage),
			dictation.WithLogger(slog.Default()),
		)

		err = bridge.Start(cmd.Context(), dictation.Listener{
			Transcript: func(text string) {
				slog.Debug("transcript", "text", text)
			},
			Error: func(err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			},
		})
		if err != nil {
			return err
		}

		buf := make([]byte, dictateChunkBytes)
		for {
			n, rerr := io.ReadFull(in, buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if err := bridge.Feed(chunk); err != nil {
					return err
				}
			}
			if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
				break
			}
			if rerr != nil {
				bridge.Stop()
				return fmt.Errorf("read audio: %w", rerr)
			}
		}

		// Give the provider time to return the last results.
		time.Sleep(dictateSettle)
		if err := bridge.Stop(); err != nil {
			return err
		}

		transcript := bridge.Transcript()
		fmt.Fprintln(cmd.OutOrStdout(), transcript)

		if !dictateSave {
			return nil
		}
		note, err := a.svc.Create(cmd.Context(), notes.CreateNoteInput{Content: transcript})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Note saved: %s\n", note.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dictateCmd)
	dictateCmd.Flags().StringVar(&dictateAudio, "audio", "", "Raw PCM16LE mono 16 kHz file, or - for stdin")
	dictateCmd.Flags().BoolVar(&dictateSave, "save", false, "Save the transcript as a new note")
	dictateCmd.Flags().DurationVar(&dictateSettle, "settle", 2*time.Second, "How long to wait for final results after the audio ends")
}
