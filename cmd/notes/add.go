package main

import (
	"fmt"
	"io"
	"strings"

	"voicenotes/internal/notes"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Save a new note",
	Long:  `Add saves its arguments as one note. With no arguments the note is read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			content = strings.TrimRight(string(data), "\n")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		note, err := a.svc.Create(cmd.Context(), notes.CreateNoteInput{Content: content})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note saved: %s\n", note.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
