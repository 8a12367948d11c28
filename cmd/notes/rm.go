package main

import (
	"errors"
	"fmt"

	"voicenotes/internal/notes"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a note",
	Long:  `Rm removes the note with the given ID. An unknown ID is reported but is not an error.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.svc.GetByID(cmd.Context(), id); errors.Is(err, notes.ErrNoteNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "No note with ID %s\n", id)
			return nil
		}
		if err := a.svc.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
