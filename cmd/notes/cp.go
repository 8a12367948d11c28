package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

var cpCmd = &cobra.Command{
	Use:   "cp [id]",
	Short: "Copy a note's content to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if clipboard.Unsupported {
			return fmt.Errorf("no clipboard available on this system")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		note, err := a.svc.GetByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := writeClipboard(note.Content); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Copied note %s\n", note.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}
