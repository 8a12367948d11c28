package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"voicenotes/internal/config"
	"voicenotes/internal/notes"
	"voicenotes/internal/storage"

	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: "Create, search and delete notes from the terminal",
	Long: `notes works on the same note collection as the server. Storage is
configured through the environment (STORAGE_BACKEND, DATA_DIR, STORAGE_KEY, ...)
or a .env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := config.Load().LogLevel
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg config.Config
	st  storage.Storage
	svc *notes.Service
}

func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	st, err := storage.Open(ctx, storage.Options{
		Backend:       cfg.StorageBackend,
		DataDir:       cfg.DataDir,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		DatabaseURL:   cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := notes.NewStore(st, notes.WithKey(cfg.StorageKey))
	if _, err := store.Load(ctx); err != nil {
		slog.Warn("starting with an empty note collection", "key", cfg.StorageKey, "error", err)
	}
	return &app{cfg: cfg, st: st, svc: notes.NewService(store, slog.Default())}, nil
}

func (a *app) Close() error {
	return a.st.Close()
}
