package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicenotes/internal/config"
	"voicenotes/internal/dictation"
	mcpserver "voicenotes/internal/mcp"
	"voicenotes/internal/notes"
	"voicenotes/internal/speech"
	"voicenotes/internal/storage"

	"github.com/mark3labs/mcp-go/server"
)

//go:embed static
var staticFS embed.FS

func main() {
	// Config
	cfg := config.Load()

	// Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Context for startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Open storage
	logger.Info("opening storage", "backend", cfg.StorageBackend)
	st, err := storage.Open(ctx, storage.Options{
		Backend:       cfg.StorageBackend,
		DataDir:       cfg.DataDir,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		DatabaseURL:   cfg.DatabaseURL,
	})
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer st.Close()

	// Load notes; a bad blob is not fatal
	store := notes.NewStore(st, notes.WithKey(cfg.StorageKey))
	loaded, err := store.Load(ctx)
	if err != nil {
		logger.Warn("starting with an empty note collection", "key", cfg.StorageKey, "error", err)
	}
	logger.Info("notes loaded", "count", len(loaded))

	// Wire dependencies
	noteSvc := notes.NewService(store, logger)
	noteHandler := notes.NewHandler(noteSvc, logger)

	recognizer, err := speech.New(speech.Options{
		Provider:       cfg.DictationProvider,
		DeepgramAPIKey: cfg.DeepgramAPIKey,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		WhisperSegment: cfg.WhisperSegment,
		Log:            logger,
	})
	if err != nil {
		logger.Warn("dictation disabled", "error", err)
		recognizer = speech.Unavailable{}
	}
	logger.Info("dictation provider", "name", speech.Name(recognizer), "language", cfg.DictationLanguage)
	bridge := dictation.NewBridge(recognizer,
		dictation.WithLanguage(cfg.DictationLanguage),
		dictation.WithLogger(logger),
	)
	dictationHandler := dictation.NewHandler(bridge, logger)

	// Create MCP server
	mcpSrv := mcpserver.NewServer(noteSvc)

	// HTTP router
	mux := http.NewServeMux()

	// Static files
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to get static fs: %v", err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))

	// REST API, HTMX web UI and dictation endpoints
	noteHandler.Register(mux)
	dictationHandler.Register(mux)

	// MCP endpoint (HTTP transport)
	// MCP uses POST for requests and GET for SSE streams
	mcpHTTP := server.NewStreamableHTTPServer(mcpSrv)
	mux.Handle("POST /mcp", mcpHTTP)
	mux.Handle("GET /mcp", mcpHTTP)
	mux.Handle("DELETE /mcp", mcpHTTP)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Start server. No WriteTimeout: the dictation socket stays open for the
	// whole recording.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down server...")
		if err := bridge.Stop(); err != nil && err != dictation.ErrNotRecording {
			logger.Warn("failed to stop dictation", "error", err)
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port)
	logger.Info("endpoints available",
		"web", "http://localhost:"+cfg.Port,
		"api", "http://localhost:"+cfg.Port+"/api",
		"mcp", "http://localhost:"+cfg.Port+"/mcp",
	)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	logger.Info("server stopped")
}
