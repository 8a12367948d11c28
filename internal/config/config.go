package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel slog.Level

	// Storage
	StorageBackend string // "file" | "memory" | "mongo" | "postgres"
	DataDir        string
	StorageKey     string
	MongoURI       string
	MongoDatabase  string
	DatabaseURL    string

	// Dictation
	DictationProvider string // "" picks the first provider with a key
	DictationLanguage string
	DeepgramAPIKey    string
	OpenAIAPIKey      string
	WhisperSegment    time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:              getEnv("PORT", "7521"),
		LogLevel:          getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		StorageBackend:    strings.ToLower(getEnv("STORAGE_BACKEND", "file")),
		DataDir:           getEnv("DATA_DIR", "./data"),
		StorageKey:        getEnv("STORAGE_KEY", "notes"),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "voicenotes"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DictationProvider: strings.ToLower(getEnv("DICTATION_PROVIDER", "")),
		DictationLanguage: getEnv("DICTATION_LANGUAGE", "en-GB"),
		DeepgramAPIKey:    getEnv("DEEPGRAM_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		WhisperSegment:    getEnvDuration("WHISPER_SEGMENT", 5*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return lvl
}
