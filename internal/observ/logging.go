package observ

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// SetOutput redirects the event log, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// Log emits one structured event line. Every component logs through here so
// the output stays a single JSON stream.
func Log(event string, kv map[string]any) {
	emit(zerolog.InfoLevel, event, kv)
}

// Warn is Log at warning level, used for recovered corruption and skipped
// collaborator failures.
func Warn(event string, kv map[string]any) {
	emit(zerolog.WarnLevel, event, kv)
}

func emit(level zerolog.Level, event string, kv map[string]any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	e := l.WithLevel(level)
	for k, v := range kv {
		e = e.Interface(k, v)
	}
	e.Str("event", event).Send()
}
