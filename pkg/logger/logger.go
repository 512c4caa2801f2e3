package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Initialize sets up the global logger. Local runs get the console writer,
// everything else logs JSON lines.
func Initialize(appEnv, level string) {
	var out io.Writer = os.Stdout
	if appEnv == "local" || appEnv == "" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.DefaultContextLogger = &log.Logger
}

// Get returns the global logger
func Get() *zerolog.Logger {
	return &log.Logger
}
