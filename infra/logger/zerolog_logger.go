package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// zerologLogger adapts rs/zerolog to the core Logger interface. Every entry
// carries the component tag so dispatch, geo and gateway logs can be told
// apart in aggregated output.
type zerologLogger struct {
	z zerolog.Logger
}

// NewZerologLogger builds a logger for one service component. Output is JSON
// by default; APP_ENV=dev switches to the human-readable console format.
func NewZerologLogger(component string) Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).With().Timestamp().Str("component", component).Logger()
	return &zerologLogger{z: z}
}

func (l *zerologLogger) Debugf(format string, args ...any) { l.z.Debug().Msgf(format, args...) }

func (l *zerologLogger) Debugw(msg string, fields map[string]any) {
	l.z.Debug().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Infof(format string, args ...any) { l.z.Info().Msgf(format, args...) }

func (l *zerologLogger) Warnf(format string, args ...any) { l.z.Warn().Msgf(format, args...) }

func (l *zerologLogger) Errorf(format string, args ...any) { l.z.Error().Msgf(format, args...) }
