package observability

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleWriter is the human-readable output used outside JSON mode.
func ConsoleWriter(out io.Writer, noColor, timestamp bool) zerolog.ConsoleWriter {
	w := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
	if !timestamp {
		w.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	return w
}

func InitLogger(app string, out io.Writer, timestamp bool) zerolog.Logger {
	ctx := zerolog.New(out).With()
	if timestamp {
		ctx = ctx.Timestamp()
	}
	if app != "" {
		ctx = ctx.Str("app", app)
	}
	return ctx.Logger()
}
