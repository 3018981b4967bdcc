package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
)

func newDev(level slog.Level) *slog.Logger {
	opts := &devslog.Options{
		HandlerOptions: &slog.HandlerOptions{
			AddSource: true,
			Level:     level,
		},
		NewLineAfterLog:    true,
		MaxErrorStackTrace: 40,
		MaxSlicePrintSize:  40,
		SortKeys:           true,
		TimeFormat:         "[15:04:05]",
		DebugColor:         devslog.Magenta,
		StringerFormatter:  true,
	}

	return slog.New(devslog.NewHandler(os.Stdout, opts))
}

func newStdJSON(level slog.Level) *slog.Logger {
	return NewJSON(os.Stdout, level)
}

// NewJSON writes JSON records to w. Lambda ships stdout to CloudWatch as is.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop discards every record.
func Noop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
