package lgr

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/natefinch/lumberjack"
)

// Logger is the process-wide logger. It is usable before Init is called.
var Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type Options struct {
	Level string
	// File, when set, receives a copy of every record and is rotated.
	File string
	// Component is attached to every record (e.g. "detector" in a child process).
	Component string
}

var rotator *lumberjack.Logger

// Init replaces Logger according to opts. Output goes to stdout as text on a
// terminal and as JSON otherwise.
func Init(opts Options) {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	if opts.File == "" && isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(out, hopts)
	} else {
		handler = slog.NewJSONHandler(out, hopts)
	}

	logger := slog.New(handler)
	if opts.Component != "" {
		logger = logger.With(slog.String("component", opts.Component))
	}
	Logger = logger
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
