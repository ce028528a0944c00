package bench

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"
)

// SetupLogger installs the default slog logger on stderr: a text handler with short timestamps
// when stderr is a terminal, JSON otherwise.
func SetupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}

	var h slog.Handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: lvl,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.String(slog.TimeKey, a.Value.Time().Format(time.Kitchen))
				}
				return a
			},
		})
	}
	slog.SetDefault(slog.New(h))
	return nil
}
