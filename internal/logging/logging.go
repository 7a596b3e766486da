package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Setup builds the debug logger. With debug disabled all events are
// discarded; enabled, they append to path (default ~/.dafgen/dafgen.log)
// so the terminal stays free for the status line. The returned closer
// must be called on shutdown.
func Setup(debug bool, path string) (zerolog.Logger, func(), error) {
	if !debug {
		return zerolog.New(io.Discard), func() {}, nil
	}

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return zerolog.New(io.Discard), func() {}, err
		}
		path = filepath.Join(home, ".dafgen", "dafgen.log")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.New(io.Discard), func() {}, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.New(io.Discard), func() {}, err
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(file).With().Timestamp().Logger()

	return logger, func() { _ = file.Close() }, nil
}
