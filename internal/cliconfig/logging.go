package cliconfig

import (
    "os"
    "time"

    "github.com/rs/zerolog"
)

// Logger returns a console logger on stderr, at debug level if `debug`
// is set and at info level otherwise.
func Logger(debug bool) zerolog.Logger {
    level := zerolog.InfoLevel
    if debug {
        level = zerolog.DebugLevel
    }

    return zerolog.New(zerolog.ConsoleWriter {Out: os.Stderr, TimeFormat: time.RFC3339}).
        Level(level).
        With().
        Timestamp().
        Logger()
}
