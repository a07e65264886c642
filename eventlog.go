package go_file_chat

import (
    "fmt"
    "io"
    "os"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/diode"
)

// Size of the ring buffer between sessions and the event log file.
const eventLogBufferSize = 1024

// EventLog is the append-only record of connections, disconnections and
// received lines.
//
// Writing to the log never blocks sessions nor reports errors to them.
// When the writer falls behind, events are dropped. A nil `*EventLog`
// discards everything.
type EventLog struct {
    logger zerolog.Logger

    // closer releases the file (and the diode), if any.
    closer io.Closer
}

// OpenEventLog append events, as JSON lines, to the file at `path`.
func OpenEventLog(path string) (*EventLog, error) {
    f, err := os.OpenFile(path, os.O_APPEND | os.O_CREATE | os.O_WRONLY, 0644)
    if err != nil {
        return nil, fmt.Errorf("open event log: %w", err)
    }

    w := diode.NewWriter(f, eventLogBufferSize, 10 * time.Millisecond, func(missed int) {
        fmt.Fprintf(os.Stderr, "go_file_chat/eventlog: dropped %d events\n", missed)
    })

    return &EventLog {
        logger: zerolog.New(w).With().Timestamp().Logger(),
        closer: w,
    }, nil
}

// NewEventLog write events synchronously to `w`.
func NewEventLog(w io.Writer) *EventLog {
    return &EventLog {
        logger: zerolog.New(w).With().Timestamp().Logger(),
    }
}

// Connect record that `name` connected from `remote`.
func (e *EventLog) Connect(name, remote string) {
    if e == nil {
        return
    }
    e.logger.Log().
        Str("event", "connect").
        Str("name", name).
        Str("remote", remote).
        Send()
}

// Disconnect record that `name` disconnected.
func (e *EventLog) Disconnect(name, remote string) {
    if e == nil {
        return
    }
    e.logger.Log().
        Str("event", "disconnect").
        Str("name", name).
        Str("remote", remote).
        Send()
}

// Message record a line received from `name`, before it's routed.
func (e *EventLog) Message(name, remote, line string) {
    if e == nil {
        return
    }
    e.logger.Log().
        Str("event", "message").
        Str("name", name).
        Str("remote", remote).
        Str("line", line).
        Send()
}

// Close flush pending events and close the file.
func (e *EventLog) Close() error {
    if e == nil || e.closer == nil {
        return nil
    }
    return e.closer.Close()
}
