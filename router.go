package go_file_chat

import (
    "strings"
)

const (
    // FileListCommand requests the listing of downloadable files.
    FileListCommand = "!filelist"

    // ExitCommand ends the client's session.
    ExitCommand = "$exit"

    // privatePrefix starts a private message: "@name message".
    privatePrefix = "@"
)

// CommandKind classifies a line received from a client.
type CommandKind int

const (
    // CmdBroadcast forwards the line to every other client.
    CmdBroadcast CommandKind = iota
    // CmdFileList replies with the list of downloadable files.
    CmdFileList
    // CmdPrivate forwards the body to a single client.
    CmdPrivate
    // CmdDownload starts sending a file to the client.
    CmdDownload
    // CmdExit closes the session.
    CmdExit
)

func (k CommandKind) String() string {
    switch k {
    case CmdBroadcast:
        return "broadcast"
    case CmdFileList:
        return "filelist"
    case CmdPrivate:
        return "private"
    case CmdDownload:
        return "download"
    case CmdExit:
        return "exit"
    default:
        return "unknown"
    }
}

// Command is a line received from a client, already classified.
type Command struct {
    Kind CommandKind

    // The line as received.
    Line string

    // Recipient and Body of a private message.
    Recipient string
    Body string

    // Filename and sequence token of a download request. The token is
    // currently ignored; every download starts from the first chunk.
    Filename string
    Seq string
}

// Classify the line `line`. See `CommandKind` for the possible results.
func Classify(line string) Command {
    cmd := Command {
        Kind: CmdBroadcast,
        Line: line,
    }

    switch {
    case line == FileListCommand:
        cmd.Kind = CmdFileList
    case strings.HasPrefix(line, privatePrefix) && strings.Contains(line, " "):
        to, body, _ := strings.Cut(line[len(privatePrefix):], " ")
        cmd.Kind = CmdPrivate
        cmd.Recipient = to
        cmd.Body = body
    case line == ExitCommand:
        cmd.Kind = CmdExit
    case strings.Contains(line, " "):
        name, seq, _ := strings.Cut(line, " ")
        cmd.Kind = CmdDownload
        cmd.Filename = name
        cmd.Seq = seq
    }

    return cmd
}

// FormatBroadcast format a chat line from `from` as received by others.
func FormatBroadcast(from, line string) string {
    return from + ": " + line
}

// FormatPrivate format a private message from `from`.
func FormatPrivate(from, body string) string {
    return "(Private from " + from + "): " + body
}

// route dispatch a single line received by the session.
//
// Only errors on the session's own connection are returned; those end
// the session.
func (s *Session) route(line string) error {
    cmd := Classify(line)

    s.logger.Debug().
        Str("command", cmd.Kind.String()).
        Msg("routing line")

    switch cmd.Kind {
    case CmdFileList:
        return s.sendFileList()
    case CmdPrivate:
        err := s.registry.Whisper(cmd.Recipient, FormatPrivate(s.name, cmd.Body))
        if err == UnknownUser {
            return s.SendStr("User '" + cmd.Recipient + "' not found.")
        } else if err != nil {
            // The recipient will notice on its own receive loop.
            s.logger.Debug().
                Err(err).
                Str("to", cmd.Recipient).
                Msg("private message delivery failed")
        }
        return nil
    case CmdDownload:
        return s.sendFile(cmd.Filename)
    case CmdExit:
        return ConnEOF
    default:
        s.registry.Broadcast(FormatBroadcast(s.name, line), s.name)
        return nil
    }
}
