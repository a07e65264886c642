package go_file_chat

// Error type for this package.
type ChatError uint

const (
    // The connection was closed, either locally or by the remote endpoint.
    ConnEOF ChatError = iota
    // The name declared by the client was empty.
    InvalidName
    // Another session already registered the requested name.
    UserAlreadyConnected
    // No session is registered with the requested name.
    UnknownUser
    // The requested file doesn't exist in the server's storage.
    FileNotFound
    // The peer failed to acknowledge a chunk too many times in a row.
    TooManyRetries
    // The remote endpoint aborted an in-progress file transfer.
    TransferAborted
    // A record on the stream was larger than the configured limit.
    RecordTooLarge
    // The server already handles as many connections as it's allowed to.
    ServerFull
    // The server was closed.
    ServerClosed
    // Timed out waiting for a message in a test.
    TestTimeout
)

func (c ChatError) Error() string {
    switch c {
    case ConnEOF:
        return "Connection closed"
    case InvalidName:
        return "Invalid name"
    case UserAlreadyConnected:
        return "User already connected"
    case UnknownUser:
        return "Unknown user"
    case FileNotFound:
        return "File not found"
    case TooManyRetries:
        return "Too many retries while waiting for an acknowledgment"
    case TransferAborted:
        return "File transfer aborted"
    case RecordTooLarge:
        return "Record too large"
    case ServerFull:
        return "Server is full"
    case ServerClosed:
        return "Server closed"
    case TestTimeout:
        return "Test timed out"
    default:
        return "Unknown error"
    }
}
