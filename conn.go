package go_file_chat

import (
    "io"
)

// MessageType tells apart the two kinds of message exchanged over a `Conn`.
type MessageType byte

const (
    // MessageText is a UTF-8 command, chat line or notice.
    MessageText MessageType = 't'
    // MessageFrame is a binary transfer frame (see `EncodeFrame`).
    MessageFrame MessageType = 'f'
)

// Message is a single logical message received from or sent to a `Conn`.
type Message struct {
    Type MessageType
    Data []byte
}

// TextMessage create a text message from `msg`.
func TextMessage(msg string) Message {
    return Message {
        Type: MessageText,
        Data: []byte(msg),
    }
}

// FrameMessage create a binary message from an encoded frame.
func FrameMessage(frame []byte) Message {
    return Message {
        Type: MessageFrame,
        Data: frame,
    }
}

// Text retrieve the message's data as a string.
func (m Message) Text() string {
    return string(m.Data)
}

// Conn is a generic, message oriented, duplex connection.
//
// Implementations must deliver whole messages: a single `Recv` returns
// exactly what a single `Send` on the remote endpoint sent. `Send` and
// `SendStr` may be called concurrently from different goroutines, and
// `Close` may safely be called multiple times.
type Conn interface {
    io.Closer

    // Recv blocks until a new message was received.
    Recv() (Message, error)

    // Send `msg` to the remote endpoint.
    Send(msg Message) error

    // SendStr send `msg`, previously formatted by the caller, as a text
    // message.
    SendStr(msg string) error

    // RemoteAddr describe the remote endpoint, for logging purposes.
    RemoteAddr() string
}
