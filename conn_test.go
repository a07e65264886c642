package go_file_chat

import (
    "sync/atomic"
    "time"
)

// A simple mock connection, used to test the chat server without an actual
// network connection.
//
// Although sessions use the `Conn` API to use this connection, tests must
// access this structure directly to simulate interactions.
//
// To simulate a message arriving from the client's remote endpoint, push a
// message with `TestSend`:
//
//     c := newMockConn()
//     go srv.ConnectAndWait(c)
//     c.TestSend(TextMessage("alice"))
//
// On the other hand, to simulate a client receiving a message, use
// `TestRecv`, which gives up after a timeout to avoid causing tests to
// hang:
//
//     msg, err := c.TestRecv(time.Second)
type mockConn struct {
    // fromClient simulates incoming messages (from the server's
    // perspective) from the client's remote endpoint.
    fromClient chan Message

    // fromServer simulates outgoing messages (from the server's
    // perspective) to the client's remote endpoint.
    fromServer chan Message

    // stop signals, by getting closed, that the connection got closed.
    stop chan struct{}

    // Whether the connection is currently running.
    running uint32
}

// isClosed check if the connection is closed.
func (mc *mockConn) isClosed() bool {
    return atomic.LoadUint32(&mc.running) == 0
}

// Close the connection.
//
// This can safely be called multiple times without any issue.
func (mc *mockConn) Close() error {
    if atomic.CompareAndSwapUint32(&mc.running, 1, 0) {
        close(mc.stop)
    }
    return nil
}

// RemoteAddr describe the remote endpoint.
func (mc *mockConn) RemoteAddr() string {
    return "mock"
}

// Recv blocks until a new message was received.
func (mc *mockConn) Recv() (Message, error) {
    select {
    case msg := <-mc.fromClient:
        return msg, nil
    case <-mc.stop:
        return Message{}, ConnEOF
    }
}

// Send `msg` to the test.
func (mc *mockConn) Send(msg Message) error {
    if mc.isClosed() {
        return ConnEOF
    }

    select {
    case mc.fromServer <- msg:
        return nil
    case <-mc.stop:
        return ConnEOF
    }
}

// SendStr send `msg`, previously formatted by the caller.
func (mc *mockConn) SendStr(msg string) error {
    return mc.Send(TextMessage(msg))
}

// TestSend send a message from the client to the server, blocking until
// the server receives it.
func (mc *mockConn) TestSend(msg Message) error {
    select {
    case mc.fromClient <- msg:
        return nil
    case <-mc.stop:
        return ConnEOF
    }
}

// TestRecv wait for `timeout` to receive a message from the server.
//
// Messages sent before the connection got closed are still retrieved.
func (mc *mockConn) TestRecv(timeout time.Duration) (Message, error) {
    select {
    case msg := <-mc.fromServer:
        return msg, nil
    default:
    }

    select {
    case msg := <-mc.fromServer:
        return msg, nil
    case <-time.After(timeout):
        return Message{}, TestTimeout
    case <-mc.stop:
        select {
        case msg := <-mc.fromServer:
            return msg, nil
        default:
            return Message{}, ConnEOF
        }
    }
}

// newStalledConn create a mock connection whose remote endpoint never
// reads, so every send blocks until the connection gets closed.
func newStalledConn() *mockConn {
    c := newMockConn()
    c.fromServer = make(chan Message)
    return c
}

// newMockConn create a dummy, mock connection that may be used in tests.
func newMockConn() *mockConn {
    return &mockConn {
        fromClient: make(chan Message),
        fromServer: make(chan Message, 100),
        stop: make(chan struct{}),
        running: 1,
    }
}
