// Package gobwas_ws_conn implements the Conn interface from
// https://github.com/SirGFM/go-file-chat over the client side of a
// WebSocket connection from https://github.com/gobwas/ws.
package gobwas_ws_conn

import (
    "context"
    "io"
    "net"
    "sync"
    "sync/atomic"

    gochat "github.com/SirGFM/go-file-chat"
    "github.com/gobwas/ws"
    "github.com/gobwas/ws/wsutil"
)

// gbwsConn wrap the client side of a gobwas/ws connection into a
// gochat.Conn.
type gbwsConn struct {
    // The raw connection.
    conn net.Conn

    // reader reads frames, including any data buffered during the
    // handshake.
    reader io.Reader

    // pending messages read together with a previous one.
    pending []wsutil.Message

    // sendMutex synchronizes write operations on `conn`, including pongs
    // sent while receiving.
    sendMutex sync.Mutex

    // Whether the connection is currently active.
    active uint32
}

// Dial connect to the WebSocket endpoint at `url` (e.g.,
// "ws://localhost:8080/chat").
func Dial(ctx context.Context, url string) (gochat.Conn, error) {
    conn, br, _, err := ws.Dial(ctx, url)
    if err != nil {
        return nil, err
    }

    var reader io.Reader = conn
    if br != nil {
        reader = io.MultiReader(br, conn)
    }

    return &gbwsConn {
        conn: conn,
        reader: reader,
        active: 1,
    }, nil
}

// isActive check if the connection is still active.
func (c *gbwsConn) isActive() bool {
    return atomic.LoadUint32(&c.active) == 1
}

// Close the connection, notifying the server.
func (c *gbwsConn) Close() error {
    if atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        c.sendMutex.Lock()
        wsutil.WriteClientMessage(c.conn, ws.OpClose, nil)
        c.sendMutex.Unlock()

        return c.conn.Close()
    }
    return nil
}

// RemoteAddr describe the remote endpoint.
func (c *gbwsConn) RemoteAddr() string {
    return c.conn.RemoteAddr().String()
}

// Recv blocks until a new text or binary message was received. Pings are
// answered while waiting.
func (c *gbwsConn) Recv() (gochat.Message, error) {
    var buf [1]wsutil.Message

    for c.isActive() {
        if len(c.pending) == 0 {
            msgs, err := wsutil.ReadServerMessage(c.reader, buf[:0])
            if err != nil {
                c.Close()
                return gochat.Message{}, gochat.ConnEOF
            }
            c.pending = msgs
        }

        data := c.pending[0]
        c.pending = c.pending[1:]

        switch data.OpCode {
        case ws.OpClose:
            c.Close()
            return gochat.Message{}, gochat.ConnEOF
        case ws.OpPing:
            c.sendMutex.Lock()
            err := wsutil.WriteClientMessage(c.conn, ws.OpPong, data.Payload)
            c.sendMutex.Unlock()
            if err != nil {
                c.Close()
                return gochat.Message{}, gochat.ConnEOF
            }
        case ws.OpText:
            return gochat.Message {
                Type: gochat.MessageText,
                Data: data.Payload,
            }, nil
        case ws.OpBinary:
            return gochat.Message {
                Type: gochat.MessageFrame,
                Data: data.Payload,
            }, nil
        default:
            // Pongs and anything else.
            continue
        }
    }

    return gochat.Message{}, gochat.ConnEOF
}

// send the message, properly synchronizing the connection.
func (c *gbwsConn) send(op ws.OpCode, data []byte) error {
    c.sendMutex.Lock()
    defer c.sendMutex.Unlock()

    if !c.isActive() {
        return gochat.ConnEOF
    }
    return wsutil.WriteClientMessage(c.conn, op, data)
}

// Send `msg`, as a binary message if it's a frame or as a text message
// otherwise.
func (c *gbwsConn) Send(msg gochat.Message) error {
    if msg.Type == gochat.MessageFrame {
        return c.send(ws.OpBinary, msg.Data)
    }
    return c.send(ws.OpText, msg.Data)
}

// SendStr send `msg`, previously formatted by the caller.
func (c *gbwsConn) SendStr(msg string) error {
    return c.send(ws.OpText, []byte(msg))
}
