// Package gorilla_ws_conn implements the Conn interface from
// https://github.com/SirGFM/go-file-chat over a WebSocket connection
// from https://github.com/gorilla/websocket.
//
// Text messages carry chat lines and commands, while binary messages
// carry file transfer frames.
package gorilla_ws_conn

import (
    gochat "github.com/SirGFM/go-file-chat"
    gows "github.com/gorilla/websocket"
    "github.com/rs/zerolog"
    "net/http"
    "sync"
    "sync/atomic"
    "time"
)

// defaultPing is sent on ping messages as the application data.
const defaultPing = "go_file_chat says hi"

// How long control messages may wait for a concurrent writer.
const controlTimeout = time.Second

// gwsConn wrap a gorilla/ws connection into a gochat.Conn.
type gwsConn struct {
    // The gorilla WebSocket connection.
    conn *gows.Conn

    // Address of the remote endpoint.
    remote string

    // How long the connection waits until sending a ping back to the
    // remote endpoint. Zero disables the detection of idle connections.
    timeout time.Duration

    // ticker generates a message on a channel if `timeout` elapsed without
    // receiving any message.
    ticker *time.Ticker

    // timeoutCount counts the number of consecutive timeouts that happened.
    timeoutCount uint32

    // sendMutex synchronizes write operations on `conn`.
    sendMutex sync.Mutex

    // Whether the connection is currently active.
    active uint32

    // stop signals, by getting closed, that the connection should get
    // closed.
    stop chan struct{}

    logger zerolog.Logger
}

// isActive check if the connection is still active.
func (c *gwsConn) isActive() bool {
    return atomic.LoadUint32(&c.active) == 1
}

// Close the connection.
//
// `WriteControl` and `Close` may be called concurrently with any other
// method, so this doesn't wait for `sendMutex`. Closing the socket also
// releases any writer blocked on a peer that stopped reading.
func (c *gwsConn) Close() error {
    if atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        c.conn.WriteControl(gows.CloseMessage,
                gows.FormatCloseMessage(gows.CloseNormalClosure, ""),
                time.Now().Add(controlTimeout))
        c.conn.Close()

        if c.ticker != nil {
            c.ticker.Stop()
        }
        close(c.stop)
    }

    return nil
}

// RemoteAddr describe the remote endpoint.
func (c *gwsConn) RemoteAddr() string {
    return c.remote
}

// resetTimeout reset the last timeout.
//
// This must be called whenever this connections receives any message from
// its remote endpoint.
func (c *gwsConn) resetTimeout() {
    if c.ticker == nil {
        return
    }
    atomic.StoreUint32(&c.timeoutCount, 0)
    c.ticker.Reset(c.timeout)
}

// Recv blocks until a new message was received.
func (c *gwsConn) Recv() (gochat.Message, error) {
    for c.isActive() {
        typ, data, err := c.conn.ReadMessage()
        if err != nil {
            if c.isActive() && !gows.IsCloseError(err, gows.CloseNormalClosure, gows.CloseGoingAway) {
                c.logger.Debug().Err(err).Msg("websocket read failed")
            }
            c.Close()
            return gochat.Message{}, gochat.ConnEOF
        }

        c.resetTimeout()

        switch typ {
        case gows.TextMessage:
            return gochat.Message {
                Type: gochat.MessageText,
                Data: data,
            }, nil
        case gows.BinaryMessage:
            return gochat.Message {
                Type: gochat.MessageFrame,
                Data: data,
            }, nil
        default:
            continue
        }
    }

    return gochat.Message{}, gochat.ConnEOF
}

// send the message, properly synchronizing the connection.
func (c *gwsConn) send(mType int, data []byte) error {
    c.sendMutex.Lock()
    defer c.sendMutex.Unlock()

    if !c.isActive() {
        return gochat.ConnEOF
    }
    return c.conn.WriteMessage(mType, data)
}

// Send `msg`, as a binary message if it's a frame or as a text message
// otherwise.
func (c *gwsConn) Send(msg gochat.Message) error {
    mType := gows.TextMessage
    if msg.Type == gochat.MessageFrame {
        mType = gows.BinaryMessage
    }

    return c.send(mType, msg.Data)
}

// SendStr send `msg`, previously formatted by the caller.
func (c *gwsConn) SendStr(msg string) error {
    return c.send(gows.TextMessage, []byte(msg))
}

// detectTimeout wait some time checking if the connection timed out.
//
// After two consecutive timeouts, the connection is automatically closed.
func (c *gwsConn) detectTimeout() {
    for c.isActive() {
        select {
        case <-c.ticker.C:
            if atomic.CompareAndSwapUint32(&c.timeoutCount, 0, 1) {
                // Try to ping the remote endpoint and see if there's any
                // response.
                err := c.control(gows.PingMessage, []byte(defaultPing))
                if err != nil {
                    c.logger.Warn().Err(err).Msg("couldn't ping on timeout")
                    c.Close()
                }
            } else {
                // This is the second time that this connection timed out,
                // so just close it.
                c.logger.Info().Msg("closing idle websocket")
                c.Close()
            }
        case <-c.stop:
            /* Do nothing and simply exit */
        }
    }
}

// control send a control message without waiting for `sendMutex`, so
// it's never stuck behind a blocked data message.
func (c *gwsConn) control(mType int, data []byte) error {
    if !c.isActive() {
        return gochat.ConnEOF
    }

    err := c.conn.WriteControl(mType, data, time.Now().Add(controlTimeout))
    if err == gows.ErrCloseSent {
        return nil
    }
    return err
}

// ping handle received ping messages.
//
// The WebSocket protocol defines that the receiver must respond with a
// pong with the same `appData` as received.
func (c *gwsConn) ping(appData string) error {
    c.resetTimeout()

    if err := c.control(gows.PongMessage, []byte(appData)); err != nil && c.isActive() {
        c.logger.Debug().Err(err).Msg("couldn't pong")
    }
    return nil
}

// pong handle received pong messages, which only count as activity.
func (c *gwsConn) pong(appData string) error {
    c.resetTimeout()
    return nil
}

// Wrap an already established gorilla WebSocket into a Chat Connection.
//
// If `timeout` is positive, the connection first pings its remote
// endpoint after `timeout` without receiving any message, and closes
// after a second `timeout` without a response.
func Wrap(conn *gows.Conn, timeout time.Duration, logger zerolog.Logger) gochat.Conn {
    c := &gwsConn {
        conn: conn,
        remote: conn.RemoteAddr().String(),
        timeout: timeout,
        active: 1,
        stop: make(chan struct{}),
        logger: logger,
    }
    conn.SetPingHandler(c.ping)
    conn.SetPongHandler(c.pong)

    // Gorilla/ws's documentation specifies that if `SetReadDeadline` is
    // set and a read times out, the websocket becomes corrupt. Therefore
    // timeouts are detected manually.
    if timeout > 0 {
        c.ticker = time.NewTicker(timeout)
        go c.detectTimeout()
    }

    return c
}

// Upgrade a HTTP connection to a Chat Connection.
//
// The supplied `upgrader` is used to upgrade the HTTP request into a
// WebSocket connection. See `Wrap` for `timeout`.
func NewConn(upgrader gows.Upgrader, timeout time.Duration, logger zerolog.Logger,
        w http.ResponseWriter, req *http.Request) (gochat.Conn, error) {

    conn, err := upgrader.Upgrade(w, req, nil)
    if err != nil {
        return nil, err
    }

    return Wrap(conn, timeout, logger), nil
}
