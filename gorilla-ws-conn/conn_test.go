package gorilla_ws_conn

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    gochat "github.com/SirGFM/go-file-chat"
    gows "github.com/gorilla/websocket"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// echoServer start a server that echoes every message back, through a
// gochat.Conn. Every connection's error is sent to `done`.
func echoServer(t *testing.T, timeout time.Duration, done chan<- error) string {
    t.Helper()

    handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
        conn, err := NewConn(gows.Upgrader{}, timeout, zerolog.Nop(), w, req)
        if err != nil {
            done <- err
            return
        }
        defer conn.Close()

        for {
            msg, err := conn.Recv()
            if err != nil {
                done <- err
                return
            }
            if err := conn.Send(msg); err != nil {
                done <- err
                return
            }
        }
    })

    srv := httptest.NewServer(handler)
    t.Cleanup(srv.Close)

    return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestEcho(t *testing.T) {
    done := make(chan error, 1)
    url := echoServer(t, 0, done)

    client, _, err := gows.DefaultDialer.Dial(url, nil)
    require.NoError(t, err)
    defer client.Close()

    require.NoError(t, client.WriteMessage(gows.TextMessage, []byte("hello")))
    typ, data, err := client.ReadMessage()
    require.NoError(t, err)
    assert.Equal(t, gows.TextMessage, typ)
    assert.Equal(t, "hello", string(data))

    frame := gochat.EncodeFrame(1, []byte("chunk"))
    require.NoError(t, client.WriteMessage(gows.BinaryMessage, frame))
    typ, data, err = client.ReadMessage()
    require.NoError(t, err)
    assert.Equal(t, gows.BinaryMessage, typ)
    assert.Equal(t, frame, data)

    client.WriteControl(gows.CloseMessage,
            gows.FormatCloseMessage(gows.CloseNormalClosure, ""),
            time.Now().Add(time.Second))

    select {
    case err := <-done:
        assert.ErrorIs(t, err, gochat.ConnEOF)
    case <-time.After(time.Second):
        t.Fatal("Server didn't notice the closed connection")
    }
}

func TestIdleTimeout(t *testing.T) {
    const timeout = 20 * time.Millisecond

    done := make(chan error, 1)
    url := echoServer(t, timeout, done)

    client, _, err := gows.DefaultDialer.Dial(url, nil)
    require.NoError(t, err)
    defer client.Close()

    pinged := make(chan struct{}, 1)
    client.SetPingHandler(func(string) error {
        select {
        case pinged <- struct{}{}:
        default:
        }
        // Never answer, so the server gives up.
        return nil
    })

    // Ping handlers only run while reading.
    go func() {
        for {
            if _, _, err := client.ReadMessage(); err != nil {
                return
            }
        }
    } ()

    select {
    case <-pinged:
    case <-time.After(time.Second):
        t.Fatal("Server didn't ping the idle connection")
    }

    select {
    case err := <-done:
        assert.ErrorIs(t, err, gochat.ConnEOF)
    case <-time.After(time.Second):
        t.Fatal("Server didn't close the idle connection")
    }
}

// TestCloseStalledWriter check that closing a connection releases a
// writer blocked on a peer that stopped reading.
func TestCloseStalledWriter(t *testing.T) {
    conns := make(chan gochat.Conn, 1)
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
        conn, err := NewConn(gows.Upgrader{}, 0, zerolog.Nop(), w, req)
        if err == nil {
            conns <- conn
        }
    }))
    defer srv.Close()

    client, _, err := gows.DefaultDialer.Dial("ws" + strings.TrimPrefix(srv.URL, "http"), nil)
    require.NoError(t, err)
    defer client.Close()

    var conn gochat.Conn
    select {
    case conn = <-conns:
    case <-time.After(time.Second):
        t.Fatal("Server didn't accept the connection")
    }

    // The client never reads, so the socket's buffers eventually fill up.
    sendErr := make(chan error, 1)
    go func() {
        chunk := make([]byte, 1 << 20)
        for i := 0; i < 256; i++ {
            if err := conn.Send(gochat.FrameMessage(chunk)); err != nil {
                sendErr <- err
                return
            }
        }
        sendErr <- nil
    } ()
    time.Sleep(100 * time.Millisecond)

    closed := make(chan error, 1)
    go func() {
        closed <- conn.Close()
    } ()

    select {
    case err := <-closed:
        assert.NoError(t, err)
    case <-time.After(3 * time.Second):
        t.Fatal("Close blocked behind a stalled writer")
    }

    select {
    case <-sendErr:
    case <-time.After(3 * time.Second):
        t.Fatal("Writer wasn't released")
    }

    assert.ErrorIs(t, conn.SendStr("hi"), gochat.ConnEOF)
}
