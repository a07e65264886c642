package gobwas_ws_conn

import (
    "context"
    "net/http"
    "net/http/httptest"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    gochat "github.com/SirGFM/go-file-chat"
    gochat_gorilla "github.com/SirGFM/go-file-chat/gorilla-ws-conn"
    gows "github.com/gorilla/websocket"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// startChat serve a chat over WebSockets, with `files` available for
// download.
func startChat(t *testing.T, files map[string]string) string {
    t.Helper()

    dir := t.TempDir()
    for name, data := range files {
        require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0644))
    }

    conf := gochat.GetDefaultServerConf()
    conf.DownloadDir = dir
    conf.ChunkSize = 8
    conf.WatchDownloads = false
    chat := gochat.NewServerConf(conf)
    t.Cleanup(func() {
        chat.Close()
    })

    handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
        conn, err := gochat_gorilla.NewConn(gows.Upgrader{}, 0, zerolog.Nop(), w, req)
        if err != nil {
            return
        }
        chat.ConnectAndWait(conn)
    })

    srv := httptest.NewServer(handler)
    t.Cleanup(srv.Close)

    return "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat"
}

// expectLine wait for the client to receive the text message `want`.
func expectLine(t *testing.T, c *gochat.Client, want string) {
    t.Helper()

    select {
    case got, ok := <-c.Lines():
        require.True(t, ok, "connection closed while waiting for '%s'", want)
        require.Equal(t, want, got)
    case <-time.After(time.Second):
        t.Fatalf("Timed out waiting for '%s'", want)
    }
}

// connect `name` to the chat at `url`.
func connect(t *testing.T, url, name, dir string) *gochat.Client {
    t.Helper()

    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()

    conn, err := Dial(ctx, url)
    require.NoError(t, err)

    conf := gochat.GetDefaultClientConf()
    conf.DownloadDir = dir
    c, err := gochat.NewClient(conn, name, conf)
    require.NoError(t, err)
    t.Cleanup(func() {
        c.Close()
    })

    expectLine(t, c, "Welcome to the chat, " + name + "!")
    return c
}

func TestChat(t *testing.T) {
    url := startChat(t, nil)

    alice := connect(t, url, "alice", t.TempDir())
    bob := connect(t, url, "bob", t.TempDir())
    expectLine(t, alice, "bob has joined the chat.")

    require.NoError(t, alice.Send("hello"))
    expectLine(t, bob, "alice: hello")

    require.NoError(t, bob.Close())
    expectLine(t, alice, "bob has left the chat.")
}

func TestDownload(t *testing.T) {
    const data = "a file spanning a few chunks"

    url := startChat(t, map[string]string {"a.txt": data})

    dir := t.TempDir()
    alice := connect(t, url, "alice", dir)

    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()

    require.NoError(t, alice.ReceiveFile(ctx, "a.txt"))
    got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
    require.NoError(t, err)
    assert.Equal(t, data, string(got))

    assert.ErrorIs(t, alice.ReceiveFile(ctx, "missing.dat"), gochat.FileNotFound)
}

func TestDialFailure(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()

    _, err := Dial(ctx, "ws://127.0.0.1:1/chat")
    assert.Error(t, err)
}
