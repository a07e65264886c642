package main

import (
    "bytes"
    "io"
    "net/http"
    "net/http/httptest"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    gochat "github.com/SirGFM/go-file-chat"
    "github.com/SirGFM/go-file-chat/internal/cliconfig"
    gows "github.com/gorilla/websocket"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// startWeb serve the chat page and the chat, with `files` available for
// download.
func startWeb(t *testing.T, files map[string]string) string {
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

    cfg := cliconfig.DefaultConfig()
    cfg.WSTimeout = 0
    srv := &webServer {
        chat: chat,
        upgrader: newUpgrader(cfg, zerolog.Nop()),
        logger: zerolog.Nop(),
    }

    httpSrv := httptest.NewServer(srv)
    t.Cleanup(httpSrv.Close)
    return httpSrv.URL
}

// readWS wait for the next message on `ws`.
func readWS(t *testing.T, ws *gows.Conn) (int, []byte) {
    t.Helper()

    require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
    typ, data, err := ws.ReadMessage()
    require.NoError(t, err)
    return typ, data
}

func TestChatPage(t *testing.T) {
    url := startWeb(t, nil)

    for _, uri := range []string {"/", "/chat_page"} {
        resp, err := http.Get(url + uri)
        require.NoError(t, err)
        body, err := io.ReadAll(resp.Body)
        resp.Body.Close()
        require.NoError(t, err)

        assert.Equal(t, http.StatusOK, resp.StatusCode, uri)
        assert.Equal(t, "text/html", resp.Header.Get("Content-Type"), uri)
        assert.Contains(t, string(body), "binaryType = 'arraybuffer'", uri)
        assert.Contains(t, string(body), "0xEDB88320", uri)
    }

    resp, err := http.Get(url + "/nothing")
    require.NoError(t, err)
    resp.Body.Close()
    assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestChatPageDownload download a file over "/chat" the way the chat page
// does: a plain text request followed by acknowledging every frame.
func TestChatPageDownload(t *testing.T) {
    const data = "a file spanning a few chunks"

    url := startWeb(t, map[string]string {"a.txt": data})

    ws, _, err := gows.DefaultDialer.Dial("ws" + strings.TrimPrefix(url, "http") + "/chat", nil)
    require.NoError(t, err)
    defer ws.Close()

    require.NoError(t, ws.WriteMessage(gows.TextMessage, []byte("alice")))
    typ, msg := readWS(t, ws)
    require.Equal(t, gows.TextMessage, typ)
    require.Equal(t, "Welcome to the chat, alice!", string(msg))

    require.NoError(t, ws.WriteMessage(gows.TextMessage, []byte("a.txt 0")))

    var got bytes.Buffer
    for seq := uint32(0); ; seq++ {
        typ, frame := readWS(t, ws)
        require.Equal(t, gows.BinaryMessage, typ, "got text '%s'", frame)

        payload, ok := gochat.DecodeAndVerify(frame, gochat.FrameHeaderLen)
        require.True(t, ok)
        gotSeq, _ := gochat.FrameSeq(frame)
        require.Equal(t, seq, gotSeq)

        if len(payload) == 0 {
            break
        }
        got.Write(payload)
        require.NoError(t, ws.WriteMessage(gows.BinaryMessage, gochat.EncodeAck(seq)))
    }
    assert.Equal(t, data, got.String())

    require.NoError(t, ws.WriteMessage(gows.TextMessage, []byte("missing.dat 0")))
    typ, msg = readWS(t, ws)
    assert.Equal(t, gows.TextMessage, typ)
    assert.Equal(t, gochat.FileNotFoundReply("missing.dat"), string(msg))
}
