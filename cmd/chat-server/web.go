package main

import (
    "errors"
    "io"
    "net/http"
    "net/url"
    "path"

    "github.com/rs/zerolog"

    gochat "github.com/SirGFM/go-file-chat"
    "github.com/SirGFM/go-file-chat/internal/cliconfig"
)

type webServer struct {
    // The server's HTTP server
    httpServer *http.Server
    // The chat server
    chat gochat.ChatServer
    // Upgrades requests to "/chat"
    upgrader *wsUpgrader

    logger zerolog.Logger
}

// ServeHTTP is called by Go's http package whenever a new HTTP request arrives
func (s *webServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
    uri := cleanURL(req.URL)
    log := s.logger.With().
        Str("remote", req.RemoteAddr).
        Str("method", req.Method).
        Str("uri", uri).
        Logger()

    switch uri {
    case "", "chat_page":
        serveChatPage(w)
        log.Debug().Int("status", http.StatusOK).Msg("served chat page")
    case "chat":
        conn, err := s.upgrader.newConn(w, req)
        if err != nil {
            // The upgrader already replied with an HTTP error.
            log.Warn().Err(err).Msg("couldn't upgrade the connection")
            return
        }

        // The upgraded request is handled by the chat server until the
        // session ends.
        log.Debug().Msg("websocket connected")
        err = s.chat.ConnectAndWait(conn)
        if err != nil && !errors.Is(err, gochat.ServerClosed) {
            log.Warn().Err(err).Msg("chat session failed")
        }
    default:
        httpTextReply(http.StatusNotFound, "404 - Nothing to see here...", w, log)
        log.Debug().Int("status", http.StatusNotFound).Msg("not found")
    }
}

// cleanURL so everything is properly escaped/encoded and so it may be split into each of its components.
//
// Use `url.Unescape` to retrieve the unescaped path, if so desired.
func cleanURL(uri *url.URL) string {
    // Normalize and strip the URL from its leading prefix (and slash)
    resUrl := path.Clean(uri.EscapedPath())
    if len(resUrl) > 0 && resUrl[0] == '/' {
        resUrl = resUrl[1:]
    } else if len(resUrl) == 1 && resUrl[0] == '.' {
        // Clean converts an empty path into a single "."
        resUrl = ""
    }

    return resUrl
}

// httpTextReply send a simple HTTP response as a plain text.
func httpTextReply(status int, msg string, w http.ResponseWriter, log zerolog.Logger) {
    w.Header().Set("Content-Type", "text/plain")
    w.WriteHeader(status)

    if _, err := io.WriteString(w, msg); err != nil {
        log.Warn().Err(err).Int("status", status).Msg("failed to send reply")
    }
}

// Close the running web server and clean up resources
func (s *webServer) Close() error {
    if s.httpServer != nil {
        err := s.httpServer.Close()
        s.httpServer = nil
        return err
    }

    return nil
}

// runWeb server into a goroutine, reporting through `errCh` if it stops
// unexpectedly.
func runWeb(cfg cliconfig.Config, chat gochat.ChatServer, logger zerolog.Logger,
        errCh chan<- error) io.Closer {

    logger = logger.With().Str("component", "web").Logger()
    srv := &webServer {
        chat: chat,
        upgrader: newUpgrader(cfg, logger),
        logger: logger,
    }
    srv.httpServer = &http.Server {
        Addr: cfg.WSAddr(),
        Handler: srv,
    }

    httpServer := srv.httpServer
    go func() {
        logger.Info().Str("addr", cfg.WSAddr()).Msg("serving chat page")
        err := httpServer.ListenAndServe()
        if !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
    } ()

    return srv
}
