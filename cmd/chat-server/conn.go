package main

import (
    "net/http"

    gows "github.com/gorilla/websocket"
    "github.com/rs/zerolog"

    gochat "github.com/SirGFM/go-file-chat"
    gochat_ws "github.com/SirGFM/go-file-chat/gorilla-ws-conn"
    "github.com/SirGFM/go-file-chat/internal/cliconfig"
)

// wsUpgrader upgrade HTTP requests into chat connections.
type wsUpgrader struct {
    upgrader gows.Upgrader
    cfg cliconfig.Config
    logger zerolog.Logger
}

func ignoreOrigin(r *http.Request) bool {
    return true
}

func newUpgrader(cfg cliconfig.Config, logger zerolog.Logger) *wsUpgrader {
    return &wsUpgrader {
        upgrader: gows.Upgrader {
            ReadBufferSize: 4096,
            WriteBufferSize: 4096,
            CheckOrigin: ignoreOrigin,
        },
        cfg: cfg,
        logger: logger,
    }
}

// newConn upgrade a HTTP connection to a Chat Connection.
func (u *wsUpgrader) newConn(w http.ResponseWriter, req *http.Request) (gochat.Conn, error) {
    return gochat_ws.NewConn(u.upgrader, u.cfg.WSTimeout, u.logger, w, req)
}
