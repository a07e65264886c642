package main

import (
    "errors"
    "fmt"
    "net"
    "os"
    "os/signal"
    "syscall"

    gochat "github.com/SirGFM/go-file-chat"
    "github.com/SirGFM/go-file-chat/internal/cliconfig"
)

// startServer and block until it's interrupted.
func startServer(cfg cliconfig.Config) error {
    log := cliconfig.Logger(cfg.Debug)
    log.Info().Interface("config", cfg).Msg("starting server")

    err := os.MkdirAll(cfg.DownloadDir, 0755)
    if err != nil {
        return fmt.Errorf("create download directory: %w", err)
    }

    var events *gochat.EventLog
    if len(cfg.LogFile) > 0 {
        events, err = gochat.OpenEventLog(cfg.LogFile)
        if err != nil {
            return err
        }
        defer events.Close()
    }

    chat := gochat.NewServerConf(cfg.ServerConf(log, events))
    defer chat.Close()

    ln, err := net.Listen("tcp", cfg.Addr())
    if err != nil {
        return fmt.Errorf("listen: %w", err)
    }

    errCh := make(chan error, 2)
    go func() {
        log.Info().Str("addr", ln.Addr().String()).Msg("waiting for connections")
        errCh <- chat.Serve(ln)
    } ()

    if cfg.WSPort != 0 {
        web := runWeb(cfg, chat, log, errCh)
        defer web.Close()
    }

    intHndlr := make(chan os.Signal, 1)
    signal.Notify(intHndlr, os.Interrupt, syscall.SIGTERM)

    select {
    case <-intHndlr:
        log.Info().Msg("exiting...")
        return nil
    case err := <-errCh:
        if err == nil || errors.Is(err, gochat.ServerClosed) {
            return nil
        }
        return err
    }
}

func main() {
    defer func() {
        if r := recover(); r != nil {
            fmt.Fprintf(os.Stderr, "Application panicked! %+v\n", r)
            os.Exit(2)
        }
    } ()

    if err := newRootCmd(startServer).Execute(); err != nil {
        os.Exit(1)
    }
}
