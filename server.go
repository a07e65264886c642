package go_file_chat

import (
    "context"
    "errors"
    "io"
    "net"
    "sync"
    "time"

    "github.com/rs/zerolog"
)

// Default directory from which files are listed and downloaded.
const defDownloadDir = "downloads"

// How many times a chunk is resent before giving up a transfer.
const defMaxChunkRetries = 5

// Delay limits when retrying a failed `Accept`.
const (
    minAcceptDelay = 5 * time.Millisecond
    maxAcceptDelay = time.Second
)

// ServerConf configures a `ChatServer`.
type ServerConf struct {
    // DownloadDir is listed by "!filelist" and serves downloads.
    DownloadDir string

    // ChunkSize is the payload size of every data frame but the last.
    ChunkSize int

    // MaxChunkRetries is how many times a chunk is resent, after the
    // first try, before the transfer is aborted.
    MaxChunkRetries int

    // MaxConns bounds how many connections may be handled concurrently.
    // Zero means unbounded.
    MaxConns int

    // UniqueNames rejects clients whose name is already in use. When
    // unset, the latest connection takes the name over.
    UniqueNames bool

    // MaxRecordSize bounds the records accepted on TCP connections.
    MaxRecordSize int

    // WatchDownloads caches the file listing, refreshing it when the
    // download directory changes.
    WatchDownloads bool

    // Logger receives diagnostics. Defaults to a disabled logger.
    Logger zerolog.Logger

    // EventLog records connections and received lines. May be nil.
    EventLog *EventLog
}

// GetDefaultServerConf retrieve the default configuration.
func GetDefaultServerConf() ServerConf {
    return ServerConf {
        DownloadDir: defDownloadDir,
        ChunkSize: ChunkSize,
        MaxChunkRetries: defMaxChunkRetries,
        UniqueNames: true,
        MaxRecordSize: DefaultMaxRecordSize,
        WatchDownloads: true,
        Logger: zerolog.Nop(),
    }
}

// The public interface of the chat server.
type ChatServer interface {
    io.Closer

    // Serve accept connections from `ln` until the server gets closed,
    // handling each on its own goroutine.
    //
    // Returns nil if the server was closed, or the error that stopped
    // the listener.
    Serve(ln net.Listener) error

    // ConnectAndWait handle `conn` in the calling goroutine, blocking
    // until the connection is closed. `conn` is always closed once this
    // returns.
    //
    // This may be useful if the caller already spawns a goroutine for
    // each connection (for example, an HTTP server upgrading requests to
    // WebSockets).
    ConnectAndWait(conn Conn) error

    // Registry retrieve the registry of connected clients.
    Registry() *Registry

    // GetConf retrieve the server's configuration.
    GetConf() ServerConf
}

// The chat server.
type server struct {
    conf ServerConf

    registry *Registry

    store *FileStore

    // slots bounds the concurrent connections, if configured.
    slots chan struct{}

    // cancel stops the download directory watcher.
    cancel context.CancelFunc

    // lock the fields below.
    lock sync.Mutex

    // Every listener passed to `Serve`.
    listeners map[net.Listener]struct{}

    // Every connection currently being handled.
    conns map[Conn]struct{}

    // Whether the server was closed.
    closed bool
}

// NewServerConf create a new chat server configured by `conf`.
func NewServerConf(conf ServerConf) ChatServer {
    if len(conf.DownloadDir) == 0 {
        conf.DownloadDir = defDownloadDir
    }
    if conf.ChunkSize <= 0 {
        conf.ChunkSize = ChunkSize
    }
    if conf.MaxChunkRetries < 0 {
        conf.MaxChunkRetries = 0
    }

    ctx, cancel := context.WithCancel(context.Background())
    s := &server {
        conf: conf,
        registry: NewRegistry(conf.Logger),
        store: NewFileStore(conf.DownloadDir, conf.Logger),
        cancel: cancel,
        listeners: make(map[net.Listener]struct{}),
        conns: make(map[Conn]struct{}),
    }
    if conf.MaxConns > 0 {
        s.slots = make(chan struct{}, conf.MaxConns)
    }

    if conf.WatchDownloads {
        err := s.store.Watch(ctx)
        if err != nil {
            conf.Logger.Warn().
                Err(err).
                Msg("not watching the download directory; listing it on every request")
        }
    }

    return s
}

// NewServer create a new chat server serving files from `downloadDir`,
// with every other setting left to its default.
func NewServer(downloadDir string) ChatServer {
    conf := GetDefaultServerConf()
    conf.DownloadDir = downloadDir
    return NewServerConf(conf)
}

// GetConf retrieve the server's configuration.
func (s *server) GetConf() ServerConf {
    return s.conf
}

// Registry retrieve the registry of connected clients.
func (s *server) Registry() *Registry {
    return s.registry
}

// isClosed check if the server was closed.
func (s *server) isClosed() bool {
    s.lock.Lock()
    defer s.lock.Unlock()

    return s.closed
}

// Serve accept connections from `ln` until the server gets closed.
func (s *server) Serve(ln net.Listener) error {
    s.lock.Lock()
    if s.closed {
        s.lock.Unlock()
        return ServerClosed
    }
    s.listeners[ln] = struct{}{}
    s.lock.Unlock()

    defer func() {
        s.lock.Lock()
        delete(s.listeners, ln)
        s.lock.Unlock()
    } ()

    var delay time.Duration
    for {
        conn, err := ln.Accept()
        if err != nil {
            if s.isClosed() || errors.Is(err, net.ErrClosed) {
                return nil
            }

            var te interface { Temporary() bool }
            if errors.As(err, &te) && te.Temporary() {
                if delay == 0 {
                    delay = minAcceptDelay
                } else {
                    delay = min(delay * 2, maxAcceptDelay)
                }
                s.conf.Logger.Warn().
                    Err(err).
                    Dur("retry_in", delay).
                    Msg("accept failed")
                time.Sleep(delay)
                continue
            }
            return err
        }
        delay = 0

        go s.ConnectAndWait(NewStreamConn(conn, s.conf.MaxRecordSize))
    }
}

// ConnectAndWait handle `conn` until it gets closed.
func (s *server) ConnectAndWait(conn Conn) error {
    if s.slots != nil {
        select {
        case s.slots <- struct{}{}:
            defer func() { <-s.slots } ()
        default:
            s.conf.Logger.Warn().
                Str("remote", conn.RemoteAddr()).
                Msg("rejecting connection: server is full")
            conn.SendStr("Error: server is full.")
            conn.Close()
            return ServerFull
        }
    }

    s.lock.Lock()
    if s.closed {
        s.lock.Unlock()
        conn.Close()
        return ServerClosed
    }
    s.conns[conn] = struct{}{}
    s.lock.Unlock()

    defer func() {
        s.lock.Lock()
        delete(s.conns, conn)
        s.lock.Unlock()
    } ()

    sess := newSession(conn, s.registry, s.store, s.conf)
    err := sess.run()
    if err != nil && err != ConnEOF {
        sess.logger.Debug().Err(err).Msg("session ended")
    }
    return err
}

// Close stop every listener and close every connection.
//
// Sessions notice their closed connection and clean themselves up on
// their own goroutine.
func (s *server) Close() error {
    s.lock.Lock()
    if s.closed {
        s.lock.Unlock()
        return nil
    }
    s.closed = true

    listeners := s.listeners
    conns := s.conns
    s.listeners = make(map[net.Listener]struct{})
    s.conns = make(map[Conn]struct{})
    s.lock.Unlock()

    s.cancel()
    for ln := range listeners {
        ln.Close()
    }
    for c := range conns {
        c.Close()
    }

    return nil
}
