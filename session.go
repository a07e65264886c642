package go_file_chat

import (
    "strings"
    "sync/atomic"

    "github.com/google/uuid"
    "github.com/rs/zerolog"
)

// SessionState is the lifecycle stage of a `Session`.
type SessionState int32

const (
    // The connection was accepted, but the client hasn't sent its name.
    StateConnecting SessionState = iota
    // The client declared its name, which is being registered.
    StateNamed
    // The client is registered and its messages are being routed.
    StateActive
    // The session is unregistering and closing its connection.
    StateClosing
    // The session is done.
    StateClosed
)

func (st SessionState) String() string {
    switch st {
    case StateConnecting:
        return "connecting"
    case StateNamed:
        return "named"
    case StateActive:
        return "active"
    case StateClosing:
        return "closing"
    case StateClosed:
        return "closed"
    default:
        return "unknown"
    }
}

// Session is the server side of a single client connection.
//
// A session is owned by the goroutine running it. The `Registry` only
// keeps a reference to it, to route messages.
type Session struct {
    // Unique identifier of this connection, used on logs.
    id string

    // The client's declared name. Set once, before registering.
    name string

    // The connection to the client's remote endpoint.
    conn Conn

    // registry shared by every session of the server.
    registry *Registry

    // store from which files are listed and sent.
    store *FileStore

    // Server wide settings.
    conf ServerConf

    // logger for this session, already tagged with its id.
    logger zerolog.Logger

    // pending lines received while a file transfer waited for an
    // acknowledgment. These are routed as soon as the transfer ends.
    pending []string

    // Whether the session got registered.
    registered uint32

    // Whether the session is closing (or already closed).
    closing uint32

    // Current `SessionState`.
    state int32
}

// newSession create the session for a freshly accepted connection.
func newSession(conn Conn, registry *Registry, store *FileStore, conf ServerConf) *Session {
    id := uuid.NewString()

    return &Session {
        id: id,
        conn: conn,
        registry: registry,
        store: store,
        conf: conf,
        logger: conf.Logger.With().
            Str("conn_id", id).
            Str("remote", conn.RemoteAddr()).
            Logger(),
        state: int32(StateConnecting),
    }
}

// ID retrieve the session's unique identifier.
func (s *Session) ID() string {
    return s.id
}

// Name retrieve the client's declared name.
func (s *Session) Name() string {
    return s.name
}

// RemoteAddr retrieve the address of the client.
func (s *Session) RemoteAddr() string {
    return s.conn.RemoteAddr()
}

// State retrieve the session's current state.
func (s *Session) State() SessionState {
    return SessionState(atomic.LoadInt32(&s.state))
}

// setState move the session into `st`.
func (s *Session) setState(st SessionState) {
    atomic.StoreInt32(&s.state, int32(st))
}

// SendStr send a text message to the client.
func (s *Session) SendStr(msg string) error {
    return s.conn.SendStr(msg)
}

// Send any message to the client.
func (s *Session) Send(msg Message) error {
    return s.conn.Send(msg)
}

// run the session until its connection gets closed.
//
// The first message is the client's name. Every following text message
// is routed by `s.route()`. Regardless of how the session ends, it's
// unregistered, every other client is notified and the connection is
// closed before `run` returns.
func (s *Session) run() error {
    defer s.Close()

    err := s.handshake()
    if err != nil {
        return err
    }

    for {
        line, err := s.next()
        if err != nil {
            if err == ConnEOF {
                return nil
            }
            return err
        }

        s.conf.EventLog.Message(s.name, s.RemoteAddr(), line)

        err = s.route(line)
        if err == ConnEOF {
            return nil
        } else if err != nil {
            return err
        }
    }
}

// handshake receive the client's name and register the session.
func (s *Session) handshake() error {
    msg, err := s.conn.Recv()
    if err != nil {
        return err
    }

    name := strings.TrimSpace(msg.Text())
    if msg.Type != MessageText || len(name) == 0 {
        s.logger.Error().Msg("client sent an invalid name")
        s.SendStr("Error: invalid name.")
        return InvalidName
    }

    s.name = name
    s.logger = s.logger.With().Str("name", name).Logger()
    s.setState(StateNamed)

    if s.conf.UniqueNames {
        err = s.registry.RegisterUnique(name, s)
        if err != nil {
            s.logger.Error().Msg("client tried to connect more than once")
            s.SendStr("Error: name '" + name + "' is already in use.")
            return err
        }
    } else if prev := s.registry.Register(name, s); prev != nil {
        s.logger.Warn().
            Str("replaced", prev.ID()).
            Msg("name taken over by a new connection")
    }
    atomic.StoreUint32(&s.registered, 1)

    s.logger.Info().Msg("client connected")
    s.conf.EventLog.Connect(name, s.RemoteAddr())

    err = s.SendStr("Welcome to the chat, " + name + "!")
    if err != nil {
        return err
    }
    s.registry.Broadcast(name + " has joined the chat.", name)
    s.setState(StateActive)

    return nil
}

// next retrieve the next line to be routed, either one that arrived
// during a file transfer or a newly received one.
//
// Frames arriving outside of a transfer are dropped.
func (s *Session) next() (string, error) {
    if len(s.pending) > 0 {
        line := s.pending[0]
        s.pending = s.pending[1:]
        return line, nil
    }

    for {
        msg, err := s.conn.Recv()
        if err != nil {
            return "", err
        }

        if msg.Type == MessageText {
            return msg.Text(), nil
        }
        s.logger.Debug().
            Int("size", len(msg.Data)).
            Msg("dropping frame received outside of a transfer")
    }
}

// Close the session: unregister it, notify every other client and close
// the connection.
//
// This can safely be called multiple times (and from multiple goroutines),
// as it will only run on the first call.
func (s *Session) Close() error {
    if !atomic.CompareAndSwapUint32(&s.closing, 0, 1) {
        return nil
    }
    s.setState(StateClosing)

    // A session whose name was taken over isn't registered anymore, and
    // its name now belongs to someone else.
    registered := atomic.LoadUint32(&s.registered) == 1
    if registered && s.registry.UnregisterSession(s) {
        s.registry.Broadcast(s.name + " has left the chat.", s.name)
    }

    err := s.conn.Close()

    if registered {
        s.logger.Info().Msg("client disconnected")
        s.conf.EventLog.Disconnect(s.name, s.RemoteAddr())
    }
    s.setState(StateClosed)

    return err
}
