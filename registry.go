package go_file_chat

import (
    "sort"
    "sync"

    "github.com/rs/zerolog"
)

// Registry is the directory of every connected, named session.
//
// Every method is synchronized, so a registry may be shared by every
// connection handler. Broadcasts deliver to the sessions registered when
// the broadcast started, but send without holding the registry's lock, so
// a peer that stopped reading only ever blocks the sender.
type Registry struct {
    // Sessions currently registered, by name.
    sessions map[string]*Session

    // lock the sessions map.
    lock sync.RWMutex

    // logger used to report failed deliveries.
    logger zerolog.Logger
}

// NewRegistry create an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
    return &Registry {
        sessions: make(map[string]*Session),
        logger: logger,
    }
}

// Register `s` as `name`, replacing (but not closing) any session
// previously registered with that name. The replaced session, if any, is
// returned.
func (r *Registry) Register(name string, s *Session) *Session {
    r.lock.Lock()
    prev := r.sessions[name]
    r.sessions[name] = s
    r.lock.Unlock()

    return prev
}

// RegisterUnique register `s` as `name`, failing with
// `UserAlreadyConnected` if the name was already taken.
func (r *Registry) RegisterUnique(name string, s *Session) error {
    r.lock.Lock()
    defer r.lock.Unlock()

    if _, ok := r.sessions[name]; ok {
        return UserAlreadyConnected
    }
    r.sessions[name] = s
    return nil
}

// Unregister the session named `name`. Does nothing if there's no such
// session.
func (r *Registry) Unregister(name string) {
    r.lock.Lock()
    delete(r.sessions, name)
    r.lock.Unlock()
}

// UnregisterSession remove `s` from the registry, but only if its name
// still refers to `s`. Reports whether `s` was removed.
func (r *Registry) UnregisterSession(s *Session) bool {
    r.lock.Lock()
    defer r.lock.Unlock()

    if cur, ok := r.sessions[s.Name()]; ok && cur == s {
        delete(r.sessions, s.Name())
        return true
    }
    return false
}

// Lookup retrieve the session registered as `name`.
func (r *Registry) Lookup(name string) (*Session, bool) {
    r.lock.RLock()
    s, ok := r.sessions[name]
    r.lock.RUnlock()

    return s, ok
}

// Names retrieve the sorted list of registered names.
func (r *Registry) Names() []string {
    r.lock.RLock()
    list := make([]string, 0, len(r.sessions))
    for k := range r.sessions {
        list = append(list, k)
    }
    r.lock.RUnlock()

    sort.Strings(list)
    return list
}

// Len retrieve how many sessions are registered.
func (r *Registry) Len() int {
    r.lock.RLock()
    defer r.lock.RUnlock()

    return len(r.sessions)
}

// Broadcast send `msg` to every registered session but the one named
// `exclude`, returning how many sessions received it.
//
// Failing to send to a session doesn't stop the broadcast. The failure is
// only logged, as it will be reported to that session's own receive loop.
func (r *Registry) Broadcast(msg, exclude string) int {
    type recipient struct {
        name string
        s *Session
    }

    r.lock.RLock()
    list := make([]recipient, 0, len(r.sessions))
    for name, s := range r.sessions {
        if name != exclude {
            list = append(list, recipient {name, s})
        }
    }
    r.lock.RUnlock()

    sent := 0
    for _, rcpt := range list {
        if err := rcpt.s.SendStr(msg); err != nil {
            r.logger.Debug().
                Err(err).
                Str("name", rcpt.name).
                Msg("broadcast delivery failed")
            continue
        }
        sent++
    }

    return sent
}

// Whisper send `msg` exclusively to the session named `to`.
func (r *Registry) Whisper(to, msg string) error {
    s, ok := r.Lookup(to)
    if !ok {
        return UnknownUser
    }
    return s.SendStr(msg)
}
