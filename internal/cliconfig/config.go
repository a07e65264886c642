// Package cliconfig resolves the chat server's configuration from its
// defaults, a TOML file, GOFILECHAT_* environment variables and command
// line flags, in increasing order of precedence.
package cliconfig

import (
    "fmt"
    "strconv"
    "time"

    gochat "github.com/SirGFM/go-file-chat"
    "github.com/rs/zerolog"
)

// Largest chunk that still fits a record, alongside the frame's sequence
// number, checksum and the record's type.
const maxChunkSize = gochat.DefaultMaxRecordSize - gochat.FrameHeaderLen - gochat.FrameChecksumLen - 1

// Config holds the chat server's configuration.
type Config struct {
    // IP on which the server accepts connections.
    IP string
    // Port of the raw TCP listener.
    Port int
    // WSPort serves the chat page and WebSocket connections. Zero
    // disables it.
    WSPort int
    // WSTimeout after which idle WebSockets are pinged and then closed.
    // Zero disables it.
    WSTimeout time.Duration

    // DownloadDir is listed and served to clients.
    DownloadDir string
    // LogFile receives the append-only event log. Empty disables it.
    LogFile string

    ChunkSize int
    MaxChunkRetries int
    MaxConns int

    // AllowNameTakeover lets a new connection replace the session using
    // its name, instead of rejecting it.
    AllowNameTakeover bool

    Debug bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
    return Config {
        IP: "0.0.0.0",
        Port: 8888,
        DownloadDir: "downloads",
        LogFile: "server.log",
        ChunkSize: gochat.ChunkSize,
        MaxChunkRetries: 5,
    }
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
    if c.Port <= 0 || c.Port > 65535 {
        return fmt.Errorf("invalid port %d", c.Port)
    }
    if c.WSPort < 0 || c.WSPort > 65535 {
        return fmt.Errorf("invalid websocket port %d", c.WSPort)
    } else if c.WSPort == c.Port {
        return fmt.Errorf("websocket port must differ from port %d", c.Port)
    }
    if c.WSTimeout < 0 {
        return fmt.Errorf("websocket timeout must not be negative")
    }
    if c.DownloadDir == "" {
        return fmt.Errorf("download directory is required")
    }
    if c.ChunkSize <= 0 || c.ChunkSize > maxChunkSize {
        return fmt.Errorf("chunk size must be between 1 and %d", maxChunkSize)
    }
    if c.MaxChunkRetries < 0 {
        return fmt.Errorf("max chunk retries must not be negative")
    }
    if c.MaxConns < 0 {
        return fmt.Errorf("max connections must not be negative")
    }

    return nil
}

// Addr retrieve the address of the raw TCP listener.
func (c *Config) Addr() string {
    return fmt.Sprintf("%s:%d", c.IP, c.Port)
}

// WSAddr retrieve the address of the WebSocket listener.
func (c *Config) WSAddr() string {
    return fmt.Sprintf("%s:%d", c.IP, c.WSPort)
}

// ServerConf convert the configuration into the chat server's.
func (c *Config) ServerConf(logger zerolog.Logger, events *gochat.EventLog) gochat.ServerConf {
    conf := gochat.GetDefaultServerConf()
    conf.DownloadDir = c.DownloadDir
    conf.ChunkSize = c.ChunkSize
    conf.MaxChunkRetries = c.MaxChunkRetries
    conf.MaxConns = c.MaxConns
    conf.UniqueNames = !c.AllowNameTakeover
    conf.Logger = logger
    conf.EventLog = events
    return conf
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
    changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
    return &configSetter {changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
    if value == "" || s.changed[flag] {
        return
    }
    *dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
    if value <= 0 || s.changed[flag] {
        return
    }
    *dst = value
}

// setIntFromString parses and sets an int, which may be zero, if not
// empty and flag not changed.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
    if value == "" || s.changed[flag] {
        return nil
    }
    v, err := strconv.Atoi(value)
    if err != nil {
        return fmt.Errorf("parse %s: %w", flag, err)
    }
    *dst = v
    return nil
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
    if value == "" || s.changed[flag] {
        return nil
    }
    d, err := time.ParseDuration(value)
    if err != nil {
        return fmt.Errorf("parse %s: %w", flag, err)
    }
    *dst = d
    return nil
}

// setBool sets a bool if present and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
    if value == nil || s.changed[flag] {
        return
    }
    *dst = *value
}

// setBoolFromString parses and sets a bool if not empty and flag not changed.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
    if value == "" || s.changed[flag] {
        return nil
    }
    b, err := strconv.ParseBool(value)
    if err != nil {
        return fmt.Errorf("parse %s: %w", flag, err)
    }
    *dst = b
    return nil
}
