package cliconfig

import (
    "os"
    "path/filepath"

    toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
    IP string `toml:"ip"`
    Port int `toml:"port"`
    WSPort int `toml:"ws_port"`
    WSTimeout string `toml:"ws_timeout"`
    DownloadDir string `toml:"download_dir"`
    LogFile string `toml:"log_file"`
    ChunkSize int `toml:"chunk_size"`
    MaxChunkRetries *int `toml:"max_chunk_retries"`
    MaxConns int `toml:"max_conns"`
    AllowNameTakeover *bool `toml:"allow_name_takeover"`
    Debug *bool `toml:"debug"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
    var fc FileConfig

    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    if err := toml.Unmarshal(b, &fc); err != nil {
        return fc, err
    }
    return fc, nil
}

// DefaultConfigPath returns the default configuration file path,
// ~/.go-file-chat/server.toml, if the user's home directory is accessible.
func DefaultConfigPath() string {
    if h, err := os.UserHomeDir(); err == nil {
        return filepath.Join(h, ".go-file-chat", "server.toml")
    }
    return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
    s := newConfigSetter(changed)

    s.setString("ip", fc.IP, &cfg.IP)
    s.setString("downloads", fc.DownloadDir, &cfg.DownloadDir)
    s.setString("log-file", fc.LogFile, &cfg.LogFile)

    s.setInt("port", fc.Port, &cfg.Port)
    s.setInt("ws-port", fc.WSPort, &cfg.WSPort)
    s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)
    s.setInt("max-conns", fc.MaxConns, &cfg.MaxConns)
    if fc.MaxChunkRetries != nil && !changed["max-retries"] {
        cfg.MaxChunkRetries = *fc.MaxChunkRetries
    }

    if err := s.setDuration("ws-timeout", fc.WSTimeout, &cfg.WSTimeout); err != nil {
        return err
    }

    s.setBool("allow-name-takeover", fc.AllowNameTakeover, &cfg.AllowNameTakeover)
    s.setBool("debug", fc.Debug, &cfg.Debug)

    return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
    _, err := os.Stat(p)
    return err == nil
}
