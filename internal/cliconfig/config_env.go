package cliconfig

import (
    "os"
)

// ApplyEnvConfig applies configuration from environment variables (GOFILECHAT_*).
// Flags that have been explicitly set (changed map) take precedence.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
    s := newConfigSetter(changed)

    s.setString("ip", os.Getenv("GOFILECHAT_IP"), &cfg.IP)
    s.setString("downloads", os.Getenv("GOFILECHAT_DOWNLOAD_DIR"), &cfg.DownloadDir)
    s.setString("log-file", os.Getenv("GOFILECHAT_LOG_FILE"), &cfg.LogFile)

    if err := s.setIntFromString("port", os.Getenv("GOFILECHAT_PORT"), &cfg.Port); err != nil {
        return err
    }
    if err := s.setIntFromString("ws-port", os.Getenv("GOFILECHAT_WS_PORT"), &cfg.WSPort); err != nil {
        return err
    }
    if err := s.setIntFromString("chunk-size", os.Getenv("GOFILECHAT_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
        return err
    }
    if err := s.setIntFromString("max-retries", os.Getenv("GOFILECHAT_MAX_CHUNK_RETRIES"), &cfg.MaxChunkRetries); err != nil {
        return err
    }
    if err := s.setIntFromString("max-conns", os.Getenv("GOFILECHAT_MAX_CONNS"), &cfg.MaxConns); err != nil {
        return err
    }

    if err := s.setDuration("ws-timeout", os.Getenv("GOFILECHAT_WS_TIMEOUT"), &cfg.WSTimeout); err != nil {
        return err
    }

    if err := s.setBoolFromString("allow-name-takeover", os.Getenv("GOFILECHAT_ALLOW_NAME_TAKEOVER"), &cfg.AllowNameTakeover); err != nil {
        return err
    }
    return s.setBoolFromString("debug", os.Getenv("GOFILECHAT_DEBUG"), &cfg.Debug)
}
