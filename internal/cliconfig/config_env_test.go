package cliconfig

import (
    "testing"
    "time"
)

func TestApplyEnvConfig(t *testing.T) {
    tests := []struct {
        name     string
        envVars  map[string]string
        changed  map[string]bool
        initial  Config
        expected Config
        wantErr  bool
    }{
        {
            name: "applies all valid env vars",
            envVars: map[string]string{
                "GOFILECHAT_IP":                  "10.0.0.1",
                "GOFILECHAT_PORT":                "9000",
                "GOFILECHAT_WS_PORT":             "9001",
                "GOFILECHAT_WS_TIMEOUT":          "2m",
                "GOFILECHAT_DOWNLOAD_DIR":        "/env/files",
                "GOFILECHAT_LOG_FILE":            "/env/chat.log",
                "GOFILECHAT_CHUNK_SIZE":          "512",
                "GOFILECHAT_MAX_CHUNK_RETRIES":   "0",
                "GOFILECHAT_MAX_CONNS":           "20",
                "GOFILECHAT_ALLOW_NAME_TAKEOVER": "true",
                "GOFILECHAT_DEBUG":               "1",
            },
            changed: map[string]bool{},
            initial: DefaultConfig(),
            expected: Config{
                IP:                "10.0.0.1",
                Port:              9000,
                WSPort:            9001,
                WSTimeout:         2 * time.Minute,
                DownloadDir:       "/env/files",
                LogFile:           "/env/chat.log",
                ChunkSize:         512,
                MaxChunkRetries:   0,
                MaxConns:          20,
                AllowNameTakeover: true,
                Debug:             true,
            },
        },
        {
            name: "respects changed flags",
            envVars: map[string]string{
                "GOFILECHAT_PORT":         "9000",
                "GOFILECHAT_DOWNLOAD_DIR": "/env/files",
            },
            changed: map[string]bool{"downloads": true},
            initial: Config{
                DownloadDir: "/flag/files",
            },
            expected: Config{
                Port:        9000,
                DownloadDir: "/flag/files",
            },
        },
        {
            name: "returns error for invalid duration",
            envVars: map[string]string{
                "GOFILECHAT_WS_TIMEOUT": "not-a-duration",
            },
            changed: map[string]bool{},
            wantErr: true,
        },
        {
            name: "returns error for invalid int",
            envVars: map[string]string{
                "GOFILECHAT_PORT": "not-a-number",
            },
            changed: map[string]bool{},
            wantErr: true,
        },
        {
            name: "returns error for invalid bool",
            envVars: map[string]string{
                "GOFILECHAT_DEBUG": "maybe",
            },
            changed: map[string]bool{},
            wantErr: true,
        },
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            for k, v := range tt.envVars {
                t.Setenv(k, v)
            }

            cfg := tt.initial
            err := ApplyEnvConfig(&cfg, tt.changed)

            if (err != nil) != tt.wantErr {
                t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
            }
            if !tt.wantErr && cfg != tt.expected {
                t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
            }
        })
    }
}
