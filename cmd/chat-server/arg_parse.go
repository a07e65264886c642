package main

import (
    "fmt"
    "strconv"

    "github.com/spf13/cobra"
    "github.com/spf13/pflag"

    "github.com/SirGFM/go-file-chat/internal/cliconfig"
)

const longHelp = `Chat and file distribution server.

Clients connect over TCP (or, if --ws-port is set, over WebSockets), declare
their name and then may broadcast messages, send private messages with
"@name message", list the files in the download directory with "!filelist"
and download them with "filename 0".

Settings are read from the config file (default
$HOME/.go-file-chat/server.toml), then from GOFILECHAT_* environment
variables and finally from the command line.`

// newRootCmd build the command line interface. `run` is called with the
// resolved configuration.
func newRootCmd(run func(cfg cliconfig.Config) error) *cobra.Command {
    cfg := cliconfig.DefaultConfig()
    var cfgPath string

    root := &cobra.Command {
        Use: "chat-server [port]",
        Short: "Chat and file distribution server",
        Long: longHelp,
        Args: cobra.MaximumNArgs(1),
        SilenceUsage: true,
        RunE: func(cmd *cobra.Command, args []string) error {
            changed := map[string]bool{}
            cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

            // The port may also be given as the only positional argument.
            if len(args) == 1 {
                if changed["port"] {
                    return fmt.Errorf("port given both as an argument and as --port")
                }
                port, err := strconv.Atoi(args[0])
                if err != nil {
                    return fmt.Errorf("invalid port %q: %w", args[0], err)
                }
                cfg.Port = port
                changed["port"] = true
            }

            cfgFile := cfgPath
            if cfgFile == "" {
                cfgFile = cliconfig.DefaultConfigPath()
            }
            if cfgFile != "" && cliconfig.FileExists(cfgFile) {
                fc, err := cliconfig.LoadFileConfig(cfgFile)
                if err != nil {
                    return fmt.Errorf("load config: %w", err)
                }
                if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
                    return err
                }
            } else if cfgPath != "" {
                return fmt.Errorf("config file %s not found", cfgPath)
            }

            if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
                return err
            }

            if err := cfg.Validate(); err != nil {
                return err
            }

            return run(cfg)
        },
    }

    flags := root.Flags()
    flags.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.go-file-chat/server.toml)")
    flags.StringVar(&cfg.IP, "ip", cfg.IP, "IP on which the server accepts connections")
    flags.IntVar(&cfg.Port, "port", cfg.Port, "port of the raw TCP listener")
    flags.IntVar(&cfg.WSPort, "ws-port", cfg.WSPort, "port serving the chat page and WebSocket connections (0 disables it)")
    flags.DurationVar(&cfg.WSTimeout, "ws-timeout", cfg.WSTimeout, "ping idle WebSockets after this long, closing them after twice as long (0 disables it)")
    flags.StringVar(&cfg.DownloadDir, "downloads", cfg.DownloadDir, "directory listed and served to clients")
    flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append-only event log (empty disables it)")
    flags.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "payload size of file transfer frames")
    flags.IntVar(&cfg.MaxChunkRetries, "max-retries", cfg.MaxChunkRetries, "resends of an unacknowledged chunk before aborting a transfer")
    flags.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "maximum concurrent connections (0 is unbounded)")
    flags.BoolVar(&cfg.AllowNameTakeover, "allow-name-takeover", cfg.AllowNameTakeover, "let a new connection take over a name in use, instead of rejecting it")
    flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log debug messages")

    return root
}
