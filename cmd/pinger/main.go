// pinger connects a client that says something at random intervals, for
// load testing a chat-server.
package main

import (
    "context"
    "fmt"
    mrand "math/rand/v2"
    "os"
    "os/signal"
    "time"

    "github.com/spf13/cobra"

    gochat "github.com/SirGFM/go-file-chat"
    gochat_ws "github.com/SirGFM/go-file-chat/gobwas-ws-conn"
    "github.com/SirGFM/go-file-chat/internal/cliconfig"
)

type options struct {
    addr string
    ws bool
    downloads bool
    debug bool
}

// randomDelay between 125ms and 16s.
func randomDelay() time.Duration {
    n := mrand.N(128) + 1
    return time.Millisecond * time.Duration(n * 125)
}

func run(opts options, username string) error {
    log := cliconfig.Logger(opts.debug).With().Str("user", username).Logger()

    conf := gochat.GetDefaultClientConf()
    conf.Logger = log
    conf.OnText = func(msg string) {
        log.Debug().Str("msg", msg).Msg("received")
    }

    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
    defer cancel()

    var c *gochat.Client
    if opts.ws {
        conn, err := gochat_ws.Dial(ctx, "ws://" + opts.addr + "/chat")
        if err != nil {
            return fmt.Errorf("couldn't connect: %w", err)
        }
        c, err = gochat.NewClient(conn, username, conf)
        if err != nil {
            conn.Close()
            return err
        }
    } else {
        var err error
        c, err = gochat.Dial(ctx, opts.addr, username, conf)
        if err != nil {
            return err
        }
    }
    defer c.Close()

    log.Info().Str("addr", opts.addr).Msg("waiting...")
    for {
        t := randomDelay()

        select {
        case <-ctx.Done():
            log.Info().Msg("exiting...")
            return c.Send(gochat.ExitCommand)
        case <-c.Done():
            return fmt.Errorf("server closed the connection: %w", c.Err())
        case <-time.After(t):
        }

        var err error
        if opts.downloads && mrand.N(4) == 0 {
            err = c.RequestFileList()
        } else {
            err = c.Send(fmt.Sprintf("%s waited %s to say something", username, t))
        }
        if err != nil {
            return fmt.Errorf("couldn't send message: %w", err)
        }
    }
}

func main() {
    opts := options {
        addr: "localhost:8888",
    }

    root := &cobra.Command {
        Use: "pinger username",
        Short: "Say something to a chat-server every few seconds",
        Args: cobra.ExactArgs(1),
        SilenceUsage: true,
        RunE: func(cmd *cobra.Command, args []string) error {
            return run(opts, args[0])
        },
    }
    root.Flags().StringVar(&opts.addr, "addr", opts.addr, "address of the server")
    root.Flags().BoolVar(&opts.ws, "ws", false, "connect over WebSockets, to the server's --ws-port")
    root.Flags().BoolVar(&opts.downloads, "filelist", false, "also request the file listing, every now and then")
    root.Flags().BoolVar(&opts.debug, "debug", false, "log received messages")

    if err := root.Execute(); err != nil {
        os.Exit(1)
    }
}
