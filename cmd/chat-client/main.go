package main

import (
    "bufio"
    "context"
    "errors"
    "fmt"
    "net"
    "os"
    "os/signal"
    "strconv"
    "syscall"
    "time"

    "github.com/rs/zerolog"
    "github.com/spf13/cobra"

    gochat "github.com/SirGFM/go-file-chat"
    gochat_ws "github.com/SirGFM/go-file-chat/gobwas-ws-conn"
    "github.com/SirGFM/go-file-chat/internal/cliconfig"
)

const usage = `To send a private message, use the format: @username message
To broadcast a message, simply type the message.
To get the list of files, type: !filelist
To download a file, type: filename 0
To exit, type: $exit`

// How long to wait for the connection to be established.
const dialTimeout = 10 * time.Second

type options struct {
    ws bool
    downloadDir string
    debug bool
}

// connect to the server, either over TCP or over its WebSocket endpoint.
func connect(opts options, host string, port int, name string,
        conf gochat.ClientConf) (*gochat.Client, error) {

    ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
    defer cancel()

    addr := net.JoinHostPort(host, strconv.Itoa(port))
    if !opts.ws {
        return gochat.Dial(ctx, addr, name, conf)
    }

    conn, err := gochat_ws.Dial(ctx, "ws://" + addr + "/chat")
    if err != nil {
        return nil, fmt.Errorf("dial %s: %w", addr, err)
    }
    c, err := gochat.NewClient(conn, name, conf)
    if err != nil {
        conn.Close()
        return nil, err
    }
    return c, nil
}

// readLines forward every line read from stdin, closing the channel on EOF.
func readLines() <-chan string {
    lines := make(chan string)

    go func() {
        defer close(lines)

        scanner := bufio.NewScanner(os.Stdin)
        for scanner.Scan() {
            lines <- scanner.Text()
        }
    } ()

    return lines
}

// download `name`, printing the outcome. Interrupting it cancels the
// download, which also disconnects from the server.
func download(c *gochat.Client, name string, intHndlr <-chan os.Signal,
        log zerolog.Logger) {

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    res := make(chan error, 1)
    go func() {
        res <- c.ReceiveFile(ctx, name)
    } ()

    var err error
    select {
    case err = <-res:
    case <-intHndlr:
        cancel()
        err = <-res
    }

    switch {
    case err == nil:
        fmt.Printf("Downloaded '%s' successfully.\n", name)
    case errors.Is(err, context.Canceled):
        fmt.Printf("Download of '%s' cancelled; disconnecting.\n", name)
    case errors.Is(err, gochat.FileNotFound), errors.Is(err, gochat.TransferAborted):
        // The server's reply is the error's prefix.
        fmt.Println(err)
    default:
        fmt.Printf("Error downloading '%s': %v\n", name, err)
        log.Debug().Err(err).Str("file", name).Msg("download failed")
    }
}

// runClient talk to the server until the user exits or the connection
// is lost.
func runClient(opts options, name, host string, port int) error {
    log := cliconfig.Logger(opts.debug)

    conf := gochat.GetDefaultClientConf()
    conf.DownloadDir = opts.downloadDir
    conf.Logger = log
    conf.OnText = func(msg string) {
        fmt.Println(msg)
    }

    c, err := connect(opts, host, port, name, conf)
    if err != nil {
        return err
    }
    defer c.Close()

    fmt.Println(usage)

    intHndlr := make(chan os.Signal, 1)
    signal.Notify(intHndlr, os.Interrupt, syscall.SIGTERM)
    defer signal.Stop(intHndlr)

    lines := readLines()
    for {
        var line string
        var ok bool

        select {
        case <-c.Done():
            if err := c.Err(); err != nil && err != gochat.ConnEOF {
                return err
            }
            fmt.Println("Connection closed by the server.")
            return nil
        case <-intHndlr:
            fmt.Println("\nInterrupted: typing $exit to exit gracefully.")
            line = gochat.ExitCommand
        case line, ok = <-lines:
            if !ok {
                line = gochat.ExitCommand
            }
        }

        cmd := gochat.Classify(line)
        switch cmd.Kind {
        case gochat.CmdExit:
            fmt.Println("Exiting the server. Goodbye!")
            c.Send(gochat.ExitCommand)
            return c.Exit()
        case gochat.CmdDownload:
            download(c, cmd.Filename, intHndlr, log)
        default:
            err = c.Send(line)
            if err != nil {
                return fmt.Errorf("send: %w", err)
            }
        }
    }
}

func newRootCmd() *cobra.Command {
    var opts options

    root := &cobra.Command {
        Use: "chat-client <username> <server_address> <port>",
        Short: "Chat and download files from a chat-server",
        Long: "Chat and download files from a chat-server.\n\n" + usage,
        Args: cobra.ExactArgs(3),
        SilenceUsage: true,
        RunE: func(cmd *cobra.Command, args []string) error {
            port, err := strconv.Atoi(args[2])
            if err != nil || port <= 0 || port > 65535 {
                return fmt.Errorf("invalid port %q", args[2])
            }

            return runClient(opts, args[0], args[1], port)
        },
    }

    flags := root.Flags()
    flags.BoolVar(&opts.ws, "ws", false, "connect to the server's WebSocket port instead of its TCP port")
    flags.StringVar(&opts.downloadDir, "downloads", ".", "directory receiving downloaded files")
    flags.BoolVar(&opts.debug, "debug", false, "log debug messages")

    return root
}

func main() {
    if err := newRootCmd().Execute(); err != nil {
        os.Exit(1)
    }
}
