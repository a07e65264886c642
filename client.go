package go_file_chat

import (
    "context"
    "errors"
    "fmt"
    "net"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "sync/atomic"

    "github.com/rs/zerolog"
)

// DownloadInProgress is returned when a download is requested while
// another one is still running on the same client.
var DownloadInProgress = errors.New("another download is in progress")

// ClientConf configures a `Client`.
type ClientConf struct {
    // DownloadDir receives downloaded files. Defaults to the working
    // directory.
    DownloadDir string

    // OnText is called, from the client's receiving goroutine, with every
    // text message not consumed by a download. If nil, messages are
    // queued on `Client.Lines()`.
    OnText func(msg string)

    // MaxRecordSize bounds the records accepted on TCP connections.
    MaxRecordSize int

    // Logger receives diagnostics. Defaults to a disabled logger.
    Logger zerolog.Logger
}

// GetDefaultClientConf retrieve the default client configuration.
func GetDefaultClientConf() ClientConf {
    return ClientConf {
        DownloadDir: ".",
        MaxRecordSize: DefaultMaxRecordSize,
        Logger: zerolog.Nop(),
    }
}

// download is the state shared between `ReceiveFile` and the receiving
// goroutine.
type download struct {
    // name of the file being downloaded.
    name string

    msgs chan Message

    // done gets closed once `ReceiveFile` returns.
    done chan struct{}
}

// deliver `msg` to the download, unless it already ended.
func (dl *download) deliver(msg Message) {
    select {
    case dl.msgs <- msg:
    case <-dl.done:
    }
}

// isReply check whether `text` is the server's error reply to this
// download. Any other text, even if it starts with "Error", is chat.
func (dl *download) isReply(text string) bool {
    return text == FileNotFoundReply(dl.name) || text == transferAbortedReply(dl.name)
}

// Client is the remote endpoint of a `Session`.
type Client struct {
    name string

    conn Conn

    conf ClientConf

    // lines queues text messages when no `OnText` was configured.
    lines chan string

    // active is the current download, if any.
    active atomic.Pointer[download]

    // done gets closed once the connection stops receiving.
    done chan struct{}

    // err is the error that stopped the receiving goroutine.
    err error

    closeOnce sync.Once
}

// Dial connect to the server at `addr` over TCP as `name`.
func Dial(ctx context.Context, addr, name string, conf ClientConf) (*Client, error) {
    var d net.Dialer

    conn, err := d.DialContext(ctx, "tcp", addr)
    if err != nil {
        return nil, fmt.Errorf("dial %s: %w", addr, err)
    }

    c, err := NewClient(NewStreamConn(conn, conf.MaxRecordSize), name, conf)
    if err != nil {
        conn.Close()
        return nil, err
    }
    return c, nil
}

// NewClient declare `name` over `conn` and start receiving messages on a
// new goroutine. Call `c.Close()` to release it.
func NewClient(conn Conn, name string, conf ClientConf) (*Client, error) {
    if len(strings.TrimSpace(name)) == 0 {
        return nil, InvalidName
    }
    if len(conf.DownloadDir) == 0 {
        conf.DownloadDir = "."
    }

    err := conn.SendStr(name)
    if err != nil {
        return nil, fmt.Errorf("send name: %w", err)
    }

    c := &Client {
        name: name,
        conn: conn,
        conf: conf,
        lines: make(chan string, 256),
        done: make(chan struct{}),
    }
    go c.run()

    return c, nil
}

// Name retrieve the name declared by this client.
func (c *Client) Name() string {
    return c.name
}

// Lines retrieve the queue of received text messages. Only used when no
// `OnText` was configured. The channel is closed with the connection.
//
// The queue holds 256 messages. Once full, new messages are dropped (and
// logged) so downloads keep receiving their frames.
func (c *Client) Lines() <-chan string {
    return c.lines
}

// Done is closed once the connection stops receiving messages.
func (c *Client) Done() <-chan struct{} {
    return c.done
}

// Err retrieve the error that closed the connection, after `Done`.
func (c *Client) Err() error {
    <-c.done
    return c.err
}

// run receive messages until the connection gets closed, forwarding them
// either to the active download or to the text handler.
func (c *Client) run() {
    defer close(c.done)
    defer close(c.lines)

    for {
        msg, err := c.conn.Recv()
        if err != nil {
            c.err = err
            return
        }

        dl := c.active.Load()
        switch {
        case msg.Type == MessageFrame && dl != nil:
            dl.deliver(msg)
        case msg.Type == MessageFrame:
            c.conf.Logger.Debug().Msg("dropping frame received outside of a download")
        case dl != nil && dl.isReply(msg.Text()):
            dl.deliver(msg)
        case c.conf.OnText != nil:
            c.conf.OnText(msg.Text())
        default:
            select {
            case c.lines <- msg.Text():
            default:
                c.conf.Logger.Warn().Msg("dropping text message: Lines() isn't being drained")
            }
        }
    }
}

// Send a line to the server, to be broadcast or interpreted as a command.
func (c *Client) Send(line string) error {
    return c.conn.SendStr(line)
}

// SendPrivate send `body` only to the client named `to`.
func (c *Client) SendPrivate(to, body string) error {
    return c.Send(privatePrefix + to + " " + body)
}

// RequestFileList ask for the list of downloadable files. The listing
// arrives as a text message.
func (c *Client) RequestFileList() error {
    return c.Send(FileListCommand)
}

// ReceiveFile download `name` into the configured download directory,
// blocking until the transfer ends.
//
// If the server replies with an error, no file is written and the error
// wraps either `FileNotFound` or `TransferAborted`.
//
// The server can't be told to stop a transfer midway. So, if `ctx` is done
// after the download was requested, the connection is closed.
func (c *Client) ReceiveFile(ctx context.Context, name string) error {
    if !validFileName(name) {
        return fmt.Errorf("invalid name %q: %w", name, FileNotFound)
    } else if err := ctx.Err(); err != nil {
        return err
    }

    dl := &download {
        name: name,
        msgs: make(chan Message, 8),
        done: make(chan struct{}),
    }
    if !c.active.CompareAndSwap(nil, dl) {
        return DownloadInProgress
    }
    defer func() {
        c.active.Store(nil)
        close(dl.done)
    } ()

    err := c.Send(name + " 0")
    if err != nil {
        return err
    }

    rcv := &fileReceiver {
        dir: c.conf.DownloadDir,
        name: name,
        conn: c.conn,
    }
    defer rcv.abort()

    for {
        var msg Message

        select {
        case <-ctx.Done():
            c.conf.Logger.Warn().
                Str("file", name).
                Msg("download cancelled; closing the connection")
            c.Close()
            return ctx.Err()
        case <-c.done:
            if c.err != nil && c.err != ConnEOF {
                return c.err
            }
            return ConnEOF
        case msg = <-dl.msgs:
        }

        if msg.Type == MessageText {
            text := msg.Text()
            if text == FileNotFoundReply(name) {
                return fmt.Errorf("%s: %w", text, FileNotFound)
            }
            return fmt.Errorf("%s: %w", text, TransferAborted)
        }

        done, err := rcv.handle(msg.Data)
        if err != nil {
            return err
        } else if done {
            c.conf.Logger.Debug().
                Str("file", name).
                Uint32("chunks", rcv.expected).
                Msg("download finished")
            return nil
        }
    }
}

// Exit leave the chat, closing the connection.
func (c *Client) Exit() error {
    return c.Close()
}

// Close the connection. This can safely be called multiple times.
func (c *Client) Close() error {
    var err error

    c.closeOnce.Do(func() {
        err = c.conn.Close()
    })
    return err
}

// fileReceiver assembles the frames of a single download.
type fileReceiver struct {
    dir string
    name string

    // conn on which acknowledgments are sent.
    conn Conn

    // The temporary file receiving the chunks, created on the first one.
    tmp *os.File

    // Sequence number of the next expected chunk.
    expected uint32

    // Whether the file was renamed into place.
    finished bool
}

// handle a single frame, acknowledging it. Reports whether this was the
// terminal frame.
//
// Corrupted frames and frames from the future are answered with a
// request to resend the expected chunk; repeated chunks are acknowledged
// again but not written.
func (r *fileReceiver) handle(frame []byte) (bool, error) {
    payload, ok := DecodeAndVerify(frame, FrameHeaderLen)
    seq, _ := FrameSeq(frame)

    if !ok || seq > r.expected {
        return false, r.conn.Send(FrameMessage(EncodeNak(r.expected)))
    } else if seq < r.expected {
        return false, r.conn.Send(FrameMessage(EncodeAck(seq)))
    }

    err := r.open()
    if err != nil {
        return false, err
    }

    if len(payload) == 0 {
        return true, r.finish()
    }

    if _, err := r.tmp.Write(payload); err != nil {
        return false, fmt.Errorf("write %s: %w", r.name, err)
    }
    r.expected++

    return false, r.conn.Send(FrameMessage(EncodeAck(seq)))
}

// open the temporary file, if not already open.
func (r *fileReceiver) open() error {
    if r.tmp != nil {
        return nil
    }

    f, err := os.CreateTemp(r.dir, "." + r.name + ".part-*")
    if err != nil {
        return fmt.Errorf("create %s: %w", r.name, err)
    }
    r.tmp = f
    return nil
}

// finish move the received file into place.
func (r *fileReceiver) finish() error {
    if err := r.tmp.Close(); err != nil {
        return fmt.Errorf("close %s: %w", r.name, err)
    }

    err := os.Rename(r.tmp.Name(), filepath.Join(r.dir, r.name))
    if err != nil {
        return fmt.Errorf("rename %s: %w", r.name, err)
    }
    r.finished = true
    return nil
}

// abort remove the temporary file of an unfinished download.
func (r *fileReceiver) abort() {
    if r.tmp == nil || r.finished {
        return
    }
    r.tmp.Close()
    os.Remove(r.tmp.Name())
}
