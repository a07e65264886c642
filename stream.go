package go_file_chat

import (
    "bufio"
    "encoding/binary"
    "errors"
    "fmt"
    "io"
    "net"
    "sync"
    "sync/atomic"
)

// DefaultMaxRecordSize is the largest record accepted by a stream
// connection, unless configured otherwise.
const DefaultMaxRecordSize = 64 * 1024

// recordHeaderLen is the size of the length that prefixes every record.
const recordHeaderLen = 4

// streamConn wrap a byte stream (usually a TCP connection) into a `Conn`.
//
// Every message is sent as a single record:
//
//     be32(len(data) + 1) || type || data
//
// so messages are never split nor merged by the stream.
type streamConn struct {
    // The underlying stream.
    rw io.ReadWriteCloser

    // Buffered reader over `rw`.
    reader *bufio.Reader

    // Address of the remote endpoint.
    remote string

    // Largest record accepted by `Recv`.
    maxRecord int

    // sendMutex synchronizes write operations on `rw`.
    sendMutex sync.Mutex

    // Whether the connection is currently active.
    active uint32
}

// NewStreamConn wraps `conn` into a `Conn` accepting records of up to
// `maxRecord` bytes. A non-positive `maxRecord` selects
// `DefaultMaxRecordSize`.
func NewStreamConn(conn net.Conn, maxRecord int) Conn {
    remote := ""
    if addr := conn.RemoteAddr(); addr != nil {
        remote = addr.String()
    }
    return newStreamConn(conn, remote, maxRecord)
}

// newStreamConn wraps any `io.ReadWriteCloser`, so tests may use pipes.
func newStreamConn(rw io.ReadWriteCloser, remote string, maxRecord int) *streamConn {
    if maxRecord <= 0 {
        maxRecord = DefaultMaxRecordSize
    }

    return &streamConn {
        rw: rw,
        reader: bufio.NewReader(rw),
        remote: remote,
        maxRecord: maxRecord,
        active: 1,
    }
}

// isActive check if the connection is still active.
func (c *streamConn) isActive() bool {
    return atomic.LoadUint32(&c.active) == 1
}

// Close the connection.
func (c *streamConn) Close() error {
    if atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        return c.rw.Close()
    }
    return nil
}

// RemoteAddr describe the remote endpoint.
func (c *streamConn) RemoteAddr() string {
    return c.remote
}

// Recv blocks until a new record was received.
//
// Records of an unknown type are skipped.
func (c *streamConn) Recv() (Message, error) {
    var hdr [recordHeaderLen]byte

    for {
        if _, err := io.ReadFull(c.reader, hdr[:]); err != nil {
            return Message{}, c.readError(err)
        }

        size := binary.BigEndian.Uint32(hdr[:])
        if size == 0 || uint64(size) > uint64(c.maxRecord) {
            c.Close()
            return Message{}, fmt.Errorf("record of %d bytes: %w", size, RecordTooLarge)
        }

        record := make([]byte, size)
        if _, err := io.ReadFull(c.reader, record); err != nil {
            return Message{}, c.readError(err)
        }

        typ := MessageType(record[0])
        switch typ {
        case MessageText, MessageFrame:
            return Message {
                Type: typ,
                Data: record[1:],
            }, nil
        default:
            continue
        }
    }
}

// readError close the connection and translate `err` into the error
// reported by `Recv`.
func (c *streamConn) readError(err error) error {
    wasActive := c.isActive()
    c.Close()

    if !wasActive || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
        return ConnEOF
    }
    return fmt.Errorf("recv: %w", err)
}

// Send `msg` as a single record.
func (c *streamConn) Send(msg Message) error {
    if !c.isActive() {
        return ConnEOF
    } else if len(msg.Data) + 1 > c.maxRecord {
        return RecordTooLarge
    }

    buf := make([]byte, recordHeaderLen + 1 + len(msg.Data))
    binary.BigEndian.PutUint32(buf[:recordHeaderLen], uint32(len(msg.Data) + 1))
    buf[recordHeaderLen] = byte(msg.Type)
    copy(buf[recordHeaderLen + 1:], msg.Data)

    c.sendMutex.Lock()
    defer c.sendMutex.Unlock()

    for data := buf; len(data) > 0; {
        n, err := c.rw.Write(data)
        if err != nil {
            if !c.isActive() || errors.Is(err, net.ErrClosed) {
                return ConnEOF
            }
            return fmt.Errorf("send: %w", err)
        }
        data = data[n:]
    }

    return nil
}

// SendStr send `msg`, previously formatted by the caller, as a text record.
func (c *streamConn) SendStr(msg string) error {
    return c.Send(TextMessage(msg))
}
