/*
Package go_file_chat implements a multi-client chat and file distribution
server over a single, message oriented, connection per client.

The server is divided into a few components:

 - `ChatServer`: Accepts connections and runs a `Session` for each of them
 - `Registry`: The directory of connected clients, shared by every session
 - `Session`: The server side of a client connection
 - `FileStore`: The directory from which files are listed and downloaded
 - `Conn`: A connection to the remote client

The first step is to instantiate the server through either `NewServer` or
`NewServerConf`. The last one should be the preferred variant, as it's the
one that allows the most customization:

    conf := go_file_chat.GetDefaultServerConf()
    conf.DownloadDir = "/srv/downloads"
    server := go_file_chat.NewServerConf(conf)

Then, either hand it a listener, which gets its connections wrapped by
`NewStreamConn`:

    ln, err := net.Listen("tcp", ":8888")
    if err != nil {
        // Handle the error
    }
    go server.Serve(ln)

or any other `Conn` (for example, a WebSocket from `gorilla-ws-conn`),
blocking the calling goroutine until the connection is closed:

    err := server.ConnectAndWait(conn)

The first message received on a connection is the client's name. Once
named, the session is registered, greeted, and every following text
message is classified by `Classify`:

    !filelist           reply with the files in the download directory
    @name message       deliver "(Private from sender): message" to name
    $exit               close the session
    filename seq        send the file, in chunks (seq is ignored)
    anything else       deliver "sender: anything else" to everyone else

Files are sent as frames (see `EncodeFrame`) of up to `ChunkSize` bytes,
each protected by a CRC-32. The client acknowledges every chunk (see
`EncodeAck`) and the server resends any chunk that isn't acknowledged,
giving up after `ServerConf.MaxChunkRetries` resends. An empty frame ends
the transfer. Missing files are reported as text, starting with "Error".

`Client` implements the remote endpoint, including the receiving side of
downloads:

    c, err := go_file_chat.Dial(ctx, "localhost:8888", "alice", go_file_chat.GetDefaultClientConf())
    if err != nil {
        // Handle the error
    }
    err = c.ReceiveFile(ctx, "notes.txt")
*/
package go_file_chat
