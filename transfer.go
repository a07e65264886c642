package go_file_chat

import (
    "errors"
)

// FileNotFoundReply format the reply to a download of a missing file.
// Clients match it exactly against the requested name.
func FileNotFoundReply(name string) string {
    return "Error: File '" + name + "' not found."
}

// transferAbortedReply format the reply sent when a transfer is given up.
func transferAbortedReply(name string) string {
    return "Error: transfer of '" + name + "' aborted."
}

// sendFileList reply with the listing of downloadable files.
func (s *Session) sendFileList() error {
    names, err := s.store.List()
    if err != nil {
        s.logger.Error().Err(err).Msg("couldn't list the download directory")
        return s.SendStr("Error: could not list files.")
    }

    return s.SendStr(FileListing(names))
}

// sendFile send the file `name` to the client, in chunks.
//
// Every chunk is sent as a frame with an increasing sequence number,
// starting at 0, and resent until the client acknowledges it. After the
// last chunk, a frame with an empty payload ends the transfer.
//
// Only errors on the connection are returned. Missing files and
// transfers given up are reported to the client as text.
func (s *Session) sendFile(name string) error {
    logger := s.logger.With().Str("file", name).Logger()

    data, err := s.store.ReadFile(name)
    if err != nil {
        if !errors.Is(err, FileNotFound) {
            logger.Error().Err(err).Msg("couldn't read the requested file")
        } else {
            logger.Debug().Msg("requested file not found")
        }
        return s.SendStr(FileNotFoundReply(name))
    }

    chunkSize := s.conf.ChunkSize
    if chunkSize <= 0 {
        chunkSize = ChunkSize
    }

    var seq uint32
    for off := 0; off < len(data); off += chunkSize {
        end := min(off + chunkSize, len(data))

        err = s.sendChunk(seq, data[off:end])
        if err == TooManyRetries {
            logger.Error().
                Uint32("seq", seq).
                Msg("giving up the transfer")
            return s.SendStr(transferAbortedReply(name))
        } else if err != nil {
            return err
        }
        seq++
    }

    logger.Info().
        Int("size", len(data)).
        Uint32("chunks", seq).
        Msg("file sent")
    return s.Send(FrameMessage(EncodeFrame(seq, nil)))
}

// sendChunk send a single chunk, resending it until the client
// acknowledges it or until it was resent `MaxChunkRetries` times.
func (s *Session) sendChunk(seq uint32, payload []byte) error {
    frame := EncodeFrame(seq, payload)

    for attempt := 0; attempt <= s.conf.MaxChunkRetries; attempt++ {
        err := s.Send(FrameMessage(frame))
        if err != nil {
            return err
        }

        ack, err := s.awaitFrame()
        if err != nil {
            return err
        }
        if isAckFor(ack, seq) {
            return nil
        }

        s.logger.Debug().
            Uint32("seq", seq).
            Int("attempt", attempt + 1).
            Msg("invalid acknowledgment; resending chunk")
    }

    return TooManyRetries
}

// awaitFrame block until the client sends a frame. Text lines received
// meanwhile are queued, to be routed after the transfer.
func (s *Session) awaitFrame() ([]byte, error) {
    for {
        msg, err := s.conn.Recv()
        if err != nil {
            return nil, err
        }

        if msg.Type == MessageFrame {
            return msg.Data, nil
        }
        s.pending = append(s.pending, msg.Text())
    }
}
