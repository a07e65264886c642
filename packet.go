package go_file_chat

import (
    "bytes"
    "encoding/binary"
    "hash/crc32"
)

const (
    // ChunkSize is the default payload size of every data frame but the
    // last one.
    ChunkSize = 1024

    // FrameHeaderLen is the size of the sequence number that starts every
    // frame.
    FrameHeaderLen = 4

    // FrameChecksumLen is the size of the CRC-32 that ends every frame.
    FrameChecksumLen = 4
)

var (
    // ackPayload is the payload of a frame accepting a chunk.
    ackPayload = []byte("ACK")

    // nakPayload is the payload of a frame asking for a chunk to be resent.
    nakPayload = []byte("NAK")
)

// EncodeFrame wraps `payload` into a transfer frame:
//
//     be32(seq) || payload || be32(crc32(payload))
//
// The checksum covers only the payload. A frame with an empty payload
// marks the end of a transfer.
func EncodeFrame(seq uint32, payload []byte) []byte {
    frame := make([]byte, FrameHeaderLen + len(payload) + FrameChecksumLen)

    binary.BigEndian.PutUint32(frame[:FrameHeaderLen], seq)
    copy(frame[FrameHeaderLen:], payload)
    sum := crc32.ChecksumIEEE(payload)
    binary.BigEndian.PutUint32(frame[FrameHeaderLen + len(payload):], sum)

    return frame
}

// DecodeAndVerify splits `frame` into its payload, starting at
// `checksumOffset`, and the trailing checksum, and reports whether the
// checksum matches the payload.
//
// A buffer too short to hold a checksum after the offset is reported as
// invalid.
func DecodeAndVerify(frame []byte, checksumOffset int) ([]byte, bool) {
    if checksumOffset < 0 || len(frame) < checksumOffset + FrameChecksumLen {
        return nil, false
    }

    end := len(frame) - FrameChecksumLen
    payload := frame[checksumOffset:end]
    want := binary.BigEndian.Uint32(frame[end:])

    return payload, crc32.ChecksumIEEE(payload) == want
}

// FrameSeq retrieve the sequence number of a frame.
func FrameSeq(frame []byte) (uint32, bool) {
    if len(frame) < FrameHeaderLen + FrameChecksumLen {
        return 0, false
    }
    return binary.BigEndian.Uint32(frame[:FrameHeaderLen]), true
}

// EncodeAck builds the frame accepting chunk `seq`.
func EncodeAck(seq uint32) []byte {
    return EncodeFrame(seq, ackPayload)
}

// EncodeNak builds the frame asking for chunk `seq` to be resent.
func EncodeNak(seq uint32) []byte {
    return EncodeFrame(seq, nakPayload)
}

// isAckFor check whether `frame` is an intact acknowledgment for `seq`.
func isAckFor(frame []byte, seq uint32) bool {
    payload, ok := DecodeAndVerify(frame, FrameHeaderLen)
    if !ok {
        return false
    }
    got, _ := FrameSeq(frame)
    return got == seq && bytes.Equal(payload, ackPayload)
}
