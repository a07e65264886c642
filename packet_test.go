package go_file_chat

import (
    "bytes"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
    for _, size := range []int{0, 1, 3, 511, ChunkSize - 1, ChunkSize, 4000} {
        payload := bytes.Repeat([]byte{0xa5}, size)
        for i := range payload {
            payload[i] ^= byte(i)
        }

        frame := EncodeFrame(uint32(size), payload)
        require.Len(t, frame, FrameHeaderLen + size + FrameChecksumLen)

        got, ok := DecodeAndVerify(frame, FrameHeaderLen)
        require.True(t, ok, "size %d", size)
        assert.Equal(t, payload, append([]byte{}, got...), "size %d", size)

        seq, ok := FrameSeq(frame)
        require.True(t, ok)
        assert.Equal(t, uint32(size), seq)
    }
}

// TestFrameBitFlip check that flipping any bit of the payload or of the
// checksum is detected.
func TestFrameBitFlip(t *testing.T) {
    frame := EncodeFrame(7, []byte("hello, world"))

    for i := FrameHeaderLen; i < len(frame); i++ {
        for bit := 0; bit < 8; bit++ {
            corrupted := append([]byte{}, frame...)
            corrupted[i] ^= 1 << bit

            _, ok := DecodeAndVerify(corrupted, FrameHeaderLen)
            assert.False(t, ok, "flipped bit %d of byte %d", bit, i)
        }
    }
}

func TestDecodeShortBuffer(t *testing.T) {
    for _, frame := range [][]byte{nil, {}, {0, 0, 0, 0}, {0, 0, 0, 0, 1, 2, 3}} {
        payload, ok := DecodeAndVerify(frame, FrameHeaderLen)
        assert.False(t, ok, "frame %v", frame)
        assert.Nil(t, payload)
    }

    _, ok := DecodeAndVerify(EncodeFrame(0, nil), -1)
    assert.False(t, ok)

    _, ok = FrameSeq([]byte{0, 0, 0, 1})
    assert.False(t, ok)
}

func TestTerminalFrame(t *testing.T) {
    frame := EncodeFrame(3, nil)
    require.Len(t, frame, FrameHeaderLen + FrameChecksumLen)

    payload, ok := DecodeAndVerify(frame, FrameHeaderLen)
    require.True(t, ok)
    assert.Empty(t, payload)
}

func TestAck(t *testing.T) {
    assert.True(t, isAckFor(EncodeAck(4), 4))
    assert.False(t, isAckFor(EncodeAck(4), 5))
    assert.False(t, isAckFor(EncodeNak(4), 4))
    assert.False(t, isAckFor(EncodeFrame(4, []byte("ACK!")), 4))

    corrupted := EncodeAck(4)
    corrupted[FrameHeaderLen] ^= 0x20
    assert.False(t, isAckFor(corrupted, 4))

    assert.False(t, isAckFor([]byte("ACK"), 0))
}
