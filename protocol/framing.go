package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// MaxFrameSize caps a frame's payload so a corrupt length prefix cannot
// trigger a huge allocation.
const MaxFrameSize = 16 * 1024 * 1024 // 16 MB

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// WriteFrame writes one frame: command byte, 4-byte big-endian payload
// length (the length counts the trailing 4-byte checksum), payload, and
// a CRC32C checksum over command, length and payload.
func WriteFrame(w io.Writer, cmdType CommandType, payload []byte) error {
	var header [5]byte
	header[0] = byte(cmdType)
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)+4))

	hasher := crc32.New(crc32cTable)
	hasher.Write(header[:])
	hasher.Write(payload)

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("failed to write frame payload: %w", err)
		}
	}

	var checksum [4]byte
	binary.BigEndian.PutUint32(checksum[:], hasher.Sum32())
	if _, err := w.Write(checksum[:]); err != nil {
		return fmt.Errorf("failed to write frame checksum: %w", err)
	}
	return nil
}

// ReadFrame reads one frame and verifies its checksum. The returned
// payload excludes the checksum bytes.
func ReadFrame(r *bufio.Reader) (CommandType, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	payloadLen := binary.BigEndian.Uint32(header[1:])
	if payloadLen < 4 {
		return 0, nil, fmt.Errorf("invalid frame length: %d", payloadLen)
	}
	if payloadLen > MaxFrameSize {
		return 0, nil, fmt.Errorf("frame size %d exceeds maximum %d", payloadLen, MaxFrameSize)
	}

	body := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame payload: %w", err)
	}

	payload, trailer := body[:payloadLen-4], body[payloadLen-4:]

	hasher := crc32.New(crc32cTable)
	hasher.Write(header[:])
	hasher.Write(payload)
	if binary.BigEndian.Uint32(trailer) != hasher.Sum32() {
		return 0, nil, fmt.Errorf("frame checksum mismatch for command %s", CommandType(header[0]))
	}

	return CommandType(header[0]), payload, nil
}
