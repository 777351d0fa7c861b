// Package protocol implements the binary wire format spoken between the
// client and the broker: CRC32C-checked frames carrying one command each,
// with big-endian fixed-width scalars and length-prefixed strings.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/INLOpen/nexusctl/core"
)

type CommandType byte

const (
	CommandContentsList CommandType = 0x01
	CommandReadSimple   CommandType = 0x02
	CommandReadExtended CommandType = 0x03
	CommandUpdateTags   CommandType = 0x04
	CommandRemoveTags   CommandType = 0x05
	CommandAuth         CommandType = 0x06

	CommandContentsEntry  CommandType = 0x11
	CommandContentsEnd    CommandType = 0x12
	CommandStreamSimple   CommandType = 0x13
	CommandStreamExtended CommandType = 0x14
	CommandStreamEnd      CommandType = 0x15

	CommandAck   CommandType = 0x20
	CommandError CommandType = 0xEE
)

func (c CommandType) String() string {
	switch c {
	case CommandContentsList:
		return "CONTENTS_LIST"
	case CommandReadSimple:
		return "READ_SIMPLE"
	case CommandReadExtended:
		return "READ_EXTENDED"
	case CommandUpdateTags:
		return "UPDATE_TAGS"
	case CommandRemoveTags:
		return "REMOVE_TAGS"
	case CommandAuth:
		return "AUTH"
	case CommandContentsEntry:
		return "CONTENTS_ENTRY"
	case CommandContentsEnd:
		return "CONTENTS_END"
	case CommandStreamSimple:
		return "STREAM_SIMPLE"
	case CommandStreamExtended:
		return "STREAM_EXTENDED"
	case CommandStreamEnd:
		return "STREAM_END"
	case CommandAck:
		return "ACK"
	case CommandError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(c))
	}
}

type ContentsListRequest struct {
	Origin string
}

// ReadRequest is the payload of both CommandReadSimple and
// CommandReadExtended; the command byte selects the response shape.
type ReadRequest struct {
	Origin  string
	Address core.Address
	Start   int64
	End     int64
}

type UpdateTagsRequest struct {
	Origin  string
	Address core.Address
	Tags    core.SourceDict
}

type RemoveTagsRequest struct {
	Origin  string
	Address core.Address
	Keys    []string
}

type AuthRequest struct {
	Username string
	Password string
}

type ContentsEntryResponse struct {
	Address core.Address
	Source  core.SourceDict
}

type StreamSimpleResponse struct {
	Burst uint64
	Point core.SimplePoint
}

type StreamExtendedResponse struct {
	Burst uint64
	Point core.ExtendedPoint
}

type AckResponse struct {
	Affected uint64
}

func writeString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("string too long for wire format: %d bytes", len(s))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeStringMap(w io.Writer, m map[string]string) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(m))); err != nil {
		return err
	}
	for k, v := range m {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readStringMap(r io.Reader) (map[string]string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	m := make(map[string]string, length)
	for i := 0; i < int(length); i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func writeStringSlice(w io.Writer, ss []string) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(ss))); err != nil {
		return err
	}
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStringSlice(r io.Reader) ([]string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	ss := make([]string, length)
	for i := range ss {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		ss[i] = s
	}
	return ss, nil
}
