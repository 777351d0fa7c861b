// Package compress provides the compression codecs available for fetch
// output files.
package compress

import (
	"fmt"
	"strings"
)

// Codec compresses and decompresses whole buffers. Ext is the filename
// suffix appended to files written with the codec.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Ext() string
}

// ForName returns the codec for a configuration name: "none", "snappy",
// "lz4" or "zstd".
func ForName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return NoneCodec{}, nil
	case "snappy":
		return SnappyCodec{}, nil
	case "lz4":
		return LZ4Codec{}, nil
	case "zstd":
		return ZstdCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown compression codec: %s", name)
	}
}

// NoneCodec passes data through unchanged.
type NoneCodec struct{}

var _ Codec = NoneCodec{}

func (NoneCodec) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoneCodec) Decompress(data []byte) ([]byte, error) { return data, nil }
func (NoneCodec) Ext() string                            { return "" }
