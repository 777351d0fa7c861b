package compress

import (
	"fmt"

	"github.com/golang/snappy"
)

// SnappyCodec implements Codec using Snappy block encoding.
type SnappyCodec struct{}

var _ Codec = SnappyCodec{}

func (SnappyCodec) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (SnappyCodec) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompression failed: %w", err)
	}
	return out, nil
}

func (SnappyCodec) Ext() string { return ".snappy" }
