package dataset

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressor wraps a reusable zstd encoder for snapshot files.
type compressor struct {
	encoder *zstd.Encoder
}

// newCompressor creates a compressor at SpeedBetterCompression;
// snapshots are written once and read at every start.
func newCompressor() (*compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &compressor{encoder: encoder}, nil
}

func (c *compressor) compress(data []byte) []byte {
	if len(data) == 0 {
		return []byte{}
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func (c *compressor) Close() error {
	return c.encoder.Close()
}

// decompress inflates a zstd frame.
func decompress(compressed []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return []byte{}, nil
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}
