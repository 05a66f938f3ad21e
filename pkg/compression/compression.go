// Package compression compresses cached payloads.
//
// Pack prefixes the compressed bytes with a one-byte codec tag, so Unpack
// needs no configuration to read a frame back.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Codec identifies a compression algorithm in a packed frame.
type Codec uint8

const (
	// CodecNone stores data unchanged
	CodecNone Codec = 0
	// CodecGzip uses gzip (slower, widely readable)
	CodecGzip Codec = 1
	// CodecZstd uses zstd (faster, better ratio)
	CodecZstd Codec = 2
)

// String returns the configuration name of c.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec maps a configuration name to a Codec. Empty means zstd.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "zstd":
		return CodecZstd, nil
	case "gzip":
		return CodecGzip, nil
	case "none":
		return CodecNone, nil
	default:
		return 0, fmt.Errorf("unknown compression codec: %q", s)
	}
}

// Level represents the compression level.
type Level int

const (
	// LevelFastest prioritizes speed over compression ratio
	LevelFastest Level = 1
	// LevelDefault balances speed and compression ratio
	LevelDefault Level = 3
	// LevelBest prioritizes compression ratio over speed
	LevelBest Level = 9
)

// Compressor compresses and decompresses whole buffers.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Codec() Codec
}

// GzipCompressor implements Compressor using gzip.
type GzipCompressor struct {
	level int
}

// NewGzipCompressor creates a new gzip compressor.
func NewGzipCompressor(level Level) *GzipCompressor {
	gzipLevel := gzip.DefaultCompression
	switch level {
	case LevelFastest:
		gzipLevel = gzip.BestSpeed
	case LevelBest:
		gzipLevel = gzip.BestCompression
	}
	return &GzipCompressor{level: gzipLevel}
}

// Compress compresses data using gzip.
func (c *GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write gzip data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress decompresses gzip data.
func (c *GzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// Codec returns CodecGzip.
func (c *GzipCompressor) Codec() Codec {
	return CodecGzip
}

// ZstdCompressor implements Compressor using zstd. It is safe for concurrent use.
type ZstdCompressor struct {
	encoder *zstd.Encoder
}

// NewZstdCompressor creates a new zstd compressor.
func NewZstdCompressor(level Level) (*ZstdCompressor, error) {
	zstdLevel := zstd.SpeedDefault
	switch level {
	case LevelFastest:
		zstdLevel = zstd.SpeedFastest
	case LevelBest:
		zstdLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &ZstdCompressor{encoder: encoder}, nil
}

// Compress compresses data using zstd.
func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress decompresses zstd data.
func (c *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec, err := sharedZstdDecoder()
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(data, nil)
}

// Codec returns CodecZstd.
func (c *ZstdCompressor) Codec() Codec {
	return CodecZstd
}

// Close releases the encoder.
func (c *ZstdCompressor) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
}

var (
	zstdDecoder     *zstd.Decoder
	zstdDecoderErr  error
	zstdDecoderOnce sync.Once
)

// sharedZstdDecoder returns a process-wide decoder; DecodeAll is safe for
// concurrent use.
func sharedZstdDecoder() (*zstd.Decoder, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if zstdDecoderErr != nil {
			zstdDecoderErr = fmt.Errorf("failed to create zstd decoder: %w", zstdDecoderErr)
		}
	})
	return zstdDecoder, zstdDecoderErr
}

// NoOpCompressor is a pass-through compressor.
type NoOpCompressor struct{}

func (NoOpCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoOpCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (NoOpCompressor) Codec() Codec                           { return CodecNone }

// New creates a compressor by codec and level.
func New(codec Codec, level Level) (Compressor, error) {
	switch codec {
	case CodecZstd:
		return NewZstdCompressor(level)
	case CodecGzip:
		return NewGzipCompressor(level), nil
	case CodecNone:
		return NoOpCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression codec: %d", codec)
	}
}

// Default returns zstd at the default level, or gzip if zstd cannot start.
func Default() Compressor {
	comp, err := NewZstdCompressor(LevelDefault)
	if err != nil {
		return NewGzipCompressor(LevelDefault)
	}
	return comp
}

// Pack compresses data with c and prefixes the codec tag.
func Pack(c Compressor, data []byte) ([]byte, error) {
	body, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, byte(c.Codec()))
	return append(frame, body...), nil
}

// Unpack reverses Pack. For CodecNone the result aliases frame.
func Unpack(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty compressed frame")
	}
	body := frame[1:]
	switch Codec(frame[0]) {
	case CodecNone:
		return body, nil
	case CodecGzip:
		return NewGzipCompressor(LevelDefault).Decompress(body)
	case CodecZstd:
		return (&ZstdCompressor{}).Decompress(body)
	default:
		return nil, fmt.Errorf("unknown compression codec tag: %d", frame[0])
	}
}

// Closeable is an optional interface for compressors that hold resources.
type Closeable interface {
	Close()
}

// Close closes a compressor if it implements Closeable.
func Close(c Compressor) {
	if closer, ok := c.(Closeable); ok {
		closer.Close()
	}
}
