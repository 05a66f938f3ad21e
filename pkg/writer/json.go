// Package writer encodes benchmark reports to files.
package writer

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Encoder writes one value of T in a fixed file format.
type Encoder[T any] interface {
	Write(data T, w io.Writer) error
	// Extension is the file suffix including the dot, e.g. ".json".
	Extension() string
}

// JSONWriter writes data as JSON.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write writes the data as JSON to the writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	return encoder.Encode(data)
}

// Extension implements Encoder.
func (w *JSONWriter[T]) Extension() string {
	return ".json"
}

// GzipWriter compresses the output of another encoder.
type GzipWriter[T any] struct {
	Inner Encoder[T]
	// CompressionLevel is the gzip compression level (1-9).
	CompressionLevel int
}

// NewGzipWriter wraps inner with default compression.
func NewGzipWriter[T any](inner Encoder[T]) *GzipWriter[T] {
	return &GzipWriter[T]{Inner: inner, CompressionLevel: gzip.DefaultCompression}
}

// Write writes the gzipped encoding of data.
func (w *GzipWriter[T]) Write(data T, writer io.Writer) error {
	gzWriter, err := gzip.NewWriterLevel(writer, w.CompressionLevel)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if err := w.Inner.Write(data, gzWriter); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode data: %w", err)
	}
	return gzWriter.Close()
}

// Extension implements Encoder.
func (w *GzipWriter[T]) Extension() string {
	return w.Inner.Extension() + ".gz"
}

// WriteFile encodes data into path. The content goes to a temporary file in
// the same directory first, so readers never observe a partial report.
func WriteFile[T any](enc Encoder[T], data T, path string) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := enc.Write(data, file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return os.Rename(tmp, path)
}
