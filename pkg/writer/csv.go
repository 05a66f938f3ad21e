package writer

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Table is a header plus rows of already formatted cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// CSVWriter writes a Table as CSV.
type CSVWriter struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// NewCSVWriter creates a comma separated writer.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{Comma: ','}
}

// Write writes the header and then every row. Rows must match the header width.
func (w *CSVWriter) Write(t Table, writer io.Writer) error {
	cw := csv.NewWriter(writer)
	if w.Comma != 0 {
		cw.Comma = w.Comma
	}

	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(t.Header))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Extension implements Encoder.
func (w *CSVWriter) Extension() string {
	if w.Comma == '\t' {
		return ".tsv"
	}
	return ".csv"
}
