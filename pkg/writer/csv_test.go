package writer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter(t *testing.T) {
	tests := []struct {
		name  string
		comma rune
		table Table
		want  string
		ext   string
	}{
		{
			name:  "header only",
			comma: ',',
			table: Table{Header: []string{"algorithm", "ops_per_ms"}},
			want:  "algorithm,ops_per_ms\n",
			ext:   ".csv",
		},
		{
			name:  "rows with quoting",
			comma: ',',
			table: Table{
				Header: []string{"algorithm", "note"},
				Rows:   [][]string{{"DSU_Sequential", "a,b"}, {"DSU_Classic_Halving", `say "hi"`}},
			},
			want: "algorithm,note\nDSU_Sequential,\"a,b\"\nDSU_Classic_Halving,\"say \"\"hi\"\"\"\n",
			ext:  ".csv",
		},
		{
			name:  "tab separated",
			comma: '\t',
			table: Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}},
			want:  "a\tb\n1\t2\n",
			ext:   ".tsv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &CSVWriter{Comma: tt.comma}
			var buf bytes.Buffer
			require.NoError(t, w.Write(tt.table, &buf))
			assert.Equal(t, tt.want, buf.String())
			assert.Equal(t, tt.ext, w.Extension())
		})
	}
}

func TestCSVWriter_RowWidthMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := NewCSVWriter().Write(Table{Header: []string{"a"}, Rows: [][]string{{"1", "2"}}}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0 has 2 cells")
}
