package workload

import (
	"encoding/binary"

	apperrors "github.com/numa-dsu/pkg/errors"
)

// edgeBytes is the encoded size of one edge: two little-endian uint64s.
const edgeBytes = 16

// EncodeEdges serializes edges as a flat little-endian array.
func EncodeEdges(edges []Edge) []byte {
	buf := make([]byte, len(edges)*edgeBytes)
	for i, e := range edges {
		binary.LittleEndian.PutUint64(buf[i*edgeBytes:], e.U)
		binary.LittleEndian.PutUint64(buf[i*edgeBytes+8:], e.V)
	}
	return buf
}

// DecodeEdges is the inverse of EncodeEdges.
func DecodeEdges(buf []byte) ([]Edge, error) {
	if len(buf)%edgeBytes != 0 {
		return nil, apperrors.Newf(apperrors.CodeWorkloadError,
			"edge list of %d bytes is not a multiple of %d", len(buf), edgeBytes)
	}
	edges := make([]Edge, len(buf)/edgeBytes)
	for i := range edges {
		edges[i] = Edge{
			U: binary.LittleEndian.Uint64(buf[i*edgeBytes:]),
			V: binary.LittleEndian.Uint64(buf[i*edgeBytes+8:]),
		}
	}
	return edges, nil
}
