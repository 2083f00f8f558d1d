package db

import (
	"encoding/binary"
	"errors"
	"math"
)

// DefaultVectorField is the hash field holding the FLOAT32 blob.
const DefaultVectorField = "vector"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to DefaultVectorField
	Vector       []float32
	K            int
	ReturnFields []string
}

// Validate checks the query is executable.
func (q *KNNQuery) Validate() error {
	if q.IndexName == "" {
		return errors.New("index name is required")
	}
	if len(q.Vector) == 0 {
		return errors.New("vector is required")
	}
	if q.K <= 0 {
		return errors.New("k must be positive")
	}
	return nil
}

// Field returns the vector field name, applying the default.
func (q *KNNQuery) Field() string {
	if q.VectorField == "" {
		return DefaultVectorField
	}
	return q.VectorField
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is cosine similarity clamped to [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// EncodeVector packs a vector as little-endian FLOAT32, the layout FT indexes expect.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(s string) ([]float32, error) {
	if len(s)%4 != 0 {
		return nil, errors.New("vector blob length is not a multiple of 4")
	}
	out := make([]float32, len(s)/4)
	b := []byte(s)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
