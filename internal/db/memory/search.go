package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
)

// CreateIndex records the definition; hashes under its prefixes become searchable.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	s.indexes[def.Name] = &cp
	return nil
}

// IndexExists reports whether CreateIndex was called for name.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.indexes[name]
	return ok, nil
}

// SearchKNN scores every indexed hash by cosine similarity and keeps the top K.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%s: %w", q.IndexName, db.ErrIndexNotFound)}
	}

	var entries []db.SearchEntry
	for key := range s.data {
		e, live := s.lookup(key)
		if !live || e.hash == nil || !idx.Matches(key) {
			continue
		}
		vec, err := db.DecodeVector(e.hash[q.Field()])
		if err != nil || len(vec) != len(q.Vector) {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  math.Max(0, cosine(q.Vector, vec)),
			Fields: project(e.hash, q.ReturnFields, q.Field()),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func project(hash map[string]string, fields []string, vectorField string) map[string]string {
	out := make(map[string]string, len(hash))
	if len(fields) == 0 {
		for k, v := range hash {
			if k != vectorField {
				out[k] = v
			}
		}
		return out
	}
	for _, f := range fields {
		if v, ok := hash[f]; ok {
			out[f] = v
		}
	}
	return out
}
