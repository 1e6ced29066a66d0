package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"lawrag/internal/domain"
)

// Store is an in-memory vector store using brute-force cosine similarity.
// It keeps the same upsert-by-ID semantics as the real index, which makes it
// a faithful stand-in for pipeline tests.
type Store struct {
	mu        sync.RWMutex
	dimension int
	byID      map[string]int
	vectors   [][]float32
	chunks    []domain.Chunk
}

func NewStore() *Store { return &Store{byID: make(map[string]int)} }

func (s *Store) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return domain.ErrDimensionMismatch
	}
	s.dimension = dimension
	return nil
}

func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return domain.ErrDimensionMismatch
		}
	}
	for i, ch := range chunks {
		if j, ok := s.byID[ch.ID]; ok {
			s.chunks[j] = ch
			s.vectors[j] = vectors[i]
			continue
		}
		s.byID[ch.ID] = len(s.chunks)
		s.chunks = append(s.chunks, ch)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, limit int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, domain.ErrDimensionMismatch
	}
	results := make([]domain.ScoredChunk, len(s.chunks))
	for i := range s.vectors {
		results[i] = domain.ScoredChunk{Chunk: s.chunks[i], Score: cosine(s.vectors[i], vector)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > len(results) {
		limit = len(results)
	}
	return results[:limit], nil
}

// Len reports the number of entries in the index.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(na))*math.Sqrt(float64(nb)))
}
