// Package vectorstore is an in-memory similarity index over document chunks.
package vectorstore

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"

	"github.com/dukex/flowforge/pkg/models"
)

// Store keeps chunks keyed by id and answers cosine-similarity queries.
type Store struct {
	mu     sync.RWMutex
	chunks map[string]*models.DocumentChunk
}

func New() *Store {
	return &Store{chunks: make(map[string]*models.DocumentChunk)}
}

// Upsert inserts or replaces chunks by id.
func (s *Store) Upsert(_ context.Context, chunks []*models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		copied := *chunk
		copied.Embedding = slices.Clone(chunk.Embedding)
		s.chunks[chunk.ID] = &copied
	}

	return nil
}

// Query returns up to topK of userID's chunks ordered by descending similarity.
func (s *Store) Query(_ context.Context, userID string, vector []float32, topK int) ([]*models.ChunkMatch, error) {
	if topK <= 0 {
		return []*models.ChunkMatch{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*models.ChunkMatch, 0)

	for _, chunk := range s.chunks {
		if chunk.UserID != userID {
			continue
		}

		matches = append(matches, &models.ChunkMatch{
			DocumentChunk: *chunk,
			Score:         Cosine(vector, chunk.Embedding),
		})
	}

	slices.SortFunc(matches, func(a, b *models.ChunkMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// All returns a snapshot of every stored chunk ordered by id.
func (s *Store) All() []*models.DocumentChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.DocumentChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		copied := *chunk
		out = append(out, &copied)
	}

	slices.SortFunc(out, func(a, b *models.DocumentChunk) int { return cmp.Compare(a.ID, b.ID) })

	return out
}

// Cosine returns the cosine similarity of a and b, 0 when either is empty,
// zero-length or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
