// Package rag indexes user documents as embedded chunks and retrieves the
// chunks most similar to a question.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"golang.org/x/sync/errgroup"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 200
	DefaultTopK  = 5

	embedConcurrency = 4
)

var ErrEmptyDocument = errors.New("document has no text")

// Embedder turns text into an embedding vector.
type Embedder interface {
	EmbedContent(ctx context.Context, text string) ([]float32, error)
}

// Chunk splits text into windows of size runes, each overlapping the
// previous one by overlap runes.
func Chunk(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 || size <= 0 {
		return nil
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	chunks := make([]string, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// Indexer embeds documents and stores their chunks.
type Indexer struct {
	embedder Embedder
	vectors  persistence.VectorRepository
	logger   *slog.Logger
}

func NewIndexer(embedder Embedder, vectors persistence.VectorRepository, logger *slog.Logger) *Indexer {
	return &Indexer{embedder: embedder, vectors: vectors, logger: logger}
}

// IndexDocument chunks text, embeds every chunk and upserts them with ids
// "<documentID>-<i>". It returns the number of chunks stored.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID, userID, text string) (int, error) {
	pieces := Chunk(text, ChunkSize, ChunkOverlap)
	if len(pieces) == 0 {
		return 0, ErrEmptyDocument
	}

	chunks := make([]*models.DocumentChunk, len(pieces))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(embedConcurrency)

	for i, piece := range pieces {
		group.Go(func() error {
			embedding, err := ix.embedder.EmbedContent(groupCtx, piece)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d: %w", i, err)
			}

			chunks[i] = &models.DocumentChunk{
				ID:         fmt.Sprintf("%s-%d", documentID, i),
				DocumentID: documentID,
				UserID:     userID,
				Text:       piece,
				Embedding:  embedding,
			}

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return 0, err
	}

	err = ix.vectors.Upsert(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	ix.logger.InfoContext(ctx, "document indexed", "document_id", documentID, "user_id", userID, "chunks", len(chunks))

	return len(chunks), nil
}

// Retriever implements protocol.Retriever over a vector repository.
type Retriever struct {
	embedder Embedder
	vectors  persistence.VectorRepository
}

func NewRetriever(embedder Embedder, vectors persistence.VectorRepository) *Retriever {
	return &Retriever{embedder: embedder, vectors: vectors}
}

// RetrieveContext returns the texts of the topK chunks of userID most similar
// to question, joined by a blank line.
func (r *Retriever) RetrieveContext(ctx context.Context, userID, question string, topK int) (string, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := r.embedder.EmbedContent(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	matches, err := r.vectors.Query(ctx, userID, vector, topK)
	if err != nil {
		return "", fmt.Errorf("failed to query vectors: %w", err)
	}

	texts := make([]string, 0, len(matches))
	for _, match := range matches {
		texts = append(texts, match.Text)
	}

	return strings.Join(texts, "\n\n"), nil
}
