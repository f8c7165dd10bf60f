package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/pgvector/pgvector-go"
)

// VectorRepository stores chunk embeddings in a pgvector column. Ranking is
// done by PostgreSQL with the cosine distance operator.
type VectorRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewVectorRepository creates a new vector repository.
func NewVectorRepository(db *sql.DB, logger *slog.Logger) *VectorRepository {
	return &VectorRepository{db: db, logger: logger}
}

func (r *VectorRepository) Upsert(ctx context.Context, chunks []*models.DocumentChunk) (err error) {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, chunk := range chunks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO document_chunks (id, document_id, user_id, text, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				user_id = EXCLUDED.user_id,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding
		`, chunk.ID, chunk.DocumentID, chunk.UserID, chunk.Text, pgvector.NewVector(chunk.Embedding))
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Query returns the topK chunks of userID closest to vector. Score is the
// cosine similarity, 1 - cosine distance.
func (r *VectorRepository) Query(ctx context.Context, userID string, vector []float32, topK int) ([]*models.ChunkMatch, error) {
	if topK <= 0 {
		return []*models.ChunkMatch{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, document_id, user_id, text, embedding, 1 - (embedding <=> $2) AS score
		FROM document_chunks
		WHERE user_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, userID, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	matches := make([]*models.ChunkMatch, 0, topK)

	for rows.Next() {
		var (
			match     models.ChunkMatch
			embedding pgvector.Vector
		)

		err := rows.Scan(&match.ID, &match.DocumentID, &match.UserID, &match.Text, &embedding, &match.Score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		match.Embedding = embedding.Slice()
		matches = append(matches, &match)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return matches, nil
}
