package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/vectorstore"
)

const (
	vectorsCollection = "vectors"
	vectorsDocument   = "chunks"
)

// VectorRepository keeps chunks in an in-memory index mirrored to a single file.
type VectorRepository struct {
	docs  *documents
	index *vectorstore.Store
}

// NewVectorRepository loads any previously stored chunks.
func NewVectorRepository(docs *documents) (*VectorRepository, error) {
	index := vectorstore.New()

	var chunks []*models.DocumentChunk

	err := docs.read(vectorsCollection, vectorsDocument, &chunks)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	err = index.Upsert(context.Background(), chunks)
	if err != nil {
		return nil, err
	}

	return &VectorRepository{docs: docs, index: index}, nil
}

func (vr *VectorRepository) Upsert(ctx context.Context, chunks []*models.DocumentChunk) error {
	err := vr.index.Upsert(ctx, chunks)
	if err != nil {
		return err
	}

	return vr.docs.write(vectorsCollection, vectorsDocument, vr.index.All())
}

func (vr *VectorRepository) Query(ctx context.Context, userID string, vector []float32, topK int) ([]*models.ChunkMatch, error) {
	return vr.index.Query(ctx, userID, vector, topK)
}
