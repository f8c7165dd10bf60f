package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Indexer stores a document for retrieval.
type Indexer interface {
	IndexDocument(ctx context.Context, documentID, userID, text string) (int, error)
}

// IndexRequest is a document to chunk and embed.
type IndexRequest struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"     validate:"required"`
	Text       string `json:"text"        validate:"required"`
}

// IndexResult reports how a document was stored.
type IndexResult struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

type Document struct {
	indexer Indexer
}

func NewDocument(indexer Indexer) *Document {
	return &Document{indexer: indexer}
}

// Index chunks and embeds a document. An empty document id is generated.
func (d *Document) Index(ctx context.Context, req IndexRequest) (*IndexResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyDocument
	}

	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}

	chunks, err := d.indexer.IndexDocument(ctx, req.DocumentID, req.UserID, req.Text)
	if err != nil {
		return nil, err
	}

	return &IndexResult{DocumentID: req.DocumentID, Chunks: chunks}, nil
}
