package models

// DocumentChunk is an embedded slice of a user's document used for retrieval.
type DocumentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
}

// ChunkMatch is a chunk returned from a similarity search.
type ChunkMatch struct {
	DocumentChunk

	Score float64 `json:"score"`
}
