package model

// Chunk is a bounded span of manual text. Embedding is nil until the
// backfill job has processed the chunk; that state is expected, not an error.
type Chunk struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Source      string    `json:"source"`
	PageNumber  int       `json:"page_number"`
	SafetyLevel int       `json:"safety_level"`
	CreatedAt   int64     `json:"created_at"`
}

func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

type StoreStats struct {
	TotalChunks    int64   `json:"total_chunks"`
	EmbeddedChunks int64   `json:"chunks_with_embeddings"`
	Coverage       float64 `json:"embedding_coverage"`
	TotalImages    int64   `json:"total_images"`
}
