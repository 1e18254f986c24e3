package model

// ScoredChunk pairs a chunk with its cosine similarity against the query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// ScoredImage pairs an image record with its keyword-overlap relevance.
type ScoredImage struct {
	Image     ImageRecord `json:"image"`
	Relevance int         `json:"relevance"`
}

// QueryResult is the per-request retrieval outcome. It lives for one request
// and is never shared across requests.
type QueryResult struct {
	QueryText   string
	Chunks      []ScoredChunk
	Images      []ScoredImage
	SafetyLevel int
	// FallbackEligible is set when no chunk cleared the similarity threshold.
	// Rendering that case is the consolidator's call, not the retriever's.
	FallbackEligible bool
}

type SourceRef struct {
	Source      string  `json:"source"`
	Page        int     `json:"page"`
	Similarity  float64 `json:"similarity"`
	SafetyLevel int     `json:"safety_level"`
}

type ImageSummary struct {
	Source          string    `json:"source"`
	Page            int       `json:"page"`
	ImageType       ImageType `json:"image_type"`
	OCRExcerpt      string    `json:"ocr_excerpt"`
	ComplexityLevel int       `json:"complexity_level"`
	StorageRef      string    `json:"storage_ref"`
}

// StructuredResponse is the answer schema. The generative and fallback paths
// produce the same shape; callers never special-case fallback output.
type StructuredResponse struct {
	Query        string         `json:"query"`
	Answer       string         `json:"answer"`
	Sources      []SourceRef    `json:"sources"`
	Images       []ImageSummary `json:"images"`
	SafetyLevel  int            `json:"safety_level"`
	FallbackUsed bool           `json:"fallback_used"`
	ChunksFound  int            `json:"chunks_found"`
}
