package domain

// Chunk is one indexed fragment of an ingested document.
type Chunk struct {
	ID   string
	Text string
}

// Hit is one entry of a single-signal ranking (semantic or keyword).
type Hit struct {
	ID    string
	Score float64
}

// ScoredDocument is one fused search result. It is mutated only during a
// single fusion pass and immutable once returned.
type ScoredDocument struct {
	ID            string  `json:"id"`
	Content       string  `json:"content"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	FusedScore    float64 `json:"score"`
	Rank          int     `json:"rank"`
}
