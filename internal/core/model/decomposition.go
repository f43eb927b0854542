package model

type QueryComponent struct {
	Component   string   `json:"component"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// QueryDecomposition is the LLM's breakdown of a free-text search query.
// Immutable once produced for a request.
type QueryDecomposition struct {
	OriginalQuery string           `json:"original_query"`
	Components    []QueryComponent `json:"components"`
	MainConcepts  []string         `json:"main_concepts"`
	Relationships []string         `json:"relationships"`
}
