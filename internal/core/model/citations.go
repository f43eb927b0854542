package model

// PaperWithNestedCitations is a first-hop paper plus its own second-hop
// citation lists. The unrated search path fills only the list matching the
// paper's direction; the rated path fills both.
type PaperWithNestedCitations struct {
	Paper                   Paper   `json:"paper"`
	NestedForwardCitations  []Paper `json:"nested_forward_citations"`
	NestedBackwardCitations []Paper `json:"nested_backward_citations"`
}

type CitationSearchResponse struct {
	Query             string                     `json:"query"`
	MostRelevantPaper Paper                      `json:"most_relevant_paper"`
	ForwardCitations  []PaperWithNestedCitations `json:"forward_citations"`
	BackwardCitations []PaperWithNestedCitations `json:"backward_citations"`
	TotalForward      int                        `json:"total_forward"`
	TotalBackward     int                        `json:"total_backward"`
}

type RatedCitationSearchResponse struct {
	Query              string                     `json:"query"`
	QueryDecomposition QueryDecomposition         `json:"query_decomposition"`
	MostRelevantPaper  Paper                      `json:"most_relevant_paper"`
	ForwardCitations   []PaperWithNestedCitations `json:"forward_citations"`
	BackwardCitations  []PaperWithNestedCitations `json:"backward_citations"`
	TotalForward       int                        `json:"total_forward"`
	TotalBackward      int                        `json:"total_backward"`
}
