package model

// Rating is a paper's relevance against a decomposed query.
type Rating string

const (
	PerfectlyRelevant Rating = "Perfectly Relevant"
	Relevant          Rating = "Relevant"
	SomewhatRelevant  Rating = "Somewhat Relevant"
)

type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Paper mirrors the Semantic Scholar graph API paper shape. A Paper is a
// value: rating one produces a new value via WithRating.
type Paper struct {
	PaperID         string   `json:"paperId"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract,omitempty"`
	Authors         []Author `json:"authors,omitempty"`
	Year            int      `json:"year,omitempty"`
	CitationCount   *int     `json:"citationCount,omitempty"`
	ReferenceCount  *int     `json:"referenceCount,omitempty"`
	URL             string   `json:"url,omitempty"`
	RelevanceRating Rating   `json:"relevance_rating,omitempty"`
}

func (p Paper) WithRating(r Rating) Paper {
	p.RelevanceRating = r
	return p
}
