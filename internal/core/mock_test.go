package core

import (
	"context"
	"strings"

	"github.com/citescope/citescope/internal/core/model"
)

// mockLLM answers decomposition prompts with a scripted JSON payload and
// every other prompt with a scripted rating.
type mockLLM struct {
	DecompositionJSON string
	RatingResponse    string
	DecomposeErr      error
	RatingErr         error
	Calls             int
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls++
	if strings.Contains(prompt, "decompose academic search queries") {
		if m.DecomposeErr != nil {
			return "", m.DecomposeErr
		}
		return m.DecompositionJSON, nil
	}
	if m.RatingErr != nil {
		return "", m.RatingErr
	}
	if m.RatingResponse == "" {
		return "Relevant", nil
	}
	return m.RatingResponse, nil
}

// mockBibliography serves scripted matches and citation edges.
type mockBibliography struct {
	Matches  map[string]model.Paper
	Forward  map[string][]model.Paper
	Backward map[string][]model.Paper

	SearchQueries []string
	Calls         int
}

func (m *mockBibliography) FindTopMatch(ctx context.Context, query string) (*model.Paper, error) {
	m.Calls++
	m.SearchQueries = append(m.SearchQueries, query)
	if p, ok := m.Matches[query]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *mockBibliography) ForwardCitations(ctx context.Context, paperID string, limit int) ([]model.Paper, error) {
	m.Calls++
	papers := m.Forward[paperID]
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

func (m *mockBibliography) BackwardCitations(ctx context.Context, paperID string, limit int) ([]model.Paper, error) {
	m.Calls++
	papers := m.Backward[paperID]
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}
