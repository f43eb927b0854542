package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/citescope/citescope/internal/cache"
	"github.com/citescope/citescope/internal/core/citations"
	"github.com/citescope/citescope/internal/core/decompose"
	"github.com/citescope/citescope/internal/core/model"
	"github.com/citescope/citescope/internal/core/rate"
	"github.com/citescope/citescope/internal/llm"
	"github.com/citescope/citescope/internal/scholar"
)

// NotFoundError means no seed paper could be resolved for a query.
type NotFoundError struct {
	Query string
	// TriedFallbacks is set when the decomposition-driven fallback cascade
	// was exhausted too, not just the raw query.
	TriedFallbacks bool
}

func (e *NotFoundError) Error() string {
	if e.TriedFallbacks {
		return fmt.Sprintf("no papers found for query: %s or any of its components", e.Query)
	}
	return fmt.Sprintf("no papers found for query: %s", e.Query)
}

// Discovery ties the decomposer, bibliography, neighborhood builder and
// rater together behind the result cache.
type Discovery struct {
	Bibliography scholar.Bibliography
	Decomposer   *decompose.Decomposer
	Rater        *rate.Rater
	Builder      *citations.Builder
	Cache        cache.Cache
}

func NewDiscovery(bib scholar.Bibliography, llmClient llm.LLMClient, resultCache cache.Cache) *Discovery {
	return &Discovery{
		Bibliography: bib,
		Decomposer:   decompose.NewDecomposer(llmClient),
		Rater:        rate.NewRater(llmClient),
		Builder:      citations.NewBuilder(bib),
		Cache:        resultCache,
	}
}

func (d *Discovery) Decompose(ctx context.Context, query string) (model.QueryDecomposition, error) {
	return d.Decomposer.Decompose(ctx, query)
}

// CitationSearch is the unrated path: the seed comes from the raw query
// alone, and each first-hop paper is expanded only in its own direction.
func (d *Discovery) CitationSearch(ctx context.Context, query string, forwardLimit, backwardLimit int) (*model.CitationSearchResponse, error) {
	seed, err := d.Bibliography.FindTopMatch(ctx, query)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		return nil, &NotFoundError{Query: query}
	}

	forward, backward, err := d.Builder.Build(ctx, *seed, forwardLimit, backwardLimit, false)
	if err != nil {
		return nil, err
	}

	return &model.CitationSearchResponse{
		Query:             query,
		MostRelevantPaper: *seed,
		ForwardCitations:  forward,
		BackwardCitations: backward,
		TotalForward:      len(forward),
		TotalBackward:     len(backward),
	}, nil
}

// RatedSearch decomposes the query, resolves a seed paper with fallbacks,
// expands the neighborhood in both directions per hop, rates every paper
// and caches the assembled result. A cache hit short-circuits everything:
// no freshness check, no re-rating.
func (d *Discovery) RatedSearch(ctx context.Context, query string, forwardLimit, backwardLimit int) (*model.RatedCitationSearchResponse, error) {
	key := cache.Key(query, forwardLimit, backwardLimit)
	if raw, ok := d.Cache.Get(key); ok {
		var cached model.RatedCitationSearchResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		log.Printf("Warning: ignoring undecodable cache entry %s", key)
	}

	dec, err := d.Decomposer.Decompose(ctx, query)
	if err != nil {
		return nil, err
	}

	seed, err := d.resolveSeed(ctx, query, dec)
	if err != nil {
		return nil, err
	}

	forward, backward, err := d.Builder.Build(ctx, *seed, forwardLimit, backwardLimit, true)
	if err != nil {
		return nil, err
	}

	ratedSeed := seed.WithRating(d.Rater.Rate(ctx, *seed, dec).Final())
	ratedForward := d.rateNodes(ctx, forward, dec)
	ratedBackward := d.rateNodes(ctx, backward, dec)

	result := &model.RatedCitationSearchResponse{
		Query:              query,
		QueryDecomposition: dec,
		MostRelevantPaper:  ratedSeed,
		ForwardCitations:   ratedForward,
		BackwardCitations:  ratedBackward,
		TotalForward:       len(ratedForward),
		TotalBackward:      len(ratedBackward),
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := d.Cache.Put(key, raw); err != nil {
		log.Printf("Warning: could not persist cache entry %s: %v", key, err)
	}
	return result, nil
}

// resolveSeed finds the seed paper, falling back through the decomposition
// when the raw query has no match: main concepts, then component
// descriptions, then component keywords. First hit wins.
func (d *Discovery) resolveSeed(ctx context.Context, query string, dec model.QueryDecomposition) (*model.Paper, error) {
	candidates := []string{query}
	candidates = append(candidates, dec.MainConcepts...)
	for _, comp := range dec.Components {
		candidates = append(candidates, comp.Description)
	}
	for _, comp := range dec.Components {
		candidates = append(candidates, comp.Keywords...)
	}

	for _, candidate := range candidates {
		seed, err := d.Bibliography.FindTopMatch(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if seed != nil {
			return seed, nil
		}
	}
	return nil, &NotFoundError{Query: query, TriedFallbacks: true}
}

func (d *Discovery) rateNodes(ctx context.Context, nodes []model.PaperWithNestedCitations, dec model.QueryDecomposition) []model.PaperWithNestedCitations {
	rated := make([]model.PaperWithNestedCitations, 0, len(nodes))
	for _, node := range nodes {
		rated = append(rated, model.PaperWithNestedCitations{
			Paper:                   node.Paper.WithRating(d.Rater.Rate(ctx, node.Paper, dec).Final()),
			NestedForwardCitations:  d.ratePapers(ctx, node.NestedForwardCitations, dec),
			NestedBackwardCitations: d.ratePapers(ctx, node.NestedBackwardCitations, dec),
		})
	}
	return rated
}

func (d *Discovery) ratePapers(ctx context.Context, papers []model.Paper, dec model.QueryDecomposition) []model.Paper {
	rated := make([]model.Paper, 0, len(papers))
	for _, p := range papers {
		rated = append(rated, p.WithRating(d.Rater.Rate(ctx, p, dec).Final()))
	}
	return rated
}
