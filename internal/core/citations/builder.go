// Package citations expands the two-hop citation neighborhood around a
// seed paper.
package citations

import (
	"context"

	"github.com/citescope/citescope/internal/core/model"
	"github.com/citescope/citescope/internal/scholar"
)

type Builder struct {
	Bibliography scholar.Bibliography
}

func NewBuilder(bib scholar.Bibliography) *Builder {
	return &Builder{Bibliography: bib}
}

// Build fetches the first-hop forward and backward citations of seed, then
// one further hop for each first-hop paper. With bothDirections false a
// first-hop paper is expanded only in its own direction; with true, in
// both. First-hop order is preserved and a paper appearing in several
// branches is kept each time. Any provider failure aborts the build; no
// partial result comes back.
func (b *Builder) Build(ctx context.Context, seed model.Paper, forwardLimit, backwardLimit int, bothDirections bool) ([]model.PaperWithNestedCitations, []model.PaperWithNestedCitations, error) {
	firstForward, err := b.Bibliography.ForwardCitations(ctx, seed.PaperID, forwardLimit)
	if err != nil {
		return nil, nil, err
	}
	firstBackward, err := b.Bibliography.BackwardCitations(ctx, seed.PaperID, backwardLimit)
	if err != nil {
		return nil, nil, err
	}

	forward := make([]model.PaperWithNestedCitations, 0, len(firstForward))
	for _, paper := range firstForward {
		nestedForward, err := b.Bibliography.ForwardCitations(ctx, paper.PaperID, forwardLimit)
		if err != nil {
			return nil, nil, err
		}
		nestedBackward := []model.Paper{}
		if bothDirections {
			nestedBackward, err = b.Bibliography.BackwardCitations(ctx, paper.PaperID, backwardLimit)
			if err != nil {
				return nil, nil, err
			}
		}
		forward = append(forward, newNode(paper, nestedForward, nestedBackward))
	}

	backward := make([]model.PaperWithNestedCitations, 0, len(firstBackward))
	for _, paper := range firstBackward {
		nestedBackward, err := b.Bibliography.BackwardCitations(ctx, paper.PaperID, backwardLimit)
		if err != nil {
			return nil, nil, err
		}
		nestedForward := []model.Paper{}
		if bothDirections {
			nestedForward, err = b.Bibliography.ForwardCitations(ctx, paper.PaperID, forwardLimit)
			if err != nil {
				return nil, nil, err
			}
		}
		backward = append(backward, newNode(paper, nestedForward, nestedBackward))
	}

	return forward, backward, nil
}

func newNode(paper model.Paper, nestedForward, nestedBackward []model.Paper) model.PaperWithNestedCitations {
	if nestedForward == nil {
		nestedForward = []model.Paper{}
	}
	if nestedBackward == nil {
		nestedBackward = []model.Paper{}
	}
	return model.PaperWithNestedCitations{
		Paper:                   paper,
		NestedForwardCitations:  nestedForward,
		NestedBackwardCitations: nestedBackward,
	}
}
