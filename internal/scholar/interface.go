package scholar

import (
	"context"

	"github.com/citescope/citescope/internal/core/model"
)

// Bibliography is the read-only view of an external bibliographic index.
type Bibliography interface {
	// FindTopMatch returns the most relevant paper for a free-text query,
	// or nil when the index has no match.
	FindTopMatch(ctx context.Context, query string) (*model.Paper, error)

	// ForwardCitations returns papers citing paperID, at most limit of them.
	ForwardCitations(ctx context.Context, paperID string, limit int) ([]model.Paper, error)

	// BackwardCitations returns papers that paperID cites, at most limit.
	BackwardCitations(ctx context.Context, paperID string, limit int) ([]model.Paper, error)
}
