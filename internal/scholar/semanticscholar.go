// Package scholar queries the Semantic Scholar graph API for papers and
// their citation links.
package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/citescope/citescope/internal/core/model"
)

const (
	defaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// paperFields is the field set requested on every lookup.
	paperFields = "paperId,title,abstract,authors,year,citationCount,referenceCount,url"

	maxAttempts = 10
)

// retryDelay is the fixed pause between attempts. Tests override it to
// avoid real sleeps.
var retryDelay = time.Second

// Client talks to the Semantic Scholar graph API. The public API needs no
// key; setting one raises rate limits.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// FindTopMatch searches the paper index and returns the single best hit, or
// nil when the index has no match for the query.
func (c *Client) FindTopMatch(ctx context.Context, query string) (*model.Paper, error) {
	params := url.Values{
		"query":  {query},
		"limit":  {"1"},
		"fields": {paperFields},
	}

	var sr searchResponse
	if err := c.getJSON(ctx, "paper search", c.baseURL+"/paper/search?"+params.Encode(), &sr); err != nil {
		return nil, err
	}
	if len(sr.Data) == 0 {
		return nil, nil
	}
	top := sr.Data[0]
	return &top, nil
}

// ForwardCitations returns papers citing paperID, capped at limit.
func (c *Client) ForwardCitations(ctx context.Context, paperID string, limit int) ([]model.Paper, error) {
	return c.citationEdges(ctx, "forward citations", paperID, "citations", limit)
}

// BackwardCitations returns papers paperID cites (its references), capped
// at limit.
func (c *Client) BackwardCitations(ctx context.Context, paperID string, limit int) ([]model.Paper, error) {
	return c.citationEdges(ctx, "backward citations", paperID, "references", limit)
}

func (c *Client) citationEdges(ctx context.Context, op, paperID, endpoint string, limit int) ([]model.Paper, error) {
	params := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"fields": {paperFields},
	}
	reqURL := fmt.Sprintf("%s/paper/%s/%s?%s", c.baseURL, url.PathEscape(paperID), endpoint, params.Encode())

	var cr citationsResponse
	if err := c.getJSON(ctx, op, reqURL, &cr); err != nil {
		return nil, err
	}

	papers := make([]model.Paper, 0, len(cr.Data))
	for _, edge := range cr.Data {
		switch {
		case edge.CitingPaper != nil:
			papers = append(papers, *edge.CitingPaper)
		case edge.CitedPaper != nil:
			papers = append(papers, *edge.CitedPaper)
		}
	}
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

// getJSON performs a GET with the fixed retry policy: up to maxAttempts
// tries with retryDelay between them, all-or-nothing. Network errors,
// non-200 statuses and undecodable bodies all count as failed attempts.
func (c *Client) getJSON(ctx context.Context, op, reqURL string, out interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = c.tryOnce(ctx, reqURL, out)
		if lastErr == nil {
			return nil
		}
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return &ProviderError{Op: op, Attempts: maxAttempts, Err: lastErr}
}

func (c *Client) tryOnce(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Semantic Scholar API JSON structures.
type searchResponse struct {
	Total int           `json:"total"`
	Data  []model.Paper `json:"data"`
}

// citationEdge holds exactly one of the two ends, depending on endpoint.
type citationEdge struct {
	CitingPaper *model.Paper `json:"citingPaper"`
	CitedPaper  *model.Paper `json:"citedPaper"`
}

type citationsResponse struct {
	Data []citationEdge `json:"data"`
}
