package scholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	retryDelay = time.Millisecond
}

func TestFindTopMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		assert.Equal(t, "transformer attention", r.URL.Query().Get("query"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, paperFields, r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"total": 1, "data": [{"paperId": "p1", "title": "Attention Is All You Need", "year": 2017}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	paper, err := c.FindTopMatch(context.Background(), "transformer attention")
	require.NoError(t, err)
	require.NotNil(t, paper)
	assert.Equal(t, "p1", paper.PaperID)
	assert.Equal(t, "Attention Is All You Need", paper.Title)
}

func TestFindTopMatchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 0, "data": []}`)
	}))
	defer srv.Close()

	paper, err := NewClient(srv.URL, "").FindTopMatch(context.Background(), "gibberish")
	require.NoError(t, err)
	assert.Nil(t, paper)
}

func TestForwardCitationsCapsAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/p1/citations", r.URL.Path)
		fmt.Fprint(w, `{"data": [
			{"citingPaper": {"paperId": "c1", "title": "A"}},
			{"citingPaper": {"paperId": "c2", "title": "B"}},
			{"citingPaper": {"paperId": "c3", "title": "C"}}
		]}`)
	}))
	defer srv.Close()

	papers, err := NewClient(srv.URL, "").ForwardCitations(context.Background(), "p1", 2)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "c1", papers[0].PaperID)
	assert.Equal(t, "c2", papers[1].PaperID)
}

func TestBackwardCitations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/p1/references", r.URL.Path)
		fmt.Fprint(w, `{"data": [{"citedPaper": {"paperId": "r1", "title": "Old Work"}}]}`)
	}))
	defer srv.Close()

	papers, err := NewClient(srv.URL, "").BackwardCitations(context.Background(), "p1", 3)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "r1", papers[0].PaperID)
}

// TestRetrySucceedsOnLastAttempt exercises the 10x1s policy: nine transient
// failures followed by a success must return the successful result.
func TestRetrySucceedsOnLastAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 10 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"total": 1, "data": [{"paperId": "p1", "title": "Eventually"}]}`)
	}))
	defer srv.Close()

	paper, err := NewClient(srv.URL, "").FindTopMatch(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, paper)
	assert.Equal(t, 10, calls)
}

func TestRetryExhaustion(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").ForwardCitations(context.Background(), "p1", 3)
	require.Error(t, err)
	assert.Equal(t, 10, calls)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 10, pe.Attempts)
	assert.Equal(t, "forward citations", pe.Op)
	assert.Contains(t, pe.Error(), "after 10 attempts")
}

func TestAPIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		fmt.Fprint(w, `{"total": 0, "data": []}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk-test").FindTopMatch(context.Background(), "q")
	require.NoError(t, err)
}
