package rate

import (
	"context"
	"fmt"
	"strings"

	"github.com/citescope/citescope/internal/core/model"
	"github.com/citescope/citescope/internal/llm"
)

// abstractLimit caps how much of the abstract goes into the prompt.
const abstractLimit = 500

// Outcome is one rating attempt. A failed outcome keeps the reason so
// callers can tell a defaulted rating from a genuine one; Final collapses
// both to the wire value.
type Outcome struct {
	Rating model.Rating
	Failed bool
	Reason string
}

func (o Outcome) Final() model.Rating {
	if o.Failed {
		return model.SomewhatRelevant
	}
	return o.Rating
}

type Rater struct {
	LLM llm.LLMClient
}

func NewRater(client llm.LLMClient) *Rater {
	return &Rater{LLM: client}
}

// Rate scores one paper against the decomposed query criteria. It never
// returns an error: a failed call becomes a failed Outcome, which Final
// downgrades to the default rating.
func (r *Rater) Rate(ctx context.Context, paper model.Paper, criteria model.QueryDecomposition) Outcome {
	response, err := r.LLM.Generate(ctx, buildPrompt(paper, criteria))
	if err != nil {
		return Outcome{Failed: true, Reason: err.Error()}
	}
	return Outcome{Rating: MapRating(response)}
}

// MapRating maps free-form model output onto the closed rating set. The
// priority order matters: "Somewhat Relevant" contains "Relevant", so the
// plain-Relevant check must exclude "Somewhat". Unrecognized text falls
// back to the weakest rating.
func MapRating(text string) model.Rating {
	cleaned := strings.ToLower(strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(text)))
	switch {
	case strings.Contains(cleaned, "perfectly relevant"):
		return model.PerfectlyRelevant
	case strings.Contains(cleaned, "relevant") && !strings.Contains(cleaned, "somewhat"):
		return model.Relevant
	case strings.Contains(cleaned, "somewhat relevant"):
		return model.SomewhatRelevant
	default:
		return model.SomewhatRelevant
	}
}

func buildPrompt(paper model.Paper, criteria model.QueryDecomposition) string {
	var components []string
	for _, comp := range criteria.Components {
		components = append(components, fmt.Sprintf("- %s: %s (Keywords: %s)",
			comp.Component, comp.Description, strings.Join(comp.Keywords, ", ")))
	}

	var relationships []string
	for _, rel := range criteria.Relationships {
		relationships = append(relationships, "- "+rel)
	}

	paperInfo := "Title: " + paper.Title
	if paper.Abstract != "" {
		abstract := paper.Abstract
		if runes := []rune(abstract); len(runes) > abstractLimit {
			abstract = string(runes[:abstractLimit])
		}
		paperInfo += "\nAbstract: " + abstract
	}

	return fmt.Sprintf(`You are a research paper relevance evaluator. Rate how relevant a paper is to a given search query based on the decomposed criteria.

ORIGINAL QUERY: %s

RELEVANCE CRITERIA (from query decomposition):
Main Concepts: %s

Components:
%s

Relationships:
%s

PAPER TO EVALUATE:
%s

Rate this paper's relevance to the original query and criteria. Choose ONE of these ratings:
1. "Perfectly Relevant" - The paper directly addresses all or most of the main concepts and components, with strong alignment to the relationships described.
2. "Relevant" - The paper addresses some of the main concepts and components, with moderate alignment to the query.
3. "Somewhat Relevant" - The paper has some connection to the query but only addresses a few concepts or has weak alignment.

Respond with ONLY the rating: "Perfectly Relevant", "Relevant", or "Somewhat Relevant" (no other text).
`,
		criteria.OriginalQuery,
		strings.Join(criteria.MainConcepts, ", "),
		strings.Join(components, "\n"),
		strings.Join(relationships, "\n"),
		paperInfo)
}
