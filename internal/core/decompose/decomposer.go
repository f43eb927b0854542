package decompose

import (
	"context"
	"fmt"

	"github.com/citescope/citescope/internal/core/common"
	"github.com/citescope/citescope/internal/core/model"
	"github.com/citescope/citescope/internal/llm"
)

// Error reports an unusable decomposition response from the model. There is
// no retry on this path: one malformed response fails the whole request.
type Error struct {
	Query string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decomposing query %q: %v", e.Query, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const promptTemplate = `You are a research assistant helping to decompose academic search queries into their component parts.

Given the following search query: "%s"

Please analyze and break it down into:
1. Individual components/concepts (each major topic or subject)
2. Keywords for each component
3. Main concepts (the core ideas)
4. Relationships between components (how they connect)

Return your response in a structured format:
- For each component, provide:
  - The component name
  - A brief description
  - Relevant keywords (3-5 keywords)
- List the main concepts
- Describe the relationships between components

Format your response as JSON with this structure:
{
  "components": [
    {
      "component": "component name",
      "description": "brief description",
      "keywords": ["keyword1", "keyword2", "keyword3"]
    }
  ],
  "main_concepts": ["concept1", "concept2"],
  "relationships": ["relationship description 1", "relationship description 2"]
}

Query: %s
`

type Decomposer struct {
	LLM llm.LLMClient
}

func NewDecomposer(client llm.LLMClient) *Decomposer {
	return &Decomposer{LLM: client}
}

// payloadComponent uses pointers so an entry missing a required key is
// distinguishable from one carrying an empty value.
type payloadComponent struct {
	Component   *string   `json:"component"`
	Description *string   `json:"description"`
	Keywords    *[]string `json:"keywords"`
}

type payload struct {
	Components    []payloadComponent `json:"components"`
	MainConcepts  []string           `json:"main_concepts"`
	Relationships []string           `json:"relationships"`
}

// Decompose breaks a free-text query into components, main concepts and
// relationships via a single LLM call.
func (d *Decomposer) Decompose(ctx context.Context, query string) (model.QueryDecomposition, error) {
	var zero model.QueryDecomposition

	prompt := fmt.Sprintf(promptTemplate, query, query)

	response, err := d.LLM.Generate(ctx, prompt)
	if err != nil {
		return zero, &Error{Query: query, Err: err}
	}

	parsed, err := common.ParseJSON[payload](response)
	if err != nil {
		return zero, &Error{Query: query, Err: err}
	}

	components := make([]model.QueryComponent, 0, len(parsed.Components))
	for i, comp := range parsed.Components {
		if comp.Component == nil || comp.Description == nil || comp.Keywords == nil {
			return zero, &Error{Query: query, Err: fmt.Errorf("component %d is missing a required field", i)}
		}
		components = append(components, model.QueryComponent{
			Component:   *comp.Component,
			Description: *comp.Description,
			Keywords:    *comp.Keywords,
		})
	}

	dec := model.QueryDecomposition{
		OriginalQuery: query,
		Components:    components,
		MainConcepts:  parsed.MainConcepts,
		Relationships: parsed.Relationships,
	}
	if dec.MainConcepts == nil {
		dec.MainConcepts = []string{}
	}
	if dec.Relationships == nil {
		dec.Relationships = []string{}
	}
	return dec, nil
}
