package domain

import "fmt"

// GroundingPrompt renders the instruction given to the generation model. The
// model is told to answer strictly from the supplied context so answers stay
// attributable to retrieved sources.
func GroundingPrompt(query, contextText string) string {
	return fmt.Sprintf(`Context information is below.
---------------------
%s
---------------------
Given the context information and not prior knowledge, answer the query.
If the context does not contain the answer, say so instead of guessing.
Query: %s
Answer:`, contextText, query)
}
