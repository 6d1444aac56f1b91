package kgchat

import "context"

// RetrievalResult is one supporting-evidence hit for a question.
type RetrievalResult struct {
	ID      string
	Score   float64
	Snippet string
}

// QuerySuggestion is a graph query derived from a question: the base
// query plus a visualization-friendly variant when one could be built.
type QuerySuggestion struct {
	Query    string
	VizQuery string
}

// Retriever fetches supporting evidence for a question. Both calls are
// best-effort relative to the main answer flow: callers degrade any
// failure to an empty result rather than propagating it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]RetrievalResult, error)
	SuggestQuery(ctx context.Context, question string) (QuerySuggestion, error)
}
