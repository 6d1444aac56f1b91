// Package api implements kgchat's remote-service interfaces over the
// backend's HTTP contracts: the streamed answer endpoint, the session
// registry, evidence retrieval, and the memory summarize/commit pair.
//
// All calls are JSON-in/JSON-out except the streamed answer body, which
// is an incremental text stream with no framing beyond raw byte chunks.
// The answer response carries optional side payloads as binary-safe
// base64 response headers.
package api

import "time"

const (
	defaultBaseURL = "http://127.0.0.1:5000"
	defaultMaxRows = 200

	answerPath    = "/api/llm/answer"
	suggestPath   = "/api/llm/gen_query"
	sessionsPath  = "/api/sessions"
	retrievalPath = "/api/retrieval"
	summarizePath = "/api/memory/summarize"
	memoryPath    = "/api/memory"

	// Side payloads embedded in the answer response, base64-encoded so
	// arbitrary UTF-8 survives header transport.
	headerGraphQuery = "X-Graph-Query-B64"
	headerEvidence   = "X-Evidence-B64"

	headerRequestID = "X-Request-Id"
)

// apiError is the JSON body returned on non-2xx responses.
type apiError struct {
	Error string `json:"error"`
}

type apiTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiSession struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

type answerRequest struct {
	Question string    `json:"question"`
	History  []apiTurn `json:"history,omitempty"`
	MaxRows  int       `json:"max_rows,omitempty"`
}

type suggestRequest struct {
	Question string `json:"question"`
	MaxRows  int    `json:"max_rows,omitempty"`
}

type suggestResponse struct {
	Query    string `json:"query"`
	VizQuery string `json:"viz_query"`
}

type createSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type renameSessionRequest struct {
	Title string `json:"title"`
}

type sessionDetailResponse struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Turns []apiTurn `json:"turns"`
}

type replaceTurnsRequest struct {
	Turns []apiTurn `json:"turns"`
}

type retrievalResult struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type retrievalResponse struct {
	Results []retrievalResult `json:"results"`
}

type summarizeRequest struct {
	Turns []apiTurn `json:"turns"`
}

type summarizeResponse struct {
	MemoryID string `json:"memory_id"`
	Summary  string `json:"summary"`
}

type commitResponse struct {
	Relationship string `json:"relationship"`
	Message      string `json:"message"`
}
