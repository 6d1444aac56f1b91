package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"kgchat"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Interface compliance checks.
var (
	_ kgchat.Answerer     = (*Client)(nil)
	_ kgchat.SessionStore = (*Client)(nil)
	_ kgchat.Retriever    = (*Client)(nil)
	_ kgchat.MemoryStore  = (*Client)(nil)
)

// Client talks to the assistant backend over HTTP.
type Client struct {
	baseURL    string
	maxRows    int
	httpClient *http.Client
	log        *zap.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger for request correlation entries.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithMaxRows caps how many graph rows the server may consult per answer.
func WithMaxRows(n int) Option {
	return func(c *Client) { c.maxRows = n }
}

// New creates a backend [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		maxRows:    defaultMaxRows,
		httpClient: http.DefaultClient,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Answer opens the streamed answer for a question, sending the full
// turn history as context. Side payloads arrive as base64 response
// headers; a payload that fails to decode is logged and dropped without
// failing the stream.
func (c *Client) Answer(ctx context.Context, question string, history []kgchat.Turn) (kgchat.AnswerStream, error) {
	body, err := json.Marshal(answerRequest{
		Question: question,
		History:  toAPITurns(history),
		MaxRows:  c.maxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("api: marshal answer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+answerPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(headerRequestID, reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: answer request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, c.decodeError(resp)
	}

	meta := c.decodeMeta(resp, reqID)
	c.log.Debug("answer stream opened", zap.String("request_id", reqID))
	return newAnswerStream(ctx, resp.Body, meta), nil
}

// decodeMeta decodes the optional side payloads from response headers.
// Decode failures only suppress that payload.
func (c *Client) decodeMeta(resp *http.Response, reqID string) kgchat.AnswerMeta {
	var meta kgchat.AnswerMeta

	if b64 := resp.Header.Get(headerGraphQuery); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			c.log.Warn("graph query payload undecodable",
				zap.String("request_id", reqID), zap.Error(err))
		} else {
			meta.GraphQuery = string(raw)
		}
	}

	if b64 := resp.Header.Get(headerEvidence); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			c.log.Warn("evidence payload undecodable",
				zap.String("request_id", reqID), zap.Error(err))
			return meta
		}
		var results []retrievalResult
		if err := json.Unmarshal(raw, &results); err != nil {
			c.log.Warn("evidence payload unparseable",
				zap.String("request_id", reqID), zap.Error(err))
			return meta
		}
		meta.Evidence = toResults(results)
	}

	return meta
}

// List returns all sessions, newest first, sourced fresh from the store.
func (c *Client) List(ctx context.Context) ([]kgchat.Session, error) {
	var sessions []apiSession
	if err := c.doJSON(ctx, http.MethodGet, sessionsPath, nil, &sessions); err != nil {
		return nil, err
	}
	out := make([]kgchat.Session, len(sessions))
	for i, s := range sessions {
		out[i] = kgchat.Session{ID: s.ID, Title: s.Title, UpdatedAt: s.UpdatedAt, TurnCount: s.MessageCount}
	}
	return out, nil
}

// Create asks the store for a new session; the store assigns the ID.
func (c *Client) Create(ctx context.Context, title string) (kgchat.Session, error) {
	var created apiSession
	err := c.doJSON(ctx, http.MethodPost, sessionsPath, createSessionRequest{Title: title}, &created)
	if err != nil {
		return kgchat.Session{}, err
	}
	return kgchat.Session{ID: created.ID, Title: created.Title, UpdatedAt: created.UpdatedAt}, nil
}

// Get loads a session's metadata and full turn history.
func (c *Client) Get(ctx context.Context, id string) (kgchat.Session, []kgchat.Turn, error) {
	var detail sessionDetailResponse
	if err := c.doJSON(ctx, http.MethodGet, sessionsPath+"/"+url.PathEscape(id), nil, &detail); err != nil {
		return kgchat.Session{}, nil, err
	}
	turns := make([]kgchat.Turn, len(detail.Turns))
	for i, t := range detail.Turns {
		turns[i] = kgchat.Turn{Index: i, Role: kgchat.Role(t.Role), Content: t.Content}
	}
	return kgchat.Session{ID: detail.ID, Title: detail.Title, TurnCount: len(turns)}, turns, nil
}

// Rename updates a session's title.
func (c *Client) Rename(ctx context.Context, id, title string) error {
	return c.doJSON(ctx, http.MethodPut, sessionsPath+"/"+url.PathEscape(id)+"/title", renameSessionRequest{Title: title}, nil)
}

// Delete removes a session and its turn history.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, sessionsPath+"/"+url.PathEscape(id), nil, nil)
}

// ReplaceTurns bulk-replaces a session's remote turn history.
func (c *Client) ReplaceTurns(ctx context.Context, id string, turns []kgchat.Turn) error {
	return c.doJSON(ctx, http.MethodPut, sessionsPath+"/"+url.PathEscape(id)+"/turns", replaceTurnsRequest{Turns: toAPITurns(turns)}, nil)
}

// Retrieve fetches the top-k supporting evidence for a query.
func (c *Client) Retrieve(ctx context.Context, query string, k int) ([]kgchat.RetrievalResult, error) {
	path := retrievalPath + "?query=" + url.QueryEscape(query) + "&k=" + strconv.Itoa(k)
	var body retrievalResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return toResults(body.Results), nil
}

// SuggestQuery derives a graph query (and a viz-friendly variant) from
// a question.
func (c *Client) SuggestQuery(ctx context.Context, question string) (kgchat.QuerySuggestion, error) {
	var body suggestResponse
	err := c.doJSON(ctx, http.MethodPost, suggestPath, suggestRequest{Question: question, MaxRows: c.maxRows}, &body)
	if err != nil {
		return kgchat.QuerySuggestion{}, err
	}
	return kgchat.QuerySuggestion{Query: body.Query, VizQuery: body.VizQuery}, nil
}

// Summarize sends selected turns to the remote summarizer.
func (c *Client) Summarize(ctx context.Context, turns []kgchat.Turn) (kgchat.MemorySummary, error) {
	var body summarizeResponse
	err := c.doJSON(ctx, http.MethodPost, summarizePath, summarizeRequest{Turns: toAPITurns(turns)}, &body)
	if err != nil {
		return kgchat.MemorySummary{}, err
	}
	if body.MemoryID == "" {
		return kgchat.MemorySummary{}, fmt.Errorf("api: summarize response missing memory_id: %w", kgchat.ErrProtocol)
	}
	return kgchat.MemorySummary{MemoryID: body.MemoryID, Summary: body.Summary}, nil
}

// Commit commits a summarized memory into the knowledge base and
// returns its relationship classification.
func (c *Client) Commit(ctx context.Context, memoryID string) (kgchat.CommitResult, error) {
	var body commitResponse
	err := c.doJSON(ctx, http.MethodPost, memoryPath+"/"+url.PathEscape(memoryID)+"/commit", nil, &body)
	if err != nil {
		return kgchat.CommitResult{}, err
	}
	rel := kgchat.Relationship(body.Relationship)
	switch rel {
	case kgchat.RelationshipHighSimilarity, kgchat.RelationshipExtension, kgchat.RelationshipDifference:
	default:
		rel = kgchat.RelationshipUnknown
	}
	return kgchat.CommitResult{Relationship: rel, Message: body.Message}, nil
}

// doJSON performs a JSON request/response round trip. A nil in sends no
// body; a nil out discards the response body.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerRequestID, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s response: %w", path, err)
	}
	return nil
}

// decodeError turns a non-2xx response into a *kgchat.ServerError,
// preserving the server's structured message when one is present.
func (c *Client) decodeError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return &kgchat.ServerError{StatusCode: resp.StatusCode}
	}
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == "" {
		return &kgchat.ServerError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}
	return &kgchat.ServerError{StatusCode: resp.StatusCode, Message: apiErr.Error}
}

func toAPITurns(turns []kgchat.Turn) []apiTurn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]apiTurn, len(turns))
	for i, t := range turns {
		out[i] = apiTurn{Role: string(t.Role), Content: t.Content}
	}
	return out
}

func toResults(results []retrievalResult) []kgchat.RetrievalResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]kgchat.RetrievalResult, len(results))
	for i, r := range results {
		out[i] = kgchat.RetrievalResult{ID: r.ID, Score: r.Score, Snippet: r.Snippet}
	}
	return out
}
