// Package mock provides test doubles for kgchat interfaces using function fields.
package mock

import (
	"context"
	"io"

	"kgchat"
)

// Interface compliance checks.
var (
	_ kgchat.Answerer     = (*Answerer)(nil)
	_ kgchat.AnswerStream = (*Stream)(nil)
	_ kgchat.SessionStore = (*Store)(nil)
	_ kgchat.Retriever    = (*Retriever)(nil)
	_ kgchat.MemoryStore  = (*Memory)(nil)
)

// Answerer is a test double for kgchat.Answerer.
// Set AnswerFn before calling Answer.
type Answerer struct {
	AnswerFn func(ctx context.Context, question string, history []kgchat.Turn) (kgchat.AnswerStream, error)
}

// Answer delegates to AnswerFn.
func (a *Answerer) Answer(ctx context.Context, question string, history []kgchat.Turn) (kgchat.AnswerStream, error) {
	return a.AnswerFn(ctx, question, history)
}

// Stream is a test double for kgchat.AnswerStream.
// Set the function fields for the methods you need.
type Stream struct {
	NextFn  func() (string, error)
	MetaFn  func() kgchat.AnswerMeta
	StateFn func() kgchat.StreamState
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (string, error) {
	return s.NextFn()
}

// Meta delegates to MetaFn. A nil MetaFn returns a zero meta.
func (s *Stream) Meta() kgchat.AnswerMeta {
	if s.MetaFn == nil {
		return kgchat.AnswerMeta{}
	}
	return s.MetaFn()
}

// State delegates to StateFn. A nil StateFn reports a streaming state.
func (s *Stream) State() kgchat.StreamState {
	if s.StateFn == nil {
		return kgchat.StreamStateStreaming
	}
	return s.StateFn()
}

// Close delegates to CloseFn. A nil CloseFn is a no-op.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Store is a test double for kgchat.SessionStore.
// Set the function fields for the methods you need.
type Store struct {
	ListFn         func(ctx context.Context) ([]kgchat.Session, error)
	CreateFn       func(ctx context.Context, title string) (kgchat.Session, error)
	GetFn          func(ctx context.Context, id string) (kgchat.Session, []kgchat.Turn, error)
	RenameFn       func(ctx context.Context, id, title string) error
	DeleteFn       func(ctx context.Context, id string) error
	ReplaceTurnsFn func(ctx context.Context, id string, turns []kgchat.Turn) error
}

// List delegates to ListFn.
func (s *Store) List(ctx context.Context) ([]kgchat.Session, error) {
	return s.ListFn(ctx)
}

// Create delegates to CreateFn.
func (s *Store) Create(ctx context.Context, title string) (kgchat.Session, error) {
	return s.CreateFn(ctx, title)
}

// Get delegates to GetFn.
func (s *Store) Get(ctx context.Context, id string) (kgchat.Session, []kgchat.Turn, error) {
	return s.GetFn(ctx, id)
}

// Rename delegates to RenameFn.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	return s.RenameFn(ctx, id, title)
}

// Delete delegates to DeleteFn.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.DeleteFn(ctx, id)
}

// ReplaceTurns delegates to ReplaceTurnsFn. A nil ReplaceTurnsFn is a
// no-op, since most tests don't care about persistence.
func (s *Store) ReplaceTurns(ctx context.Context, id string, turns []kgchat.Turn) error {
	if s.ReplaceTurnsFn == nil {
		return nil
	}
	return s.ReplaceTurnsFn(ctx, id, turns)
}

// Retriever is a test double for kgchat.Retriever.
// Set the function fields for the methods you need.
type Retriever struct {
	RetrieveFn     func(ctx context.Context, query string, k int) ([]kgchat.RetrievalResult, error)
	SuggestQueryFn func(ctx context.Context, question string) (kgchat.QuerySuggestion, error)
}

// Retrieve delegates to RetrieveFn.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]kgchat.RetrievalResult, error) {
	return r.RetrieveFn(ctx, query, k)
}

// SuggestQuery delegates to SuggestQueryFn.
func (r *Retriever) SuggestQuery(ctx context.Context, question string) (kgchat.QuerySuggestion, error) {
	return r.SuggestQueryFn(ctx, question)
}

// Memory is a test double for kgchat.MemoryStore.
// Set the function fields for the methods you need.
type Memory struct {
	SummarizeFn func(ctx context.Context, turns []kgchat.Turn) (kgchat.MemorySummary, error)
	CommitFn    func(ctx context.Context, memoryID string) (kgchat.CommitResult, error)
}

// Summarize delegates to SummarizeFn.
func (m *Memory) Summarize(ctx context.Context, turns []kgchat.Turn) (kgchat.MemorySummary, error) {
	return m.SummarizeFn(ctx, turns)
}

// Commit delegates to CommitFn.
func (m *Memory) Commit(ctx context.Context, memoryID string) (kgchat.CommitResult, error) {
	return m.CommitFn(ctx, memoryID)
}

// TextStream returns a Stream that yields the given chunks in order and
// then completes. Meta is returned as given.
func TextStream(meta kgchat.AnswerMeta, chunks ...string) *Stream {
	i := 0
	state := kgchat.StreamStateNew
	return &Stream{
		NextFn: func() (string, error) {
			if i >= len(chunks) {
				state = kgchat.StreamStateComplete
				return "", io.EOF
			}
			state = kgchat.StreamStateStreaming
			chunk := chunks[i]
			i++
			return chunk, nil
		},
		MetaFn:  func() kgchat.AnswerMeta { return meta },
		StateFn: func() kgchat.StreamState { return state },
	}
}
