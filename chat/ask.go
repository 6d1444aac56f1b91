package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rivo/uniseg"
	"go.uber.org/zap"

	"kgchat"
)

// maxQuestionGraphemes bounds a question's length in user-perceived
// characters, matching the server's input contract.
const maxQuestionGraphemes = 1000

// AskOption configures a single Ask call.
type AskOption func(*askConfig)

type askConfig struct {
	onEvent func(kgchat.Event)
}

// WithEventHandler delivers progress events (text deltas, evidence,
// query suggestions, notices) to fn as they occur. fn may be called
// from the sidecar goroutine after Ask returns; it must be safe for
// that.
func WithEventHandler(fn func(kgchat.Event)) AskOption {
	return func(cfg *askConfig) { cfg.onEvent = fn }
}

func (cfg *askConfig) emit(ev kgchat.Event) {
	if cfg.onEvent != nil {
		cfg.onEvent(ev)
	}
}

// Ask submits a question for the active session: appends the user turn,
// opens the answer stream with the full turn history as context, runs
// the retrieval sidecar concurrently, and reduces the stream into a
// finalized assistant turn.
//
// Remote failures on the answer path become a visible assistant turn
// rather than a returned error; a stream that times out keeps whatever
// partial content arrived. Ask returns a non-nil error only for
// failures caught before any side effect: an invalid question or an
// answer already in flight.
func (c *Chat) Ask(ctx context.Context, question string, opts ...AskOption) (kgchat.Turn, error) {
	var cfg askConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	question = strings.TrimSpace(question)
	if n := uniseg.GraphemeClusterCount(question); n == 0 {
		return kgchat.Turn{}, fmt.Errorf("chat: question is empty: %w", kgchat.ErrValidation)
	} else if n > maxQuestionGraphemes {
		return kgchat.Turn{}, fmt.Errorf("chat: question exceeds %d characters: %w", maxQuestionGraphemes, kgchat.ErrValidation)
	}

	c.mu.Lock()
	if c.turns.Streaming() {
		c.mu.Unlock()
		return kgchat.Turn{}, fmt.Errorf("chat: an answer is already streaming: %w", kgchat.ErrConflict)
	}
	history := c.turns.Turns()
	if _, err := c.turns.Append(kgchat.RoleUser, question); err != nil {
		c.mu.Unlock()
		return kgchat.Turn{}, err
	}
	c.dirty = true
	c.evidence = nil
	c.mu.Unlock()

	if notice := c.persist(ctx); notice != "" {
		cfg.emit(kgchat.EventNotice{Text: notice})
	}

	go c.sidecar(ctx, question, &cfg)

	streamCtx, cancel := context.WithTimeout(ctx, c.ceiling)
	defer cancel()

	stream, err := c.answerer.Answer(streamCtx, question, history)
	if err != nil {
		return c.failTurn(ctx, &cfg, err), nil
	}
	defer stream.Close()

	meta := stream.Meta()
	if meta.GraphQuery != "" {
		cfg.emit(kgchat.EventGraphQuery{Query: meta.GraphQuery})
	}
	if len(meta.Evidence) > 0 {
		c.setEvidence(meta.Evidence)
		cfg.emit(kgchat.EventEvidence{Results: meta.Evidence})
	}

	c.mu.Lock()
	index, err := c.turns.OpenStreaming(kgchat.RoleAssistant)
	c.mu.Unlock()
	if err != nil {
		return kgchat.Turn{}, err
	}

	received, readErr, timedOut := c.consume(streamCtx, stream, index, &cfg)

	switch {
	case timedOut && !received:
		c.discardTurn(index)
		return c.failTurn(ctx, &cfg, fmt.Errorf("no answer received within %s: %w", c.ceiling, kgchat.ErrTimeout)), nil

	case timedOut:
		// Partial content is kept and treated as the final answer.
		c.log.Warn("answer stream timed out with partial content", zap.Int("turn", index))
		cfg.emit(kgchat.EventNotice{Text: "answer timed out; showing partial content"})
		return c.finalizeAnswer(ctx, &cfg, index), nil

	case readErr != nil && !received:
		c.discardTurn(index)
		return c.failTurn(ctx, &cfg, readErr), nil

	case readErr != nil:
		// Mid-stream drop: preserve the partial content.
		c.log.Warn("answer stream interrupted", zap.Int("turn", index), zap.Error(readErr))
		cfg.emit(kgchat.EventNotice{Text: "answer interrupted; showing partial content"})
		return c.finalizeAnswer(ctx, &cfg, index), nil

	case !received:
		// Empty stream: no assistant turn persists.
		c.discardTurn(index)
		cfg.emit(kgchat.EventNotice{Text: "the server returned an empty answer"})
		return kgchat.Turn{}, nil

	default:
		return c.finalizeAnswer(ctx, &cfg, index), nil
	}
}

// consume drives the stream read loop, appending chunks to the open
// streaming turn at index. It reports whether any content arrived, a
// terminal read error if one occurred, and whether the absolute ceiling
// forced cancellation. An idle window without chunks emits a non-fatal
// notice and the loop continues.
func (c *Chat) consume(ctx context.Context, stream kgchat.AnswerStream, index int, cfg *askConfig) (received bool, readErr error, timedOut bool) {
	type chunk struct {
		text string
		err  error
	}
	chunks := make(chan chunk)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(chunks)
		for {
			text, err := stream.Next()
			if text != "" {
				select {
				case chunks <- chunk{text: text}:
				case <-done:
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case chunks <- chunk{err: err}:
				case <-done:
				}
				return
			}
		}
	}()

	idle := time.NewTimer(c.idleWarn)
	defer idle.Stop()

	for {
		select {
		case msg, ok := <-chunks:
			if !ok {
				return received, nil, false
			}
			if msg.err != nil {
				return received, msg.err, false
			}
			c.mu.Lock()
			err := c.turns.AppendChunk(index, msg.text)
			c.mu.Unlock()
			if err != nil {
				return received, err, false
			}
			received = true
			cfg.emit(kgchat.EventTextDelta{Delta: msg.text})
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(c.idleWarn)

		case <-idle.C:
			c.log.Warn("answer stream idle", zap.Duration("window", c.idleWarn), zap.Int("turn", index))
			cfg.emit(kgchat.EventNotice{Text: "still waiting for the answer stream"})
			idle.Reset(c.idleWarn)

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return received, nil, true
			}
			return received, ctx.Err(), false
		}
	}
}

// finalizeAnswer seals the streaming turn, persists the log, and
// refreshes the session title, which the server may auto-derive after
// the first exchange.
func (c *Chat) finalizeAnswer(ctx context.Context, cfg *askConfig, index int) kgchat.Turn {
	c.mu.Lock()
	_ = c.turns.Finalize(index)
	turn, _ := c.turns.Turn(index)
	c.dirty = true
	c.mu.Unlock()

	if notice := c.persist(ctx); notice != "" {
		cfg.emit(kgchat.EventNotice{Text: notice})
	}
	c.refreshTitle(ctx)
	return turn
}

// failTurn records a failed answer as a visible assistant turn so the
// failure is never silent, then persists it with the user turn.
func (c *Chat) failTurn(ctx context.Context, cfg *askConfig, cause error) kgchat.Turn {
	c.log.Error("answer failed", zap.Error(cause))

	c.mu.Lock()
	index, err := c.turns.Append(kgchat.RoleAssistant, "Error: "+cause.Error())
	if err != nil {
		c.mu.Unlock()
		return kgchat.Turn{}
	}
	turn, _ := c.turns.Turn(index)
	c.dirty = true
	c.mu.Unlock()

	if notice := c.persist(ctx); notice != "" {
		cfg.emit(kgchat.EventNotice{Text: notice})
	}
	return turn
}

func (c *Chat) discardTurn(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.turns.Discard(index)
}

func (c *Chat) setEvidence(results []kgchat.RetrievalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evidence = append([]kgchat.RetrievalResult(nil), results...)
}

// sidecar runs the best-effort evidence fetch and query suggestion for
// a question. Failures degrade to an empty result set with a muted
// notice; nothing here can fail or delay the main answer.
func (c *Chat) sidecar(ctx context.Context, question string, cfg *askConfig) {
	results, err := c.retriever.Retrieve(ctx, question, c.retrievalK)
	if err != nil {
		c.log.Warn("retrieval sidecar failed", zap.Error(err))
		cfg.emit(kgchat.EventNotice{Text: "supporting evidence unavailable"})
		return
	}
	c.setEvidence(results)
	cfg.emit(kgchat.EventEvidence{Results: results})

	suggestion, err := c.retriever.SuggestQuery(ctx, question)
	if err != nil {
		c.log.Debug("query suggestion failed", zap.Error(err))
		return
	}
	if suggestion.Query != "" {
		cfg.emit(kgchat.EventQuerySuggestion{Suggestion: suggestion})
	}
}
