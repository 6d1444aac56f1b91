// Package chat implements the client-side orchestrator: the active
// session context, the session registry operations, the question/answer
// streaming loop with its retrieval sidecar, and the memory
// consolidation workflow.
//
// A Chat is driven from a single caller goroutine (the TUI model or a
// CLI command); the only internal concurrency is the retrieval sidecar
// and the stream read pump, both of which deliver their results back
// through the event handler and are never awaited by session state
// changes.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"kgchat"
)

const (
	defaultIdleWarn   = 30 * time.Second
	defaultCeiling    = 5 * time.Minute
	defaultRetrievalK = 5
)

// Chat owns the active session and its turn log, and coordinates the
// remote collaborators behind the kgchat interfaces.
type Chat struct {
	store     kgchat.SessionStore
	answerer  kgchat.Answerer
	retriever kgchat.Retriever
	memory    kgchat.MemoryStore
	log       *zap.Logger

	idleWarn   time.Duration
	ceiling    time.Duration
	retrievalK int

	mu       sync.Mutex
	active   kgchat.Session
	turns    *kgchat.TurnLog
	dirty    bool
	evidence []kgchat.RetrievalResult

	consolidation consolidation
}

// Option configures a Chat.
type Option func(*Chat)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Chat) { c.log = log }
}

// WithIdleWarning sets the idle window after which a stalled answer
// stream emits a non-fatal notice.
func WithIdleWarning(d time.Duration) Option {
	return func(c *Chat) { c.idleWarn = d }
}

// WithStreamCeiling sets the absolute time limit for an answer stream.
func WithStreamCeiling(d time.Duration) Option {
	return func(c *Chat) { c.ceiling = d }
}

// WithRetrievalK sets how many evidence results the sidecar requests.
func WithRetrievalK(k int) Option {
	return func(c *Chat) { c.retrievalK = k }
}

// New creates a Chat over the given collaborators.
func New(store kgchat.SessionStore, answerer kgchat.Answerer, retriever kgchat.Retriever, memory kgchat.MemoryStore, opts ...Option) *Chat {
	c := &Chat{
		store:      store,
		answerer:   answerer,
		retriever:  retriever,
		memory:     memory,
		log:        zap.NewNop(),
		idleWarn:   defaultIdleWarn,
		ceiling:    defaultCeiling,
		retrievalK: defaultRetrievalK,
		turns:      &kgchat.TurnLog{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the session registry and activates the most recent
// session, creating one if the registry is empty.
func (c *Chat) Start(ctx context.Context) error {
	sessions, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("chat: load sessions: %w", err)
	}
	if len(sessions) == 0 {
		_, err := c.NewSession(ctx, "")
		return err
	}
	return c.Switch(ctx, sessions[0].ID)
}

// Sessions returns the registry contents, newest first, sourced fresh
// from the remote store on every call.
func (c *Chat) Sessions(ctx context.Context) ([]kgchat.Session, error) {
	return c.store.List(ctx)
}

// Active returns the active session's metadata.
func (c *Chat) Active() kgchat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Turns returns a snapshot of the active session's turn log.
func (c *Chat) Turns() []kgchat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turns.Turns()
}

// Evidence returns the retrieval result set for the current question.
// Ephemeral: rebuilt per question, cleared on session switch.
func (c *Chat) Evidence() []kgchat.RetrievalResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]kgchat.RetrievalResult(nil), c.evidence...)
}

// NewSession creates a session in the remote store and makes it active.
// The previous session's unsaved turns are flushed best-effort first.
func (c *Chat) NewSession(ctx context.Context, title string) (kgchat.Session, error) {
	c.flush(ctx)

	created, err := c.store.Create(ctx, title)
	if err != nil {
		return kgchat.Session{}, fmt.Errorf("chat: create session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = created
	c.turns = &kgchat.TurnLog{}
	c.dirty = false
	c.evidence = nil
	return created, nil
}

// Switch makes the session with the given id active, replacing the
// in-memory turn log wholesale with the target's remote history.
// Switching to the already-active session is a no-op. Unsaved turns of
// the previous session are flushed first, best-effort: a flush failure
// is logged and switching proceeds regardless.
func (c *Chat) Switch(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.active.ID == id && id != "" {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.flush(ctx)

	session, turns, err := c.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("chat: switch session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = session
	c.turns = &kgchat.TurnLog{}
	c.turns.Replace(turns)
	c.dirty = false
	c.evidence = nil
	return nil
}

// Rename updates a session's title in the remote store and, when the
// session is active, in the local metadata.
func (c *Chat) Rename(ctx context.Context, id, title string) error {
	if err := c.store.Rename(ctx, id, title); err != nil {
		return fmt.Errorf("chat: rename session: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active.ID == id {
		c.active.Title = title
	}
	return nil
}

// Delete removes a session from the remote store. Deleting the active
// session activates the next remaining session, or creates a fresh one
// if none remain.
func (c *Chat) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("chat: delete session: %w", err)
	}

	c.mu.Lock()
	wasActive := c.active.ID == id
	if wasActive {
		// The deleted session's turns must not be flushed back.
		c.dirty = false
	}
	c.mu.Unlock()
	if !wasActive {
		return nil
	}

	remaining, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("chat: list sessions after delete: %w", err)
	}
	if len(remaining) == 0 {
		_, err := c.NewSession(ctx, "")
		return err
	}
	c.mu.Lock()
	c.active = kgchat.Session{}
	c.mu.Unlock()
	return c.Switch(ctx, remaining[0].ID)
}

// flush persists the active session's turns if they have unsaved
// changes. Best-effort: failures are logged, never propagated, so a
// slow network cannot block a session switch.
func (c *Chat) flush(ctx context.Context) {
	c.mu.Lock()
	if !c.dirty || c.active.ID == "" {
		c.mu.Unlock()
		return
	}
	id := c.active.ID
	turns := c.turns.Turns()
	c.mu.Unlock()

	if err := c.store.ReplaceTurns(ctx, id, turns); err != nil {
		c.log.Warn("session flush failed, switching anyway",
			zap.String("session_id", id), zap.Error(err))
		return
	}
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
}

// persist replaces the active session's remote turn history with the
// current in-memory snapshot. Failures are logged and reported through
// the returned notice text; in-memory state is never rolled back.
func (c *Chat) persist(ctx context.Context) (notice string) {
	c.mu.Lock()
	id := c.active.ID
	turns := c.turns.Turns()
	c.mu.Unlock()
	if id == "" {
		return ""
	}

	if err := c.store.ReplaceTurns(ctx, id, turns); err != nil {
		c.log.Warn("persist failed, local state kept",
			zap.String("session_id", id), zap.Error(err))
		return "sync pending: " + err.Error()
	}
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return ""
}

// refreshTitle re-reads the active session's metadata after an
// exchange, since the server may auto-title on the first user turn.
// Best-effort.
func (c *Chat) refreshTitle(ctx context.Context) {
	c.mu.Lock()
	id := c.active.ID
	c.mu.Unlock()
	if id == "" {
		return
	}

	session, _, err := c.store.Get(ctx, id)
	if err != nil {
		c.log.Debug("title refresh failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	c.mu.Lock()
	if c.active.ID == id {
		c.active.Title = session.Title
	}
	c.mu.Unlock()
}
