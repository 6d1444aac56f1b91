package chat

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"kgchat"
)

// ConsolidationState is the memory consolidation workflow's state.
type ConsolidationState int

const (
	ConsolidationInactive ConsolidationState = iota
	ConsolidationSelecting
	ConsolidationSubmitting
	ConsolidationReviewing
	ConsolidationCommitting
	ConsolidationDone
	ConsolidationCancelled
)

// String returns a human-readable state name.
func (s ConsolidationState) String() string {
	switch s {
	case ConsolidationInactive:
		return "inactive"
	case ConsolidationSelecting:
		return "selecting"
	case ConsolidationSubmitting:
		return "submitting"
	case ConsolidationReviewing:
		return "reviewing"
	case ConsolidationCommitting:
		return "committing"
	case ConsolidationDone:
		return "done"
	case ConsolidationCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("ConsolidationState(%d)", int(s))
	}
}

// consolidation is the in-flight memory candidate. One candidate at a
// time; a fresh candidate supersedes a finished or cancelled one on
// re-entry.
type consolidation struct {
	state    ConsolidationState
	selected map[int]bool
	summary  kgchat.MemorySummary
	result   kgchat.CommitResult
	// commitErr annotates the Reviewing state after a failed commit.
	commitErr error
}

// ConsolidationState returns the workflow's current state.
func (c *Chat) ConsolidationState() ConsolidationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consolidation.state
}

// BeginConsolidation starts a new memory candidate over the active
// session's turn log, entering turn selection. Fails with ErrEmptyLog
// if there is nothing to select, or ErrConflict if a candidate is
// already in flight.
func (c *Chat) BeginConsolidation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.consolidation.state {
	case ConsolidationInactive, ConsolidationDone, ConsolidationCancelled:
	default:
		return fmt.Errorf("chat: a memory candidate is already in flight: %w", kgchat.ErrConflict)
	}
	if c.turns.Len() == 0 {
		return fmt.Errorf("chat: nothing to consolidate: %w", kgchat.ErrEmptyLog)
	}

	c.consolidation = consolidation{
		state:    ConsolidationSelecting,
		selected: make(map[int]bool),
	}
	return nil
}

// ToggleTurn flips a turn's membership in the candidate selection.
// Only valid while selecting.
func (c *Chat) ToggleTurn(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consolidation.state != ConsolidationSelecting {
		return fmt.Errorf("chat: not selecting turns: %w", kgchat.ErrInvalidState)
	}
	if index < 0 || index >= c.turns.Len() {
		return fmt.Errorf("chat: toggle turn %d: %w", index, kgchat.ErrOutOfRange)
	}
	if c.consolidation.selected[index] {
		delete(c.consolidation.selected, index)
	} else {
		c.consolidation.selected[index] = true
	}
	return nil
}

// SelectedCount returns the number of turns currently selected.
func (c *Chat) SelectedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.consolidation.selected)
}

// Selected reports whether the turn at index is part of the candidate.
func (c *Chat) Selected(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consolidation.selected[index]
}

// SubmitSelection sends the selected turns, in log order, to the
// remote summarizer and enters review on success. An empty selection
// fails with ErrEmptySelection and stays in Selecting. A summarizer
// failure discards the candidate entirely and returns to Inactive; no
// partial retry state is retained.
func (c *Chat) SubmitSelection(ctx context.Context) (kgchat.MemorySummary, error) {
	c.mu.Lock()
	if c.consolidation.state != ConsolidationSelecting {
		c.mu.Unlock()
		return kgchat.MemorySummary{}, fmt.Errorf("chat: no selection to submit: %w", kgchat.ErrInvalidState)
	}
	if len(c.consolidation.selected) == 0 {
		c.mu.Unlock()
		return kgchat.MemorySummary{}, fmt.Errorf("chat: submit selection: %w", kgchat.ErrEmptySelection)
	}

	indices := make([]int, 0, len(c.consolidation.selected))
	for i := range c.consolidation.selected {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	turns, err := c.turns.SelectSubset(indices)
	if err != nil {
		c.mu.Unlock()
		return kgchat.MemorySummary{}, err
	}
	c.consolidation.state = ConsolidationSubmitting
	c.mu.Unlock()

	summary, err := c.memory.Summarize(ctx, turns)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Warn("summarize failed, candidate discarded", zap.Error(err))
		c.consolidation = consolidation{}
		return kgchat.MemorySummary{}, fmt.Errorf("chat: summarize: %w", err)
	}
	c.consolidation.state = ConsolidationReviewing
	c.consolidation.summary = summary
	c.consolidation.commitErr = nil
	return summary, nil
}

// Summary returns the pending candidate's summary, valid in Reviewing
// and later states.
func (c *Chat) Summary() kgchat.MemorySummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consolidation.summary
}

// CommitError returns the error annotating the Reviewing state after a
// failed commit, or nil.
func (c *Chat) CommitError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consolidation.commitErr
}

// ConfirmCommit commits the reviewed summary to the knowledge store,
// which classifies it against existing knowledge and returns the
// relationship with a human-readable message. A commit failure
// re-enters Reviewing with the error annotated rather than closing the
// workflow.
func (c *Chat) ConfirmCommit(ctx context.Context) (kgchat.CommitResult, error) {
	c.mu.Lock()
	if c.consolidation.state != ConsolidationReviewing {
		c.mu.Unlock()
		return kgchat.CommitResult{}, fmt.Errorf("chat: no summary under review: %w", kgchat.ErrInvalidState)
	}
	if c.consolidation.summary.MemoryID == "" {
		c.mu.Unlock()
		return kgchat.CommitResult{}, fmt.Errorf("chat: commit: %w", kgchat.ErrMissingMemoryID)
	}
	memoryID := c.consolidation.summary.MemoryID
	c.consolidation.state = ConsolidationCommitting
	c.mu.Unlock()

	result, err := c.memory.Commit(ctx, memoryID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Warn("memory commit failed", zap.String("memory_id", memoryID), zap.Error(err))
		c.consolidation.state = ConsolidationReviewing
		c.consolidation.commitErr = err
		return kgchat.CommitResult{}, fmt.Errorf("chat: commit memory: %w", err)
	}
	c.consolidation.state = ConsolidationDone
	c.consolidation.result = result
	return result, nil
}

// CommitResult returns the commit outcome, valid once Done.
func (c *Chat) CommitResult() kgchat.CommitResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consolidation.result
}

// CancelConsolidation discards the memory candidate. Valid while
// selecting or reviewing; the turn log and session registry are
// untouched.
func (c *Chat) CancelConsolidation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.consolidation.state {
	case ConsolidationSelecting, ConsolidationReviewing:
	default:
		return fmt.Errorf("chat: nothing to cancel: %w", kgchat.ErrInvalidState)
	}
	c.consolidation = consolidation{state: ConsolidationCancelled}
	return nil
}
