package kgchat

import (
	"fmt"
	"sort"
)

// TurnLog is the ordered, addressable log of turns for one session.
// Indices are contiguous starting at 0. At most one turn may be in
// streaming (mutable) state at any time, and it is always the last.
//
// The zero value is an empty, usable log.
type TurnLog struct {
	turns []Turn
	open  bool // a streaming turn is open (always the last turn)
}

// Append adds a finalized turn at the end and returns its index.
// It fails with ErrConflict while a streaming turn is open, regardless
// of role: only the last turn may be streaming.
func (l *TurnLog) Append(role Role, content string) (int, error) {
	if l.open {
		return 0, fmt.Errorf("append %s turn: %w", role, ErrConflict)
	}
	idx := len(l.turns)
	l.turns = append(l.turns, Turn{Index: idx, Role: role, Content: content})
	return idx, nil
}

// OpenStreaming appends an empty turn in streaming state and returns
// its index. Fails with ErrConflict if a streaming turn is already open.
func (l *TurnLog) OpenStreaming(role Role) (int, error) {
	if l.open {
		return 0, fmt.Errorf("open streaming turn: %w", ErrConflict)
	}
	idx := len(l.turns)
	l.turns = append(l.turns, Turn{Index: idx, Role: role, Streaming: true})
	l.open = true
	return idx, nil
}

// AppendChunk concatenates text onto the turn at index. Fails with
// ErrInvalidState unless that turn is the currently open streaming turn.
func (l *TurnLog) AppendChunk(index int, text string) error {
	if !l.open || index != len(l.turns)-1 {
		return fmt.Errorf("append chunk to turn %d: %w", index, ErrInvalidState)
	}
	l.turns[index].Content += text
	return nil
}

// Finalize transitions the streaming turn at index to immutable.
// Finalizing an already-finalized turn is a no-op.
func (l *TurnLog) Finalize(index int) error {
	if index < 0 || index >= len(l.turns) {
		return fmt.Errorf("finalize turn %d: %w", index, ErrOutOfRange)
	}
	if !l.turns[index].Streaming {
		return nil
	}
	l.turns[index].Streaming = false
	l.open = false
	return nil
}

// Discard removes the open streaming turn at index, for answers that
// produced no content. Fails with ErrInvalidState unless that turn is
// the currently open streaming turn.
func (l *TurnLog) Discard(index int) error {
	if !l.open || index != len(l.turns)-1 {
		return fmt.Errorf("discard turn %d: %w", index, ErrInvalidState)
	}
	l.turns = l.turns[:index]
	l.open = false
	return nil
}

// SelectSubset returns the turns at the given indices in ascending
// index order, regardless of selection insertion order. Duplicate
// indices are collapsed.
func (l *TurnLog) SelectSubset(indices []int) ([]Turn, error) {
	if len(indices) == 0 {
		return nil, ErrEmptySelection
	}
	seen := make(map[int]bool, len(indices))
	ordered := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(l.turns) {
			return nil, fmt.Errorf("select turn %d: %w", idx, ErrOutOfRange)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)
	selected := make([]Turn, len(ordered))
	for i, idx := range ordered {
		selected[i] = l.turns[idx]
	}
	return selected, nil
}

// Turn returns a copy of the turn at index.
func (l *TurnLog) Turn(index int) (Turn, error) {
	if index < 0 || index >= len(l.turns) {
		return Turn{}, fmt.Errorf("turn %d: %w", index, ErrOutOfRange)
	}
	return l.turns[index], nil
}

// Turns returns a copy of all turns in index order.
func (l *TurnLog) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of turns in the log.
func (l *TurnLog) Len() int { return len(l.turns) }

// Streaming reports whether a streaming turn is currently open.
func (l *TurnLog) Streaming() bool { return l.open }

// Replace swaps the log's contents wholesale, reassigning contiguous
// indices and clearing any streaming state. Used when switching the
// active session.
func (l *TurnLog) Replace(turns []Turn) {
	l.turns = make([]Turn, len(turns))
	for i, t := range turns {
		l.turns[i] = Turn{Index: i, Role: t.Role, Content: t.Content}
	}
	l.open = false
}
