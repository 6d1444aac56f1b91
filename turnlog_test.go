package kgchat_test

import (
	"testing"

	"kgchat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnLog_Append(t *testing.T) {
	t.Parallel()

	t.Run("indices are contiguous from zero", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		for i := 0; i < 4; i++ {
			idx, err := log.Append(kgchat.RoleUser, "q")
			require.NoError(t, err)
			assert.Equal(t, i, idx)
		}
		for i, turn := range log.Turns() {
			assert.Equal(t, i, turn.Index)
		}
	})

	t.Run("append fails while streaming turn is open", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		_, err := log.OpenStreaming(kgchat.RoleAssistant)
		require.NoError(t, err)

		_, err = log.Append(kgchat.RoleAssistant, "answer")
		assert.ErrorIs(t, err, kgchat.ErrConflict)
		_, err = log.Append(kgchat.RoleUser, "question")
		assert.ErrorIs(t, err, kgchat.ErrConflict)
	})
}

func TestTurnLog_Streaming(t *testing.T) {
	t.Parallel()

	t.Run("at most one open streaming turn", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		idx, err := log.OpenStreaming(kgchat.RoleAssistant)
		require.NoError(t, err)

		_, err = log.OpenStreaming(kgchat.RoleAssistant)
		assert.ErrorIs(t, err, kgchat.ErrConflict)

		require.NoError(t, log.Finalize(idx))
		_, err = log.OpenStreaming(kgchat.RoleAssistant)
		assert.NoError(t, err)
	})

	t.Run("chunks accumulate in order", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		_, err := log.Append(kgchat.RoleUser, "What causes defect X?")
		require.NoError(t, err)
		idx, err := log.OpenStreaming(kgchat.RoleAssistant)
		require.NoError(t, err)

		for _, chunk := range []string{"Defect X", " is caused by", " moisture."} {
			require.NoError(t, log.AppendChunk(idx, chunk))
		}
		require.NoError(t, log.Finalize(idx))

		turn, err := log.Turn(idx)
		require.NoError(t, err)
		assert.Equal(t, "Defect X is caused by moisture.", turn.Content)
		assert.False(t, turn.Streaming)
	})

	t.Run("chunk to non-streaming turn fails", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		idx, err := log.Append(kgchat.RoleAssistant, "done")
		require.NoError(t, err)

		err = log.AppendChunk(idx, "more")
		assert.ErrorIs(t, err, kgchat.ErrInvalidState)
	})

	t.Run("finalize is idempotent", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		idx, err := log.OpenStreaming(kgchat.RoleAssistant)
		require.NoError(t, err)
		require.NoError(t, log.AppendChunk(idx, "partial"))

		require.NoError(t, log.Finalize(idx))
		require.NoError(t, log.Finalize(idx))

		err = log.AppendChunk(idx, "late")
		assert.ErrorIs(t, err, kgchat.ErrInvalidState)
	})

	t.Run("finalize out of range", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		assert.ErrorIs(t, log.Finalize(0), kgchat.ErrOutOfRange)
	})

	t.Run("discard removes the open turn", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		_, err := log.Append(kgchat.RoleUser, "q")
		require.NoError(t, err)
		idx, err := log.OpenStreaming(kgchat.RoleAssistant)
		require.NoError(t, err)

		require.NoError(t, log.Discard(idx))
		assert.Equal(t, 1, log.Len())
		assert.False(t, log.Streaming())

		// The next turn reuses the discarded index.
		next, err := log.Append(kgchat.RoleUser, "q2")
		require.NoError(t, err)
		assert.Equal(t, idx, next)
	})

	t.Run("discard of finalized turn fails", func(t *testing.T) {
		t.Parallel()

		var log kgchat.TurnLog
		idx, err := log.Append(kgchat.RoleAssistant, "a")
		require.NoError(t, err)
		assert.ErrorIs(t, log.Discard(idx), kgchat.ErrInvalidState)
	})
}

func TestTurnLog_SelectSubset(t *testing.T) {
	t.Parallel()

	seed := func(t *testing.T) *kgchat.TurnLog {
		t.Helper()
		var log kgchat.TurnLog
		for _, content := range []string{"q1", "a1", "q2", "a2"} {
			role := kgchat.RoleUser
			if content[0] == 'a' {
				role = kgchat.RoleAssistant
			}
			_, err := log.Append(role, content)
			require.NoError(t, err)
		}
		return &log
	}

	t.Run("ascending regardless of insertion order", func(t *testing.T) {
		t.Parallel()

		log := seed(t)
		selected, err := log.SelectSubset([]int{2, 0, 3})
		require.NoError(t, err)
		require.Len(t, selected, 3)
		assert.Equal(t, []int{selected[0].Index, selected[1].Index, selected[2].Index}, []int{0, 2, 3})
		assert.Equal(t, "q1", selected[0].Content)
		assert.Equal(t, "q2", selected[1].Content)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		t.Parallel()

		log := seed(t)
		selected, err := log.SelectSubset([]int{1, 1, 1})
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, 1, selected[0].Index)
	})

	t.Run("empty selection", func(t *testing.T) {
		t.Parallel()

		log := seed(t)
		_, err := log.SelectSubset(nil)
		assert.ErrorIs(t, err, kgchat.ErrEmptySelection)
	})

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()

		log := seed(t)
		_, err := log.SelectSubset([]int{0, 4})
		assert.ErrorIs(t, err, kgchat.ErrOutOfRange)
		_, err = log.SelectSubset([]int{-1})
		assert.ErrorIs(t, err, kgchat.ErrOutOfRange)
	})
}

func TestTurnLog_Replace(t *testing.T) {
	t.Parallel()

	var log kgchat.TurnLog
	_, err := log.OpenStreaming(kgchat.RoleAssistant)
	require.NoError(t, err)

	log.Replace([]kgchat.Turn{
		{Role: kgchat.RoleUser, Content: "hello"},
		{Role: kgchat.RoleAssistant, Content: "hi", Streaming: true},
	})

	assert.Equal(t, 2, log.Len())
	assert.False(t, log.Streaming(), "replace clears streaming state")
	turns := log.Turns()
	assert.Equal(t, 0, turns[0].Index)
	assert.Equal(t, 1, turns[1].Index)
	assert.False(t, turns[1].Streaming)
}
