package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"kgchat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errAfterReader yields its payload, then fails with err instead of EOF.
type errAfterReader struct {
	r   io.Reader
	err error
}

func (e *errAfterReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		return n, e.err
	}
	return n, err
}

func (e *errAfterReader) Close() error { return nil }

func TestAnswerStream_StateTransitions(t *testing.T) {
	t.Parallel()

	s := newAnswerStream(context.Background(), io.NopCloser(strings.NewReader("hello")), kgchat.AnswerMeta{})
	assert.Equal(t, kgchat.StreamStateNew, s.State())

	chunk, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello", chunk)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, kgchat.StreamStateComplete, s.State())

	// Terminal state is sticky.
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, s.Close())
	assert.Equal(t, kgchat.StreamStateComplete, s.State())
}

func TestAnswerStream_DataBeforeError(t *testing.T) {
	t.Parallel()

	dropped := errors.New("connection reset")
	s := newAnswerStream(context.Background(), &errAfterReader{r: strings.NewReader("partial answer"), err: dropped}, kgchat.AnswerMeta{})

	chunk, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial answer", chunk)

	_, err = s.Next()
	assert.ErrorIs(t, err, dropped)
	assert.Equal(t, kgchat.StreamStateError, s.State())
}

func TestAnswerStream_ContextCancellationAttributed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newAnswerStream(ctx, &errAfterReader{r: strings.NewReader(""), err: errors.New("read on closed body")}, kgchat.AnswerMeta{})

	_, err := s.Next()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnswerStream_CloseBeforeExhaustion(t *testing.T) {
	t.Parallel()

	s := newAnswerStream(context.Background(), io.NopCloser(strings.NewReader("hello world")), kgchat.AnswerMeta{})
	require.NoError(t, s.Close())
	assert.Equal(t, kgchat.StreamStateClosed, s.State())

	_, err := s.Next()
	assert.ErrorIs(t, err, kgchat.ErrStreamClosed)
}
