package api

import (
	"context"
	"fmt"
	"io"

	"kgchat"
)

// answerStream implements [kgchat.AnswerStream] over a raw chunked HTTP
// response body.
type answerStream struct {
	body  io.ReadCloser
	ctx   context.Context
	meta  kgchat.AnswerMeta
	state kgchat.StreamState
	buf   []byte
	err   error // terminal error, if any
}

// Interface compliance check.
var _ kgchat.AnswerStream = (*answerStream)(nil)

func newAnswerStream(ctx context.Context, body io.ReadCloser, meta kgchat.AnswerMeta) *answerStream {
	return &answerStream{
		body:  body,
		ctx:   ctx,
		meta:  meta,
		state: kgchat.StreamStateNew,
		buf:   make([]byte, 4096),
	}
}

// Next returns the next raw text chunk. Returns io.EOF when the stream
// completes normally.
func (s *answerStream) Next() (string, error) {
	switch s.state {
	case kgchat.StreamStateComplete:
		return "", io.EOF
	case kgchat.StreamStateError:
		return "", s.err
	case kgchat.StreamStateClosed:
		return "", kgchat.ErrStreamClosed
	}

	n, err := s.body.Read(s.buf)
	if n > 0 {
		s.state = kgchat.StreamStateStreaming
		chunk := string(s.buf[:n])
		// Read can return data alongside a terminal error; surface the
		// data first and the error on the following call.
		if err != nil && err != io.EOF {
			s.err = s.wrap(err)
			s.state = kgchat.StreamStateError
		} else if err == io.EOF {
			s.state = kgchat.StreamStateComplete
		}
		return chunk, nil
	}
	if err == io.EOF {
		s.state = kgchat.StreamStateComplete
		return "", io.EOF
	}
	if err != nil {
		s.err = s.wrap(err)
		s.state = kgchat.StreamStateError
		return "", s.err
	}
	// Zero-byte read with no error; let the caller pull again.
	return "", nil
}

// wrap attributes a read failure to cancellation when the stream's
// context is done, so timeouts are distinguishable from network drops.
func (s *answerStream) wrap(err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("api: answer stream: %w", ctxErr)
	}
	return fmt.Errorf("api: answer stream: %w", err)
}

// Meta returns the side payloads decoded from the response headers.
func (s *answerStream) Meta() kgchat.AnswerMeta { return s.meta }

// State returns the current stream state.
func (s *answerStream) State() kgchat.StreamState { return s.state }

// Close releases the underlying response body. Safe to call on every
// exit path, including after a terminal state.
func (s *answerStream) Close() error {
	if s.state != kgchat.StreamStateComplete && s.state != kgchat.StreamStateError {
		s.state = kgchat.StreamStateClosed
	}
	return s.body.Close()
}
