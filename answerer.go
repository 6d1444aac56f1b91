package kgchat

import "context"

// Answerer opens a streamed answer for a question, carrying the full
// turn history as context. Implementations return a non-2xx response or
// an unreachable server as an error; stream-level failures surface
// through AnswerStream.Next().
type Answerer interface {
	Answer(ctx context.Context, question string, history []Turn) (AnswerStream, error)
}
