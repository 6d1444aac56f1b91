package kgchat

// StreamState indicates the current state of an AnswerStream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving chunks.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned a non-EOF error.
	StreamStateClosed                       // Close() called before a terminal state.
)

// AnswerMeta carries the out-of-band response metadata delivered
// alongside the streamed answer body. Either field may be absent.
type AnswerMeta struct {
	// GraphQuery is the server-generated graph query for the question,
	// handed to the graph-render collaborator.
	GraphQuery string
	// Evidence is the retrieval summary embedded in the response.
	Evidence []RetrievalResult
}

// AnswerStream is a pull-based iterator over a server-pushed incremental
// answer. Cancellation flows through the context passed to
// Answerer.Answer().
//
// Next() returns the next raw text chunk, io.EOF on normal completion,
// or a non-EOF error on transport failure. Meta() returns the decoded
// side payloads, valid as soon as the stream is created. The underlying
// byte-stream reader must be released via Close() on every exit path.
type AnswerStream interface {
	Next() (string, error)
	Meta() AnswerMeta
	State() StreamState
	Close() error
}
