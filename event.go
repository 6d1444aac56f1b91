package kgchat

// Event is a sealed interface representing a progress event emitted
// while a question is being answered. Events are purely semantic;
// transport failures surface through returned errors, not events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventTextDelta represents an answer text chunk.
type EventTextDelta struct {
	Delta string
}

func (EventTextDelta) event() {}

// EventEvidence carries the retrieval sidecar's result set, or the
// evidence summary embedded in the answer response metadata.
type EventEvidence struct {
	Results []RetrievalResult
}

func (EventEvidence) event() {}

// EventGraphQuery carries the server-generated graph query embedded in
// the answer response metadata, for the graph-render collaborator.
type EventGraphQuery struct {
	Query string
}

func (EventGraphQuery) event() {}

// EventQuerySuggestion carries the sidecar's derived query suggestion.
type EventQuerySuggestion struct {
	Suggestion QuerySuggestion
}

func (EventQuerySuggestion) event() {}

// EventNotice is a muted, non-fatal notice (sidecar failure, idle
// stream warning, pending-sync note).
type EventNotice struct {
	Text string
}

func (EventNotice) event() {}

// Interface compliance checks.
var (
	_ Event = EventTextDelta{}
	_ Event = EventEvidence{}
	_ Event = EventGraphQuery{}
	_ Event = EventQuerySuggestion{}
	_ Event = EventNotice{}
)
