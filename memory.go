package kgchat

import "context"

// Relationship classifies how a committed summary relates to existing
// stored knowledge.
type Relationship string

const (
	RelationshipHighSimilarity Relationship = "high_similarity"
	RelationshipExtension      Relationship = "extension"
	RelationshipDifference     Relationship = "difference"
	RelationshipUnknown        Relationship = "unknown"
)

// MemorySummary is the remote summarizer's response: the summary text
// and the opaque identifier required to commit it.
type MemorySummary struct {
	MemoryID string
	Summary  string
}

// CommitResult is the outcome of committing a memory: the three-way
// relationship classification against existing knowledge and a
// human-readable outcome message.
type CommitResult struct {
	Relationship Relationship
	Message      string
}

// MemoryStore summarizes selected turns and commits the result into the
// remote knowledge base.
type MemoryStore interface {
	Summarize(ctx context.Context, turns []Turn) (MemorySummary, error)
	Commit(ctx context.Context, memoryID string) (CommitResult, error)
}
