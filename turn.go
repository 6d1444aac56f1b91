package kgchat

// Turn is one conversational exchange unit: a user question or an
// assistant answer. Index is assigned at append time and is stable for
// the turn's lifetime within a session. Content is mutable only while
// Streaming is true.
type Turn struct {
	Index     int
	Role      Role
	Content   string
	Streaming bool
}
