package kgchat

import "time"

// Session is a named, persisted conversation's metadata. The ID is
// assigned by the remote store on creation; the title is user-editable
// and may be auto-derived server-side from the first exchange.
type Session struct {
	ID        string
	Title     string
	UpdatedAt time.Time
	TurnCount int
}
