package kgchat

import "context"

// SessionStore is the remote session registry. List is sourced fresh on
// every call; the store assigns session IDs on Create; ReplaceTurns is
// an idempotent bulk replace of a session's turn history.
type SessionStore interface {
	List(ctx context.Context) ([]Session, error)
	Create(ctx context.Context, title string) (Session, error)
	Get(ctx context.Context, id string) (Session, []Turn, error)
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	ReplaceTurns(ctx context.Context, id string, turns []Turn) error
}
