package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgchat"
	"kgchat/chat"
	"kgchat/mock"
)

// eventLog is a goroutine-safe event collector for WithEventHandler.
type eventLog struct {
	mu     sync.Mutex
	events []kgchat.Event
}

func (l *eventLog) record(ev kgchat.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []kgchat.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]kgchat.Event(nil), l.events...)
}

func (l *eventLog) notices() []string {
	var out []string
	for _, ev := range l.all() {
		if n, ok := ev.(kgchat.EventNotice); ok {
			out = append(out, n.Text)
		}
	}
	return out
}

// quietRetriever never returns and never fails; for tests that don't
// care about the sidecar.
func quietRetriever() *mock.Retriever {
	return &mock.Retriever{
		RetrieveFn: func(ctx context.Context, query string, k int) ([]kgchat.RetrievalResult, error) {
			return nil, nil
		},
		SuggestQueryFn: func(ctx context.Context, question string) (kgchat.QuerySuggestion, error) {
			return kgchat.QuerySuggestion{}, nil
		},
	}
}

// memStore is a minimal in-memory SessionStore built on the mock
// double, recording ReplaceTurns calls.
func memStore(sessions map[string][]kgchat.Turn, order ...string) (*mock.Store, *[][]kgchat.Turn) {
	var persisted [][]kgchat.Turn
	var mu sync.Mutex
	store := &mock.Store{
		ListFn: func(ctx context.Context) ([]kgchat.Session, error) {
			var out []kgchat.Session
			for _, id := range order {
				out = append(out, kgchat.Session{ID: id, Title: "session " + id})
			}
			return out, nil
		},
		GetFn: func(ctx context.Context, id string) (kgchat.Session, []kgchat.Turn, error) {
			turns, ok := sessions[id]
			if !ok {
				return kgchat.Session{}, nil, errors.New("not found")
			}
			return kgchat.Session{ID: id, Title: "session " + id}, turns, nil
		},
		CreateFn: func(ctx context.Context, title string) (kgchat.Session, error) {
			return kgchat.Session{ID: "fresh", Title: title}, nil
		},
		RenameFn: func(ctx context.Context, id, title string) error { return nil },
		DeleteFn: func(ctx context.Context, id string) error { return nil },
		ReplaceTurnsFn: func(ctx context.Context, id string, turns []kgchat.Turn) error {
			mu.Lock()
			defer mu.Unlock()
			persisted = append(persisted, turns)
			return nil
		},
	}
	return store, &persisted
}

func TestChat_Start(t *testing.T) {
	t.Parallel()

	t.Run("activates the most recent session", func(t *testing.T) {
		t.Parallel()

		store, _ := memStore(map[string][]kgchat.Turn{
			"s2": {{Index: 0, Role: kgchat.RoleUser, Content: "hi"}},
			"s1": nil,
		}, "s2", "s1")
		c := chat.New(store, nil, nil, nil)

		require.NoError(t, c.Start(context.Background()))
		assert.Equal(t, "s2", c.Active().ID)
		require.Len(t, c.Turns(), 1)
		assert.Equal(t, "hi", c.Turns()[0].Content)
	})

	t.Run("creates a session when the registry is empty", func(t *testing.T) {
		t.Parallel()

		store, _ := memStore(nil)
		c := chat.New(store, nil, nil, nil)

		require.NoError(t, c.Start(context.Background()))
		assert.Equal(t, "fresh", c.Active().ID)
		assert.Empty(t, c.Turns())
	})
}

func TestChat_Switch(t *testing.T) {
	t.Parallel()

	t.Run("replaces the turn log wholesale", func(t *testing.T) {
		t.Parallel()

		store, _ := memStore(map[string][]kgchat.Turn{
			"s1": {{Index: 0, Role: kgchat.RoleUser, Content: "first"}},
			"s2": {
				{Index: 0, Role: kgchat.RoleUser, Content: "second q"},
				{Index: 1, Role: kgchat.RoleAssistant, Content: "second a"},
			},
		}, "s1", "s2")
		c := chat.New(store, nil, nil, nil)
		require.NoError(t, c.Switch(context.Background(), "s1"))

		require.NoError(t, c.Switch(context.Background(), "s2"))
		assert.Equal(t, "s2", c.Active().ID)
		require.Len(t, c.Turns(), 2)
		assert.Equal(t, "second a", c.Turns()[1].Content)
	})

	t.Run("switching to the active session is a no-op", func(t *testing.T) {
		t.Parallel()

		gets := 0
		store, _ := memStore(map[string][]kgchat.Turn{"s1": nil}, "s1")
		innerGet := store.GetFn
		store.GetFn = func(ctx context.Context, id string) (kgchat.Session, []kgchat.Turn, error) {
			gets++
			return innerGet(ctx, id)
		}
		c := chat.New(store, nil, nil, nil)
		require.NoError(t, c.Switch(context.Background(), "s1"))
		require.NoError(t, c.Switch(context.Background(), "s1"))
		assert.Equal(t, 1, gets)
	})

	t.Run("a failed load leaves local state untouched", func(t *testing.T) {
		t.Parallel()

		store, _ := memStore(map[string][]kgchat.Turn{
			"s1": {{Index: 0, Role: kgchat.RoleUser, Content: "kept"}},
		}, "s1")
		c := chat.New(store, nil, nil, nil)
		require.NoError(t, c.Switch(context.Background(), "s1"))

		require.Error(t, c.Switch(context.Background(), "missing"))
		assert.Equal(t, "s1", c.Active().ID)
		require.Len(t, c.Turns(), 1)
	})
}

func TestChat_Delete(t *testing.T) {
	t.Parallel()

	t.Run("deleting the active session activates the next", func(t *testing.T) {
		t.Parallel()

		sessions := map[string][]kgchat.Turn{"s1": nil, "s2": nil}
		order := []string{"s1", "s2"}
		store, _ := memStore(sessions, order...)
		store.DeleteFn = func(ctx context.Context, id string) error {
			delete(sessions, id)
			order = []string{"s2"}
			return nil
		}
		store.ListFn = func(ctx context.Context) ([]kgchat.Session, error) {
			var out []kgchat.Session
			for _, id := range order {
				out = append(out, kgchat.Session{ID: id})
			}
			return out, nil
		}
		c := chat.New(store, nil, nil, nil)
		require.NoError(t, c.Switch(context.Background(), "s1"))

		require.NoError(t, c.Delete(context.Background(), "s1"))
		assert.Equal(t, "s2", c.Active().ID)
	})

	t.Run("deleting the last session creates a fresh one", func(t *testing.T) {
		t.Parallel()

		sessions := map[string][]kgchat.Turn{"s1": nil}
		store, _ := memStore(sessions, "s1")
		c := chat.New(store, nil, nil, nil)
		require.NoError(t, c.Switch(context.Background(), "s1"))
		store.ListFn = func(ctx context.Context) ([]kgchat.Session, error) { return nil, nil }

		require.NoError(t, c.Delete(context.Background(), "s1"))
		assert.Equal(t, "fresh", c.Active().ID)
	})

	t.Run("deleting an inactive session keeps the active one", func(t *testing.T) {
		t.Parallel()

		store, _ := memStore(map[string][]kgchat.Turn{"s1": nil, "s2": nil}, "s1", "s2")
		c := chat.New(store, nil, nil, nil)
		require.NoError(t, c.Switch(context.Background(), "s1"))

		require.NoError(t, c.Delete(context.Background(), "s2"))
		assert.Equal(t, "s1", c.Active().ID)
	})
}

func TestChat_Rename(t *testing.T) {
	t.Parallel()

	store, _ := memStore(map[string][]kgchat.Turn{"s1": nil}, "s1")
	renamed := ""
	store.RenameFn = func(ctx context.Context, id, title string) error {
		renamed = id + "=" + title
		return nil
	}
	c := chat.New(store, nil, nil, nil)
	require.NoError(t, c.Switch(context.Background(), "s1"))

	require.NoError(t, c.Rename(context.Background(), "s1", "Defect analysis"))
	assert.Equal(t, "s1=Defect analysis", renamed)
	assert.Equal(t, "Defect analysis", c.Active().Title)
}

func TestChat_Rename_RemoteFailureKeepsLocalTitle(t *testing.T) {
	t.Parallel()

	store, _ := memStore(map[string][]kgchat.Turn{"s1": nil}, "s1")
	store.RenameFn = func(ctx context.Context, id, title string) error {
		return errors.New("store unavailable")
	}
	c := chat.New(store, nil, nil, nil)
	require.NoError(t, c.Switch(context.Background(), "s1"))

	require.Error(t, c.Rename(context.Background(), "s1", "new title"))
	assert.Equal(t, "session s1", c.Active().Title)
}
