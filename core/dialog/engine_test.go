package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/hamoonbot/core/gateway"
	"github.com/m3rciful/hamoonbot/core/session"
)

// conflictingStore wraps a MemoryStore and makes the first n writes lose the
// version contest by sneaking a concurrent commit in before them.
type conflictingStore struct {
	*session.MemoryStore
	conflicts int
	interfere func(cur *session.Session) *session.Session
}

func (c *conflictingStore) PutIfVersion(ctx context.Context, s *session.Session, expected int64, ttl time.Duration) error {
	if c.conflicts > 0 {
		c.conflicts--
		winner, err := c.MemoryStore.Get(ctx, s.UserID)
		if err != nil {
			winner = session.New(s.UserID)
		}
		if c.interfere != nil {
			winner = c.interfere(winner)
		}
		winner.Version = expected + 1
		if err := c.MemoryStore.PutIfVersion(ctx, winner, expected, ttl); err != nil {
			return err
		}
	}
	return c.MemoryStore.PutIfVersion(ctx, s, expected, ttl)
}

func identityFixture() *gateway.Identity {
	return &gateway.Identity{NationalID: validNID, Name: "علی رضایی", Phone: "09121234567"}
}

func TestEngineCreatesSessionLazily(t *testing.T) {
	e := NewEngine(session.NewMemoryStore(), testPolicy())

	res, err := e.Handle(context.Background(), 7, Event{Intent: IntentStartOver})
	require.NoError(t, err)
	assert.Equal(t, session.StateUnauthenticated, res.Session.State)
	assert.Equal(t, int64(1), res.Session.Version)
}

func TestEngineVersionIncrementsPerCommit(t *testing.T) {
	e := NewEngine(session.NewMemoryStore(), testPolicy())
	ctx := context.Background()

	_, err := e.Handle(ctx, 7, Event{Intent: IntentStartOver})
	require.NoError(t, err)
	res, err := e.Handle(ctx, 7, Event{Intent: IntentAuthenticate})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Session.Version)

	got, err := e.Peek(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, session.StateAwaitingNationalID, got.State)
}

func TestEngineRecomputesAfterConflict(t *testing.T) {
	// A concurrent commit blocks the session; the loser must recompute against
	// the blocked state rather than retry its stale write.
	store := &conflictingStore{
		MemoryStore: session.NewMemoryStore(),
		conflicts:   1,
		interfere: func(cur *session.Session) *session.Session {
			next := cur.Clone()
			next.State = session.StateBlocked
			return next
		},
	}
	e := NewEngine(store, testPolicy())

	res, err := e.Handle(context.Background(), 7, Event{Intent: IntentNationalID, Payload: validNID})
	require.NoError(t, err)

	// Recomputed from blocked, the valid id no longer triggers verification.
	assert.Nil(t, res.Effect)
	assert.Equal(t, session.StateBlocked, res.Session.State)
	assert.Equal(t, int64(2), res.Session.Version)
}

func TestEngineGivesUpAfterWriteAttempts(t *testing.T) {
	p := testPolicy()
	store := &conflictingStore{
		MemoryStore: session.NewMemoryStore(),
		conflicts:   p.WriteAttempts,
	}
	e := NewEngine(store, p)

	_, err := e.Handle(context.Background(), 7, Event{Intent: IntentStartOver})
	assert.ErrorIs(t, err, ErrConcurrentUpdateExhausted)
}

func TestEngineTTLFamilySelection(t *testing.T) {
	store := session.NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	p := testPolicy()
	e := NewEngine(store, p)
	ctx := context.Background()

	// Unauthenticated sessions expire on the short TTL.
	_, err := e.Handle(ctx, 7, Event{Intent: IntentStartOver})
	require.NoError(t, err)

	now = now.Add(p.SessionTTL + time.Minute)
	got, err := e.Peek(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Authenticated sessions survive past the short TTL.
	_, err = e.Handle(ctx, 8, Event{
		Intent:   IntentResultVerified,
		Identity: identityFixture(),
	})
	require.NoError(t, err)

	now = now.Add(p.SessionTTL + time.Minute)
	got, err = e.Peek(ctx, 8)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.StateAuthenticatedIdle, got.State)
}

func TestEngineExpiredSessionStartsFresh(t *testing.T) {
	store := session.NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	p := testPolicy()
	e := NewEngine(store, p)
	ctx := context.Background()

	// Block the user, then let the session expire.
	for i := 0; i < p.AuthFailureThreshold; i++ {
		_, err := e.Handle(ctx, 7, Event{Intent: IntentNationalID, Payload: invalidNID})
		require.NoError(t, err)
	}
	got, err := e.Peek(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, session.StateBlocked, got.State)

	now = now.Add(p.SessionTTL + time.Minute)

	res, err := e.Handle(ctx, 7, Event{Intent: IntentStartOver})
	require.NoError(t, err)
	assert.Equal(t, session.StateUnauthenticated, res.Session.State)
	assert.Equal(t, int64(1), res.Session.Version)
}

func TestEngineReset(t *testing.T) {
	e := NewEngine(session.NewMemoryStore(), testPolicy())
	ctx := context.Background()

	_, err := e.Handle(ctx, 7, Event{Intent: IntentStartOver})
	require.NoError(t, err)
	require.NoError(t, e.Reset(ctx, 7))

	got, err := e.Peek(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}
