package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m3rciful/hamoonbot/core/logger"
	"github.com/m3rciful/hamoonbot/core/session"
	"log/slog"
)

// ErrConcurrentUpdateExhausted is returned when every write attempt lost the
// version contest. Nothing was committed; the message is safe to drop.
var ErrConcurrentUpdateExhausted = errors.New("dialog: concurrent update exhausted")

// Result is the committed outcome of handling one event.
type Result struct {
	Session *session.Session
	Replies []Reply
	Effect  *Effect
}

// Engine owns transition commits. It serializes concurrent messages for the
// same user through the store's version-conditional write: the loser of a
// contested write reloads and recomputes against the winner's state, so no
// transition is silently dropped.
type Engine struct {
	store  session.Store
	policy Policy
}

// NewEngine builds an engine over a session store.
func NewEngine(store session.Store, policy Policy) *Engine {
	if policy.WriteAttempts <= 0 {
		policy.WriteAttempts = 3
	}
	if policy.NewToken == nil {
		policy.NewToken = func() string { return "" }
	}
	return &Engine{store: store, policy: policy}
}

// Policy exposes the engine's dialogue parameters to the router.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Handle loads (or lazily creates) the session, applies the transition
// function, and commits the result. Side effects carried in the Result must
// be executed by the caller only after Handle returns successfully: at that
// point the transition is durable and a crashed effect can be re-run from the
// recorded context.
func (e *Engine) Handle(ctx context.Context, userID int64, ev Event) (*Result, error) {
	for attempt := 0; attempt < e.policy.WriteAttempts; attempt++ {
		cur, err := e.store.Get(ctx, userID)
		switch {
		case errors.Is(err, session.ErrNotFound):
			cur = session.New(userID)
		case err != nil:
			return nil, fmt.Errorf("dialog: load session: %w", err)
		}

		out := Transition(e.policy, cur, ev)
		next := out.Session
		next.Version = cur.Version + 1
		next.UpdatedAt = time.Now().UTC()

		ttl := e.policy.SessionTTL
		if next.Authenticated() {
			ttl = e.policy.AuthSessionTTL
		}

		err = e.store.PutIfVersion(ctx, next, cur.Version, ttl)
		if err == nil {
			logger.Debug(ctx, "dialog", "transition.commit",
				slog.String("intent", string(ev.Intent)),
				slog.String("state", string(next.State)),
				slog.Int64("version", next.Version),
			)
			return &Result{Session: next, Replies: out.Replies, Effect: out.Effect}, nil
		}
		if errors.Is(err, session.ErrVersionConflict) {
			logger.Debug(ctx, "dialog", "transition.conflict",
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, fmt.Errorf("dialog: commit transition: %w", err)
	}
	return nil, ErrConcurrentUpdateExhausted
}

// Reset removes the session entirely, e.g. for an operator-initiated unblock.
func (e *Engine) Reset(ctx context.Context, userID int64) error {
	if err := e.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("dialog: reset session: %w", err)
	}
	return nil
}

// Peek returns the current session without mutating it, or nil when absent.
func (e *Engine) Peek(ctx context.Context, userID int64) (*session.Session, error) {
	s, err := e.store.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dialog: load session: %w", err)
	}
	return s, nil
}
