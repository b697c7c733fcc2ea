package dialog

import (
	"context"
	"errors"
	"strconv"

	"github.com/m3rciful/hamoonbot/core/gateway"
	"github.com/m3rciful/hamoonbot/core/logger"
	"github.com/m3rciful/hamoonbot/core/notify"
	"log/slog"
)

// SubmissionRecord is the journal entry for one accepted submission.
type SubmissionRecord struct {
	Token        string
	Kind         string
	UserID       int64
	NationalID   string
	TicketNumber string
}

// SubmissionRecorder keeps a bot-side journal of accepted submissions keyed
// by idempotency token. Recording is best-effort.
type SubmissionRecorder interface {
	Record(ctx context.Context, rec SubmissionRecord) error
	FindByToken(ctx context.Context, token string) (*SubmissionRecord, error)
}

// Router bridges classified messages to the engine and runs the side effects
// the engine committed.
type Router struct {
	engine      *Engine
	gate        gateway.Client
	notifier    notify.Notifier
	journal     SubmissionRecorder
	maintenance bool
}

// RouterOptions wire the router's collaborators. Notifier and Journal are
// optional.
type RouterOptions struct {
	Engine      *Engine
	Gateway     gateway.Client
	Notifier    notify.Notifier
	Journal     SubmissionRecorder
	Maintenance bool
}

// NewRouter builds a dialogue router.
func NewRouter(opts RouterOptions) *Router {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Router{
		engine:      opts.Engine,
		gate:        opts.Gateway,
		notifier:    notifier,
		journal:     opts.Journal,
		maintenance: opts.Maintenance,
	}
}

// HandleMessage processes one inbound text message and returns the ordered
// reply directives. Store failures surface as a transient-error reply: the
// engine cannot guess a state, so nothing is committed and no side effect
// runs.
func (r *Router) HandleMessage(ctx context.Context, userID int64, text string) []Reply {
	if r.maintenance {
		return []Reply{{Text: msgMaintenance}}
	}

	ev := Classify(text)
	res, err := r.engine.Handle(ctx, userID, ev)
	if err != nil {
		return r.transientFailure(ctx, ev, err)
	}

	replies := res.Replies
	if res.Effect == nil {
		return replies
	}

	resultEv := r.runEffect(ctx, userID, res.Effect)
	followUp, err := r.engine.Handle(ctx, userID, resultEv)
	if err != nil {
		return append(replies, r.transientFailure(ctx, resultEv, err)...)
	}
	return append(replies, followUp.Replies...)
}

func (r *Router) transientFailure(ctx context.Context, ev Event, err error) []Reply {
	logger.Warn(ctx, "dialog", "handle.fail",
		slog.String("intent", string(ev.Intent)),
		slog.String("err", err.Error()),
	)
	return []Reply{{Text: msgTransient}}
}

// runEffect executes a committed backend call and folds its outcome into a
// result event for the engine.
func (r *Router) runEffect(ctx context.Context, userID int64, ef *Effect) Event {
	switch ef.Kind {
	case EffectVerifyIdentity:
		identity, err := r.gate.VerifyIdentity(ctx, ef.NationalID)
		switch {
		case err == nil:
			return Event{Intent: IntentResultVerified, Identity: identity}
		case errors.Is(err, gateway.ErrNotFound):
			return Event{Intent: IntentResultIdentityNotFound}
		default:
			return r.upstreamFailure(ctx, userID, "verify_identity", err)
		}

	case EffectLookupOrderNumber, EffectLookupOrderSerial:
		var (
			order *gateway.Order
			err   error
			op    string
		)
		if ef.Kind == EffectLookupOrderSerial {
			op = "order_by_serial"
			order, err = r.gate.OrderBySerial(ctx, ef.Serial)
		} else {
			op = "order_by_number"
			order, err = r.gate.OrderByNumber(ctx, ef.Number)
		}
		switch {
		case err == nil:
			return Event{Intent: IntentResultOrderFound, Order: order}
		case errors.Is(err, gateway.ErrNotFound):
			return Event{Intent: IntentResultOrderNotFound}
		default:
			return r.upstreamFailure(ctx, userID, op, err)
		}

	case EffectListOrders:
		orders, err := r.gate.OrdersByNationalID(ctx, ef.NationalID)
		switch {
		case err == nil:
			return Event{Intent: IntentResultOrdersListed, Orders: orders}
		case errors.Is(err, gateway.ErrNotFound):
			// An empty history is a valid answer, not a failure.
			return Event{Intent: IntentResultOrdersListed}
		default:
			return r.upstreamFailure(ctx, userID, "orders_by_national_id", err)
		}

	case EffectSubmitComplaint, EffectSubmitRepair:
		return r.runSubmission(ctx, userID, ef)

	case EffectSubmitRating:
		return r.runRating(ctx, userID, ef)
	}

	logger.Error(ctx, "dialog", "effect.unknown",
		slog.String("kind", string(ef.Kind)),
	)
	return Event{Intent: IntentResultUpstreamFailure}
}

func (r *Router) runSubmission(ctx context.Context, userID int64, ef *Effect) Event {
	var (
		receipt    *gateway.Receipt
		err        error
		op, kind   string
		nationalID string
	)
	if ef.Kind == EffectSubmitComplaint {
		op, kind = "submit_complaint", "complaint"
		nationalID = ef.Complaint.NationalID
		receipt, err = r.gate.SubmitComplaint(ctx, *ef.Complaint, ef.Token)
	} else {
		op, kind = "submit_repair", "repair"
		nationalID = ef.Repair.NationalID
		receipt, err = r.gate.SubmitRepair(ctx, *ef.Repair, ef.Token)
	}

	switch {
	case err == nil:
		r.record(ctx, SubmissionRecord{
			Token:        ef.Token,
			Kind:         kind,
			UserID:       userID,
			NationalID:   nationalID,
			TicketNumber: receipt.TicketNumber,
		})
		return Event{Intent: IntentResultSubmitAccepted, Receipt: receipt}

	case errors.Is(err, gateway.ErrDuplicate):
		// The earlier attempt was already accepted; surface its ticket when
		// the journal remembers it.
		ev := Event{Intent: IntentResultSubmitDuplicate}
		if prev := r.findRecord(ctx, ef.Token); prev != nil {
			ev.Receipt = &gateway.Receipt{TicketNumber: prev.TicketNumber}
		}
		return ev

	case errors.Is(err, gateway.ErrRejected):
		r.notifier.NotifyAdmin(ctx, notify.SeverityWarning, "درخواست کاربر توسط سامانه رد شد", map[string]string{
			"op":      op,
			"user_id": strconv.FormatInt(userID, 10),
			"err":     err.Error(),
		})
		return Event{Intent: IntentResultSubmitRejected}

	default:
		return r.upstreamFailure(ctx, userID, op, err)
	}
}

// runRating submits a service score. The backend acknowledges without a
// receipt, and a duplicate token means the score already landed.
func (r *Router) runRating(ctx context.Context, userID int64, ef *Effect) Event {
	err := r.gate.SubmitRating(ctx, *ef.Rating, ef.Token)
	switch {
	case err == nil:
		r.record(ctx, SubmissionRecord{
			Token:      ef.Token,
			Kind:       "rating",
			UserID:     userID,
			NationalID: ef.Rating.NationalID,
		})
		return Event{Intent: IntentResultRatingAccepted}

	case errors.Is(err, gateway.ErrDuplicate):
		return Event{Intent: IntentResultRatingAccepted}

	case errors.Is(err, gateway.ErrRejected):
		r.notifier.NotifyAdmin(ctx, notify.SeverityWarning, "درخواست کاربر توسط سامانه رد شد", map[string]string{
			"op":      "submit_rating",
			"user_id": strconv.FormatInt(userID, 10),
			"err":     err.Error(),
		})
		return Event{Intent: IntentResultSubmitRejected}

	default:
		return r.upstreamFailure(ctx, userID, "submit_rating", err)
	}
}

func (r *Router) upstreamFailure(ctx context.Context, userID int64, op string, err error) Event {
	r.notifier.NotifyAdmin(ctx, notify.SeverityCritical, "خطا در ارتباط با سامانه پشتیبان", map[string]string{
		"op":      op,
		"user_id": strconv.FormatInt(userID, 10),
		"err":     err.Error(),
	})
	return Event{Intent: IntentResultUpstreamFailure, FailedOp: op}
}

func (r *Router) record(ctx context.Context, rec SubmissionRecord) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Record(ctx, rec); err != nil {
		logger.Warn(ctx, "dialog", "journal.record",
			slog.String("token", rec.Token),
			slog.String("err", err.Error()),
		)
	}
}

func (r *Router) findRecord(ctx context.Context, token string) *SubmissionRecord {
	if r.journal == nil {
		return nil
	}
	rec, err := r.journal.FindByToken(ctx, token)
	if err != nil {
		logger.Debug(ctx, "dialog", "journal.lookup",
			slog.String("token", token),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return rec
}
