package dialog

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/m3rciful/hamoonbot/core/config"
	"github.com/m3rciful/hamoonbot/core/gateway"
	"github.com/m3rciful/hamoonbot/core/session"
)

// Session context keys for in-progress flows.
const (
	keyAuthFailures  = "auth_failures"
	keyLookupKind    = "lookup_kind"
	keyLookupRetries = "lookup_retries"
	keyComplaintType = "complaint_type"
	keyComplaintText = "complaint_text"
	keyRepairDesc    = "repair_desc"
	keyRepairContact = "repair_contact"
	keyRatingScore   = "rating_score"
	keyRatingComment = "rating_comment"
	keyIdemToken     = "idem_token"
)

const minDetailRunes = 10

// Menu selects the suggested-action set attached to a reply. The transport
// renders it as a reply keyboard.
type Menu string

const (
	// MenuNone leaves the current keyboard untouched.
	MenuNone Menu = ""
	// MenuMain offers the unauthenticated entry points.
	MenuMain Menu = "main"
	// MenuAuthenticated offers the authenticated entry points.
	MenuAuthenticated Menu = "authenticated"
	// MenuCancel offers only flow cancellation.
	MenuCancel Menu = "cancel"
)

// Reply is one outbound message directive.
type Reply struct {
	Text string
	Menu Menu
}

// EffectKind names a backend call requested by a transition.
type EffectKind string

const (
	EffectVerifyIdentity    EffectKind = "verify_identity"
	EffectLookupOrderNumber EffectKind = "lookup_order_number"
	EffectLookupOrderSerial EffectKind = "lookup_order_serial"
	EffectListOrders        EffectKind = "list_orders"
	EffectSubmitComplaint   EffectKind = "submit_complaint"
	EffectSubmitRepair      EffectKind = "submit_repair"
	EffectSubmitRating      EffectKind = "submit_rating"
)

// Effect describes a backend call to run once the transition is committed.
// Submissions carry the idempotency token recorded in the session context, so
// a re-run after a crash repeats the same token.
type Effect struct {
	Kind       EffectKind
	NationalID string
	Number     string
	Serial     string
	Complaint  *gateway.Complaint
	Repair     *gateway.RepairRequest
	Rating     *gateway.Rating
	Token      string
}

// Policy carries the externally supplied dialogue parameters.
type Policy struct {
	AuthFailureThreshold int
	LookupRetryCap       int
	WriteAttempts        int
	SessionTTL           time.Duration
	AuthSessionTTL       time.Duration
	// NewToken mints idempotency tokens; overridable in tests.
	NewToken func() string
}

// NewPolicy maps the normalized config section onto a Policy.
func NewPolicy(cfg config.DialogConfig) Policy {
	return Policy{
		AuthFailureThreshold: cfg.AuthFailureThreshold,
		LookupRetryCap:       cfg.LookupRetryCap,
		WriteAttempts:        cfg.WriteAttempts,
		SessionTTL:           time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		AuthSessionTTL:       time.Duration(cfg.AuthSessionTTLMinutes) * time.Minute,
		NewToken:             uuid.NewString,
	}
}

// Outcome is the full result of one transition evaluation.
type Outcome struct {
	Session *session.Session
	Replies []Reply
	Effect  *Effect
}

// Transition is the pure mapping from (state, event) to (next state, side
// effects, replies). It never mutates cur and performs no I/O; malformed
// input is resolved here so it can never reach the gateway.
func Transition(p Policy, cur *session.Session, ev Event) Outcome {
	s := cur.Clone()
	out := Outcome{Session: s}

	// Blocked sessions ignore everything until TTL expiry.
	if s.State == session.StateBlocked {
		out.reply(msgBlocked, MenuNone)
		return out
	}

	if applyResult(p, s, ev, &out) {
		return out
	}

	switch ev.Intent {
	case IntentStartOver:
		resetFlow(s)
		out.reply(msgWelcome, menuFor(s))
		return out
	case IntentCancel:
		resetFlow(s)
		out.reply(msgCancelled, menuFor(s))
		return out
	case IntentLogout:
		s.ClearIdentity()
		s.ClearContext()
		s.State = session.StateUnauthenticated
		out.reply(msgLoggedOut, MenuMain)
		return out
	case IntentHelp:
		out.reply(msgHelp, MenuNone)
		return out
	}

	switch s.State {
	case session.StateUnauthenticated:
		unauthenticatedStep(p, s, ev, &out)
	case session.StateAwaitingNationalID:
		nationalIDStep(p, s, ev, &out)
	case session.StateAuthenticatedIdle:
		idleStep(s, ev, &out)
	case session.StateAwaitingOrderQuery:
		orderQueryStep(s, ev, &out)
	case session.StateAwaitingComplaintDetails:
		complaintStep(p, s, ev, &out)
	case session.StateAwaitingRepairDetails:
		repairStep(p, s, ev, &out)
	case session.StateAwaitingRatingScore:
		ratingScoreStep(s, ev, &out)
	case session.StateAwaitingRatingText:
		ratingTextStep(p, s, ev, &out)
	}
	return out
}

func (o *Outcome) reply(text string, menu Menu) {
	o.Replies = append(o.Replies, Reply{Text: text, Menu: menu})
}

func menuFor(s *session.Session) Menu {
	if s.Authenticated() {
		return MenuAuthenticated
	}
	return MenuMain
}

func resetFlow(s *session.Session) {
	s.ClearContext()
	if s.Authenticated() {
		s.State = session.StateAuthenticatedIdle
	} else {
		s.State = session.StateUnauthenticated
	}
}

func unauthenticatedStep(p Policy, s *session.Session, ev Event, out *Outcome) {
	switch ev.Intent {
	case IntentAuthenticate:
		s.State = session.StateAwaitingNationalID
		out.reply(msgAuthRequest, MenuCancel)
	case IntentNationalID:
		identityAttempt(p, s, ev.Payload, out)
	case IntentTrackOrder, IntentMyOrders, IntentComplaint, IntentRepair, IntentRate:
		out.reply(msgNeedAuth, MenuMain)
	default:
		out.reply(msgUnknownIdle, MenuMain)
	}
}

func nationalIDStep(p Policy, s *session.Session, ev Event, out *Outcome) {
	switch ev.Intent {
	case IntentNationalID:
		identityAttempt(p, s, ev.Payload, out)
	case IntentSerial, IntentOrderNumber:
		// Digit-bearing input of the wrong length is a malformed attempt.
		if digitsPattern.MatchString(NormalizeDigits(ev.Payload)) {
			malformedIdentityAttempt(p, s, out)
			return
		}
		out.reply(msgAuthRequest, MenuCancel)
	default:
		out.reply(msgAuthRequest, MenuCancel)
	}
}

// identityAttempt handles national-id-shaped input. The checksum is verified
// locally; only a syntactically valid id reaches the gateway.
func identityAttempt(p Policy, s *session.Session, nid string, out *Outcome) {
	if !ValidNationalID(nid) {
		malformedIdentityAttempt(p, s, out)
		return
	}
	out.reply(msgSubmitting, MenuNone)
	out.Effect = &Effect{Kind: EffectVerifyIdentity, NationalID: nid}
}

func malformedIdentityAttempt(p Policy, s *session.Session, out *Outcome) {
	if bumpFailures(p, s, out) {
		return
	}
	out.reply(msgAuthInvalid, MenuCancel)
}

// bumpFailures increments the consecutive-failure counter and blocks the
// session at the threshold. Returns true when the session became blocked.
func bumpFailures(p Policy, s *session.Session, out *Outcome) bool {
	failures := intField(s, keyAuthFailures) + 1
	setIntField(s, keyAuthFailures, failures)
	if failures >= p.AuthFailureThreshold {
		s.State = session.StateBlocked
		out.reply(msgBlocked, MenuNone)
		return true
	}
	return false
}

func idleStep(s *session.Session, ev Event, out *Outcome) {
	switch ev.Intent {
	case IntentTrackOrder:
		s.ClearContext()
		s.State = session.StateAwaitingOrderQuery
		out.reply(msgOrderPrompt, MenuCancel)
	case IntentMyOrders:
		// Read-only lookup; the session stays idle while the list loads.
		out.reply(msgOrdersLoading, MenuNone)
		out.Effect = &Effect{Kind: EffectListOrders, NationalID: s.NationalID}
	case IntentRate:
		s.ClearContext()
		s.State = session.StateAwaitingRatingScore
		out.reply(msgRatingScorePrompt, MenuCancel)
	case IntentComplaint:
		s.ClearContext()
		s.State = session.StateAwaitingComplaintDetails
		out.reply(msgComplaintTypePrompt, MenuCancel)
	case IntentRepair:
		s.ClearContext()
		s.State = session.StateAwaitingRepairDetails
		out.reply(msgRepairDescPrompt, MenuCancel)
	default:
		out.reply(msgUnknownIdle, MenuAuthenticated)
	}
}

func orderQueryStep(s *session.Session, ev Event, out *Outcome) {
	switch ev.Intent {
	case IntentSerial:
		s.Set(keyLookupKind, "serial")
		out.reply(msgSubmitting, MenuNone)
		out.Effect = &Effect{Kind: EffectLookupOrderSerial, Serial: ev.Payload}
	case IntentOrderNumber, IntentNationalID:
		// Ten-digit references are ambiguous with national ids; in this state
		// they are order numbers.
		s.Set(keyLookupKind, "number")
		out.reply(msgSubmitting, MenuNone)
		out.Effect = &Effect{Kind: EffectLookupOrderNumber, Number: ev.Payload}
	default:
		out.reply(msgOrderPrompt, MenuCancel)
	}
}

func complaintStep(p Policy, s *session.Session, ev Event, out *Outcome) {
	// A stored token means a completed payload whose submission has not been
	// confirmed yet; re-emit the same effect instead of collecting more input.
	if token, ok := s.Get(keyIdemToken); ok {
		out.reply(msgSubmitting, MenuNone)
		out.Effect = complaintEffect(s, token)
		return
	}

	if _, ok := s.Get(keyComplaintType); !ok {
		// Only free text selects a category; a menu press carries no payload
		// and must not fall through as "other".
		if ev.Intent != IntentText || strings.TrimSpace(ev.Payload) == "" {
			out.reply(msgComplaintTypePrompt, MenuCancel)
			return
		}
		s.Set(keyComplaintType, complaintType(ev.Payload))
		out.reply(msgComplaintTextPrompt, MenuCancel)
		return
	}

	if utf8.RuneCountInString(strings.TrimSpace(ev.Payload)) < minDetailRunes {
		out.reply(msgComplaintTooShort, MenuCancel)
		return
	}

	s.Set(keyComplaintText, strings.TrimSpace(ev.Payload))
	token := p.NewToken()
	s.Set(keyIdemToken, token)
	out.reply(msgSubmitting, MenuNone)
	out.Effect = complaintEffect(s, token)
}

func complaintEffect(s *session.Session, token string) *Effect {
	ctype, _ := s.Get(keyComplaintType)
	text, _ := s.Get(keyComplaintText)
	return &Effect{
		Kind:  EffectSubmitComplaint,
		Token: token,
		Complaint: &gateway.Complaint{
			NationalID: s.NationalID,
			Type:       ctype,
			Text:       text,
		},
	}
}

func repairStep(p Policy, s *session.Session, ev Event, out *Outcome) {
	if token, ok := s.Get(keyIdemToken); ok {
		out.reply(msgSubmitting, MenuNone)
		out.Effect = repairEffect(s, token)
		return
	}

	if _, ok := s.Get(keyRepairDesc); !ok {
		if utf8.RuneCountInString(strings.TrimSpace(ev.Payload)) < minDetailRunes {
			out.reply(msgComplaintTooShort, MenuCancel)
			return
		}
		s.Set(keyRepairDesc, strings.TrimSpace(ev.Payload))
		out.reply(msgRepairContactPrompt, MenuCancel)
		return
	}

	phone := NormalizeDigits(ev.Payload)
	if !ValidPhone(phone) {
		out.reply(msgPhoneInvalid, MenuCancel)
		return
	}

	s.Set(keyRepairContact, phone)
	token := p.NewToken()
	s.Set(keyIdemToken, token)
	out.reply(msgSubmitting, MenuNone)
	out.Effect = repairEffect(s, token)
}

func repairEffect(s *session.Session, token string) *Effect {
	desc, _ := s.Get(keyRepairDesc)
	contact, _ := s.Get(keyRepairContact)
	return &Effect{
		Kind:  EffectSubmitRepair,
		Token: token,
		Repair: &gateway.RepairRequest{
			NationalID:  s.NationalID,
			Description: desc,
			Contact:     contact,
		},
	}
}

// ratingScoreStep accepts a score between 1 and 5; anything else re-prompts.
func ratingScoreStep(s *session.Session, ev Event, out *Outcome) {
	score, err := strconv.Atoi(NormalizeDigits(strings.TrimSpace(ev.Payload)))
	if err != nil || score < 1 || score > 5 {
		out.reply(msgRatingScoreInvalid, MenuCancel)
		return
	}
	setIntField(s, keyRatingScore, score)
	s.State = session.StateAwaitingRatingText
	out.reply(msgRatingCommentPrompt, MenuCancel)
}

// ratingTextStep collects the optional comment. /skip submits without one.
func ratingTextStep(p Policy, s *session.Session, ev Event, out *Outcome) {
	if token, ok := s.Get(keyIdemToken); ok {
		out.reply(msgSubmitting, MenuNone)
		out.Effect = ratingEffect(s, token)
		return
	}

	comment := strings.TrimSpace(ev.Payload)
	if ev.Intent == IntentSkip {
		comment = ""
	} else if comment == "" {
		out.reply(msgRatingCommentPrompt, MenuCancel)
		return
	}

	s.Set(keyRatingComment, comment)
	token := p.NewToken()
	s.Set(keyIdemToken, token)
	out.reply(msgSubmitting, MenuNone)
	out.Effect = ratingEffect(s, token)
}

func ratingEffect(s *session.Session, token string) *Effect {
	comment, _ := s.Get(keyRatingComment)
	return &Effect{
		Kind:  EffectSubmitRating,
		Token: token,
		Rating: &gateway.Rating{
			NationalID: s.NationalID,
			Score:      intField(s, keyRatingScore),
			Comment:    comment,
		},
	}
}

// complaintType maps free text onto a canonical complaint category.
func complaintType(text string) string {
	lower := strings.TrimSpace(text)
	switch {
	case strings.Contains(lower, "فنی"):
		return "technical"
	case strings.Contains(lower, "مالی"), strings.Contains(lower, "پرداخت"):
		return "payment"
	case strings.Contains(lower, "ارسال"), strings.Contains(lower, "تحویل"):
		return "shipping"
	case strings.Contains(lower, "خدمات"), strings.Contains(lower, "پشتیبانی"):
		return "service"
	default:
		return "other"
	}
}

// applyResult folds a gateway outcome back into the session. Result events
// for a state the session has meanwhile left are dropped: the concurrent
// transition that moved the state won the version contest.
func applyResult(p Policy, s *session.Session, ev Event, out *Outcome) bool {
	switch ev.Intent {
	case IntentResultVerified:
		if s.State != session.StateUnauthenticated && s.State != session.StateAwaitingNationalID {
			return true
		}
		s.State = session.StateAuthenticatedIdle
		s.ClearContext()
		if ev.Identity != nil {
			s.NationalID = ev.Identity.NationalID
			s.CustomerName = ev.Identity.Name
			s.Phone = ev.Identity.Phone
		}
		out.reply(msgAuthSuccess(s.CustomerName), MenuAuthenticated)
		return true

	case IntentResultIdentityNotFound:
		if s.State != session.StateUnauthenticated && s.State != session.StateAwaitingNationalID {
			return true
		}
		if !bumpFailures(p, s, out) {
			out.reply(msgAuthFailed, MenuCancel)
		}
		return true

	case IntentResultOrderFound:
		if s.State != session.StateAwaitingOrderQuery {
			return true
		}
		s.ClearContext()
		s.State = session.StateAuthenticatedIdle
		if ev.Order != nil {
			out.reply(msgOrderDetails(ev.Order), MenuAuthenticated)
		}
		return true

	case IntentResultOrderNotFound:
		if s.State != session.StateAwaitingOrderQuery {
			return true
		}
		retries := intField(s, keyLookupRetries) + 1
		if retries >= p.LookupRetryCap {
			s.ClearContext()
			s.State = session.StateAuthenticatedIdle
			out.reply(msgOrderGiveUp, MenuAuthenticated)
			return true
		}
		setIntField(s, keyLookupRetries, retries)
		out.reply(msgOrderNotFound, MenuCancel)
		return true

	case IntentResultSubmitAccepted, IntentResultSubmitDuplicate:
		if s.State != session.StateAwaitingComplaintDetails && s.State != session.StateAwaitingRepairDetails {
			return true
		}
		ticket := ""
		if ev.Receipt != nil {
			ticket = ev.Receipt.TicketNumber
		}
		s.ClearContext()
		s.State = session.StateAuthenticatedIdle
		if ev.Intent == IntentResultSubmitDuplicate {
			out.reply(msgSubmitDuplicate(ticket), MenuAuthenticated)
		} else {
			out.reply(msgSubmitAccepted(ticket), MenuAuthenticated)
		}
		return true

	case IntentResultSubmitRejected:
		switch s.State {
		case session.StateAwaitingComplaintDetails, session.StateAwaitingRepairDetails,
			session.StateAwaitingRatingText:
		default:
			return true
		}
		s.ClearContext()
		s.State = session.StateAuthenticatedIdle
		out.reply(msgSubmitRejected, MenuAuthenticated)
		return true

	case IntentResultRatingAccepted:
		if s.State != session.StateAwaitingRatingText {
			return true
		}
		score := intField(s, keyRatingScore)
		comment, _ := s.Get(keyRatingComment)
		s.ClearContext()
		s.State = session.StateAuthenticatedIdle
		out.reply(msgRatingThanks(score, comment), MenuAuthenticated)
		return true

	case IntentResultOrdersListed:
		if s.State != session.StateAuthenticatedIdle {
			return true
		}
		out.reply(msgOrdersList(ev.Orders), MenuAuthenticated)
		return true

	case IntentResultUpstreamFailure:
		switch s.State {
		case session.StateAwaitingOrderQuery:
			s.ClearContext()
			s.State = session.StateAuthenticatedIdle
			out.reply(msgUpstreamFailure, MenuAuthenticated)
		case session.StateAwaitingComplaintDetails, session.StateAwaitingRepairDetails,
			session.StateAwaitingRatingText:
			// Keep the flow and its token; the next message retries the
			// submission with the same idempotency token.
			out.reply(msgUpstreamFailure, MenuCancel)
		default:
			out.reply(msgUpstreamFailure, menuFor(s))
		}
		return true
	}
	return false
}

func intField(s *session.Session, key string) int {
	raw, ok := s.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func setIntField(s *session.Session, key string, n int) {
	s.Set(key, strconv.Itoa(n))
}
