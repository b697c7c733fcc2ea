package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/hamoonbot/core/gateway"
	"github.com/m3rciful/hamoonbot/core/session"
)

// validNID passes the weighted mod-11 checksum; invalidNID differs only in the
// check digit.
const (
	validNID   = "1234567891"
	invalidNID = "1234567890"
)

func testPolicy() Policy {
	return Policy{
		AuthFailureThreshold: 3,
		LookupRetryCap:       3,
		WriteAttempts:        3,
		SessionTTL:           30 * time.Minute,
		AuthSessionTTL:       60 * time.Minute,
		NewToken:             func() string { return "token-1" },
	}
}

func authedSession(state session.State) *session.Session {
	s := session.New(7)
	s.State = state
	s.NationalID = validNID
	s.CustomerName = "علی رضایی"
	s.Phone = "09121234567"
	return s
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	cur := session.New(7)
	cur.Set("auth_failures", "1")

	out := Transition(testPolicy(), cur, Event{Intent: IntentAuthenticate})

	assert.Equal(t, session.StateUnauthenticated, cur.State)
	assert.Equal(t, session.StateAwaitingNationalID, out.Session.State)
	v, _ := cur.Get("auth_failures")
	assert.Equal(t, "1", v)
}

func TestAuthenticateEntersNationalIDPrompt(t *testing.T) {
	out := Transition(testPolicy(), session.New(7), Event{Intent: IntentAuthenticate})

	assert.Equal(t, session.StateAwaitingNationalID, out.Session.State)
	assert.Nil(t, out.Effect)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, MenuCancel, out.Replies[0].Menu)
}

func TestValidNationalIDEmitsVerifyEffect(t *testing.T) {
	cur := session.New(7)
	cur.State = session.StateAwaitingNationalID

	out := Transition(testPolicy(), cur, Event{Intent: IntentNationalID, Payload: validNID})

	// The state does not advance until the gateway result comes back.
	assert.Equal(t, session.StateAwaitingNationalID, out.Session.State)
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectVerifyIdentity, out.Effect.Kind)
	assert.Equal(t, validNID, out.Effect.NationalID)
}

func TestChecksumFailureNeverEmitsEffect(t *testing.T) {
	cur := session.New(7)
	cur.State = session.StateAwaitingNationalID

	out := Transition(testPolicy(), cur, Event{Intent: IntentNationalID, Payload: invalidNID})

	assert.Nil(t, out.Effect)
	assert.Equal(t, session.StateAwaitingNationalID, out.Session.State)
	v, _ := out.Session.Get("auth_failures")
	assert.Equal(t, "1", v)
}

func TestRepeatedFailuresBlockSession(t *testing.T) {
	p := testPolicy()
	s := session.New(7)
	s.State = session.StateAwaitingNationalID

	for i := 0; i < p.AuthFailureThreshold; i++ {
		out := Transition(p, s, Event{Intent: IntentNationalID, Payload: invalidNID})
		s = out.Session
	}
	assert.Equal(t, session.StateBlocked, s.State)
}

func TestBlockedIgnoresEverything(t *testing.T) {
	s := session.New(7)
	s.State = session.StateBlocked

	for _, ev := range []Event{
		{Intent: IntentStartOver},
		{Intent: IntentLogout},
		{Intent: IntentNationalID, Payload: validNID},
		{Intent: IntentText, Payload: "سلام"},
	} {
		out := Transition(testPolicy(), s, ev)
		assert.Equal(t, session.StateBlocked, out.Session.State, string(ev.Intent))
		assert.Nil(t, out.Effect, string(ev.Intent))
	}
}

func TestVerifiedResultAuthenticates(t *testing.T) {
	cur := session.New(7)
	cur.State = session.StateAwaitingNationalID
	cur.Set("auth_failures", "2")

	out := Transition(testPolicy(), cur, Event{
		Intent:   IntentResultVerified,
		Identity: &gateway.Identity{NationalID: validNID, Name: "علی رضایی", Phone: "09121234567"},
	})

	s := out.Session
	assert.Equal(t, session.StateAuthenticatedIdle, s.State)
	assert.Equal(t, validNID, s.NationalID)
	assert.Equal(t, "علی رضایی", s.CustomerName)
	// The failure counter does not survive authentication.
	_, ok := s.Get("auth_failures")
	assert.False(t, ok)
}

func TestIdentityNotFoundCountsTowardThreshold(t *testing.T) {
	p := testPolicy()
	cur := session.New(7)
	cur.State = session.StateAwaitingNationalID
	cur.Set("auth_failures", "2")

	out := Transition(p, cur, Event{Intent: IntentResultIdentityNotFound})
	assert.Equal(t, session.StateBlocked, out.Session.State)
}

func TestStaleResultDropped(t *testing.T) {
	// The user cancelled while the lookup was in flight; its result must not
	// resurrect the finished flow.
	cur := authedSession(session.StateAuthenticatedIdle)

	out := Transition(testPolicy(), cur, Event{
		Intent: IntentResultOrderFound,
		Order:  &gateway.Order{Number: "1001", Step: 3},
	})

	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	assert.Empty(t, out.Replies)
}

func TestUnauthenticatedFlowsRequireLogin(t *testing.T) {
	for _, intent := range []Intent{IntentTrackOrder, IntentComplaint, IntentRepair} {
		out := Transition(testPolicy(), session.New(7), Event{Intent: intent})
		assert.Equal(t, session.StateUnauthenticated, out.Session.State, string(intent))
		assert.Nil(t, out.Effect)
	}
}

func TestOrderQuerySerialAndNumber(t *testing.T) {
	cur := authedSession(session.StateAwaitingOrderQuery)

	out := Transition(testPolicy(), cur, Event{Intent: IntentSerial, Payload: "123456789012"})
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectLookupOrderSerial, out.Effect.Kind)
	assert.Equal(t, "123456789012", out.Effect.Serial)

	out = Transition(testPolicy(), cur, Event{Intent: IntentOrderNumber, Payload: "1001"})
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectLookupOrderNumber, out.Effect.Kind)
	assert.Equal(t, "1001", out.Effect.Number)

	// Ten digits in this state is an order number, not a login attempt.
	out = Transition(testPolicy(), cur, Event{Intent: IntentNationalID, Payload: "1234567891"})
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectLookupOrderNumber, out.Effect.Kind)
}

func TestOrderNotFoundRetriesThenGivesUp(t *testing.T) {
	p := testPolicy()
	s := authedSession(session.StateAwaitingOrderQuery)

	for i := 0; i < p.LookupRetryCap-1; i++ {
		out := Transition(p, s, Event{Intent: IntentResultOrderNotFound})
		s = out.Session
		assert.Equal(t, session.StateAwaitingOrderQuery, s.State)
	}

	out := Transition(p, s, Event{Intent: IntentResultOrderNotFound})
	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	_, ok := out.Session.Get("lookup_retries")
	assert.False(t, ok)
}

func TestOrderFoundReturnsToIdle(t *testing.T) {
	cur := authedSession(session.StateAwaitingOrderQuery)

	out := Transition(testPolicy(), cur, Event{
		Intent: IntentResultOrderFound,
		Order:  &gateway.Order{Number: "1001", DeviceModel: "مکنده صنعتی", Step: 4},
	})

	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	require.Len(t, out.Replies, 1)
	assert.Contains(t, out.Replies[0].Text, "1001")
}

func TestComplaintFlowCollectsTypeThenText(t *testing.T) {
	p := testPolicy()
	s := authedSession(session.StateAwaitingComplaintDetails)

	out := Transition(p, s, Event{Intent: IntentText, Payload: "مشکل فنی"})
	s = out.Session
	assert.Nil(t, out.Effect)
	v, _ := s.Get("complaint_type")
	assert.Equal(t, "technical", v)

	// Too-short detail text re-prompts without minting a token.
	out = Transition(p, s, Event{Intent: IntentText, Payload: "کوتاه"})
	s = out.Session
	assert.Nil(t, out.Effect)
	_, ok := s.Get("idem_token")
	assert.False(t, ok)

	out = Transition(p, s, Event{Intent: IntentText, Payload: "دستگاه از دیروز اصلا روشن نمی‌شود"})
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectSubmitComplaint, out.Effect.Kind)
	assert.Equal(t, "token-1", out.Effect.Token)
	require.NotNil(t, out.Effect.Complaint)
	assert.Equal(t, validNID, out.Effect.Complaint.NationalID)
	assert.Equal(t, "technical", out.Effect.Complaint.Type)
}

func TestComplaintRetryReusesToken(t *testing.T) {
	p := testPolicy()
	s := authedSession(session.StateAwaitingComplaintDetails)
	s.Set("complaint_type", "technical")
	s.Set("complaint_text", "دستگاه از دیروز اصلا روشن نمی‌شود")
	s.Set("idem_token", "token-prior")

	out := Transition(p, s, Event{Intent: IntentText, Payload: "چی شد؟"})
	require.NotNil(t, out.Effect)
	assert.Equal(t, "token-prior", out.Effect.Token)
}

func TestRepairFlowValidatesPhone(t *testing.T) {
	p := testPolicy()
	s := authedSession(session.StateAwaitingRepairDetails)

	out := Transition(p, s, Event{Intent: IntentText, Payload: "صفحه نمایش دستگاه شکسته است"})
	s = out.Session
	assert.Nil(t, out.Effect)

	out = Transition(p, s, Event{Intent: IntentText, Payload: "12345"})
	s = out.Session
	assert.Nil(t, out.Effect)

	out = Transition(p, s, Event{Intent: IntentText, Payload: "۰۹۱۲۱۲۳۴۵۶۷"})
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectSubmitRepair, out.Effect.Kind)
	require.NotNil(t, out.Effect.Repair)
	assert.Equal(t, "09121234567", out.Effect.Repair.Contact)
}

func TestSubmitAcceptedEndsFlow(t *testing.T) {
	s := authedSession(session.StateAwaitingComplaintDetails)
	s.Set("idem_token", "token-1")

	out := Transition(testPolicy(), s, Event{
		Intent:  IntentResultSubmitAccepted,
		Receipt: &gateway.Receipt{TicketNumber: "T-555"},
	})

	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	_, ok := out.Session.Get("idem_token")
	assert.False(t, ok)
	require.Len(t, out.Replies, 1)
	assert.Contains(t, out.Replies[0].Text, "T-555")
}

func TestUpstreamFailureKeepsSubmissionState(t *testing.T) {
	s := authedSession(session.StateAwaitingRepairDetails)
	s.Set("repair_desc", "صفحه نمایش دستگاه شکسته است")
	s.Set("repair_contact", "09121234567")
	s.Set("idem_token", "token-1")

	out := Transition(testPolicy(), s, Event{Intent: IntentResultUpstreamFailure, FailedOp: "submit_repair"})

	assert.Equal(t, session.StateAwaitingRepairDetails, out.Session.State)
	v, _ := out.Session.Get("idem_token")
	assert.Equal(t, "token-1", v)
}

func TestUpstreamFailureAbandonsLookup(t *testing.T) {
	s := authedSession(session.StateAwaitingOrderQuery)

	out := Transition(testPolicy(), s, Event{Intent: IntentResultUpstreamFailure, FailedOp: "order_by_number"})

	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
}

func TestCancelKeepsIdentity(t *testing.T) {
	s := authedSession(session.StateAwaitingComplaintDetails)
	s.Set("complaint_type", "technical")

	out := Transition(testPolicy(), s, Event{Intent: IntentCancel})

	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	assert.Equal(t, validNID, out.Session.NationalID)
	_, ok := out.Session.Get("complaint_type")
	assert.False(t, ok)
}

func TestLogoutClearsIdentity(t *testing.T) {
	s := authedSession(session.StateAuthenticatedIdle)

	out := Transition(testPolicy(), s, Event{Intent: IntentLogout})

	assert.Equal(t, session.StateUnauthenticated, out.Session.State)
	assert.Empty(t, out.Session.NationalID)
	assert.Empty(t, out.Session.CustomerName)
}

func TestStartOverKeepsAuthentication(t *testing.T) {
	s := authedSession(session.StateAwaitingOrderQuery)

	out := Transition(testPolicy(), s, Event{Intent: IntentStartOver})

	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	assert.Equal(t, validNID, out.Session.NationalID)
}

func TestComplaintTypeRequiresText(t *testing.T) {
	p := testPolicy()
	s := authedSession(session.StateAwaitingComplaintDetails)

	// A menu press carries no payload and must not become category "other".
	out := Transition(p, s, Event{Intent: IntentTrackOrder})
	assert.Nil(t, out.Effect)
	assert.Equal(t, session.StateAwaitingComplaintDetails, out.Session.State)
	_, ok := out.Session.Get("complaint_type")
	assert.False(t, ok)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, msgComplaintTypePrompt, out.Replies[0].Text)

	out = Transition(p, out.Session, Event{Intent: IntentText, Payload: "   "})
	_, ok = out.Session.Get("complaint_type")
	assert.False(t, ok)

	out = Transition(p, out.Session, Event{Intent: IntentText, Payload: "مشکل پرداخت"})
	v, _ := out.Session.Get("complaint_type")
	assert.Equal(t, "payment", v)
}

func TestMyOrdersEmitsListEffect(t *testing.T) {
	s := authedSession(session.StateAuthenticatedIdle)

	out := Transition(testPolicy(), s, Event{Intent: IntentMyOrders})

	// The lookup is read-only, so the session stays idle.
	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectListOrders, out.Effect.Kind)
	assert.Equal(t, validNID, out.Effect.NationalID)
}

func TestMyOrdersRequiresLogin(t *testing.T) {
	out := Transition(testPolicy(), session.New(7), Event{Intent: IntentMyOrders})

	assert.Nil(t, out.Effect)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, msgNeedAuth, out.Replies[0].Text)
}

func TestOrdersListedRendersResult(t *testing.T) {
	s := authedSession(session.StateAuthenticatedIdle)

	out := Transition(testPolicy(), s, Event{
		Intent: IntentResultOrdersListed,
		Orders: []gateway.Order{
			{Number: "A-100", Step: 3, RegistrationDate: "2026-08-01 14:22:00"},
			{Number: "A-101", Step: 8},
		},
	})

	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	require.Len(t, out.Replies, 1)
	assert.Contains(t, out.Replies[0].Text, "A-100")
	assert.Contains(t, out.Replies[0].Text, "2026-08-01")
	assert.NotContains(t, out.Replies[0].Text, "14:22")
}

func TestOrdersListedEmpty(t *testing.T) {
	s := authedSession(session.StateAuthenticatedIdle)

	out := Transition(testPolicy(), s, Event{Intent: IntentResultOrdersListed})

	require.Len(t, out.Replies, 1)
	assert.Equal(t, msgOrdersEmpty, out.Replies[0].Text)
}

func TestRatingFlowScoreThenComment(t *testing.T) {
	p := testPolicy()
	s := authedSession(session.StateAuthenticatedIdle)

	out := Transition(p, s, Event{Intent: IntentRate})
	s = out.Session
	assert.Equal(t, session.StateAwaitingRatingScore, s.State)

	// Out-of-range and non-numeric scores re-prompt.
	out = Transition(p, s, Event{Intent: IntentText, Payload: "6"})
	s = out.Session
	assert.Equal(t, session.StateAwaitingRatingScore, s.State)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, msgRatingScoreInvalid, out.Replies[0].Text)

	out = Transition(p, s, Event{Intent: IntentText, Payload: "عالی"})
	s = out.Session
	assert.Equal(t, session.StateAwaitingRatingScore, s.State)

	// Persian digits are accepted.
	out = Transition(p, s, Event{Intent: IntentText, Payload: "۴"})
	s = out.Session
	assert.Equal(t, session.StateAwaitingRatingText, s.State)

	out = Transition(p, s, Event{Intent: IntentText, Payload: "برخورد کارشناسان عالی بود"})
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectSubmitRating, out.Effect.Kind)
	assert.Equal(t, "token-1", out.Effect.Token)
	require.NotNil(t, out.Effect.Rating)
	assert.Equal(t, validNID, out.Effect.Rating.NationalID)
	assert.Equal(t, 4, out.Effect.Rating.Score)
	assert.Equal(t, "برخورد کارشناسان عالی بود", out.Effect.Rating.Comment)
}

func TestRatingSkipSubmitsWithoutComment(t *testing.T) {
	p := testPolicy()
	s := authedSession(session.StateAwaitingRatingText)
	s.Set("rating_score", "5")

	out := Transition(p, s, Event{Intent: IntentSkip})

	require.NotNil(t, out.Effect)
	require.NotNil(t, out.Effect.Rating)
	assert.Equal(t, 5, out.Effect.Rating.Score)
	assert.Empty(t, out.Effect.Rating.Comment)
}

func TestRatingAcceptedThanksAndEndsFlow(t *testing.T) {
	s := authedSession(session.StateAwaitingRatingText)
	s.Set("rating_score", "3")
	s.Set("rating_comment", "خوب بود")
	s.Set("idem_token", "token-1")

	out := Transition(testPolicy(), s, Event{Intent: IntentResultRatingAccepted})

	assert.Equal(t, session.StateAuthenticatedIdle, out.Session.State)
	_, ok := out.Session.Get("idem_token")
	assert.False(t, ok)
	require.Len(t, out.Replies, 1)
	assert.Contains(t, out.Replies[0].Text, "⭐⭐⭐")
	assert.Contains(t, out.Replies[0].Text, "خوب بود")
}

func TestRatingRetryReusesToken(t *testing.T) {
	s := authedSession(session.StateAwaitingRatingText)
	s.Set("rating_score", "2")
	s.Set("rating_comment", "کند بود")
	s.Set("idem_token", "token-prior")

	out := Transition(testPolicy(), s, Event{Intent: IntentText, Payload: "چی شد؟"})

	require.NotNil(t, out.Effect)
	assert.Equal(t, "token-prior", out.Effect.Token)
}
