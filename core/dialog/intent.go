package dialog

import (
	"strings"

	"github.com/m3rciful/hamoonbot/core/gateway"
)

// Intent is the classified meaning of an inbound message. Classification is
// purely syntactic: commands and menu labels match verbatim, everything else
// is classified by shape. No business decision happens here.
type Intent string

const (
	// IntentStartOver restarts the conversation (/start or cancel button).
	IntentStartOver Intent = "start_over"
	// IntentCancel aborts the in-progress flow.
	IntentCancel Intent = "cancel"
	// IntentLogout drops the verified identity.
	IntentLogout Intent = "logout"
	// IntentHelp asks for usage help.
	IntentHelp Intent = "help"
	// IntentAuthenticate starts the identity verification flow.
	IntentAuthenticate Intent = "authenticate"
	// IntentTrackOrder starts the order lookup flow.
	IntentTrackOrder Intent = "track_order"
	// IntentComplaint starts the complaint flow.
	IntentComplaint Intent = "complaint"
	// IntentRepair starts the repair request flow.
	IntentRepair Intent = "repair"
	// IntentMyOrders lists the orders registered under the verified identity.
	IntentMyOrders Intent = "my_orders"
	// IntentRate starts the service rating flow.
	IntentRate Intent = "rate"
	// IntentSkip skips an optional input (/skip).
	IntentSkip Intent = "skip"

	// IntentNationalID is a ten-digit national-id-shaped payload.
	IntentNationalID Intent = "national_id"
	// IntentSerial is a twelve-digit serial-shaped payload.
	IntentSerial Intent = "serial"
	// IntentOrderNumber is a reception-number-shaped payload.
	IntentOrderNumber Intent = "order_number"
	// IntentText is free text with no recognised shape.
	IntentText Intent = "text"
)

// Result intents are produced by the side-effect runner, never by Classify.
const (
	IntentResultVerified         Intent = "result_verified"
	IntentResultIdentityNotFound Intent = "result_identity_not_found"
	IntentResultOrderFound       Intent = "result_order_found"
	IntentResultOrderNotFound    Intent = "result_order_not_found"
	IntentResultSubmitAccepted   Intent = "result_submit_accepted"
	IntentResultSubmitDuplicate  Intent = "result_submit_duplicate"
	IntentResultSubmitRejected   Intent = "result_submit_rejected"
	IntentResultRatingAccepted   Intent = "result_rating_accepted"
	IntentResultOrdersListed     Intent = "result_orders_listed"
	IntentResultUpstreamFailure  Intent = "result_upstream_failure"
)

// Event pairs an intent with its payload. Result events additionally carry
// the typed gateway outcome they report.
type Event struct {
	Intent  Intent
	Payload string

	Identity *gateway.Identity
	Order    *gateway.Order
	Orders   []gateway.Order
	Receipt  *gateway.Receipt
	// FailedOp names the gateway operation behind a result_upstream_failure.
	FailedOp string
}

// Classify maps raw message text to an (intent, payload) event.
func Classify(text string) Event {
	trimmed := strings.TrimSpace(text)

	switch trimmed {
	case "/start":
		return Event{Intent: IntentStartOver}
	case "/logout", BtnLogout:
		return Event{Intent: IntentLogout}
	case "/help", BtnHelp:
		return Event{Intent: IntentHelp}
	case "/cancel", BtnCancel:
		return Event{Intent: IntentCancel}
	case "/skip":
		return Event{Intent: IntentSkip}
	case BtnLogin:
		return Event{Intent: IntentAuthenticate}
	case BtnTrack:
		return Event{Intent: IntentTrackOrder}
	case BtnMyOrders:
		return Event{Intent: IntentMyOrders}
	case BtnComplaint:
		return Event{Intent: IntentComplaint}
	case BtnRepair:
		return Event{Intent: IntentRepair}
	case BtnRate:
		return Event{Intent: IntentRate}
	}

	normalized := NormalizeDigits(trimmed)
	switch {
	case NationalIDShaped(normalized):
		return Event{Intent: IntentNationalID, Payload: normalized}
	case SerialShaped(normalized):
		return Event{Intent: IntentSerial, Payload: normalized}
	case ValidOrderNumber(strings.ToUpper(normalized)):
		return Event{Intent: IntentOrderNumber, Payload: strings.ToUpper(normalized)}
	default:
		return Event{Intent: IntentText, Payload: trimmed}
	}
}
