package session

import "time"

// State identifies a dialogue position in the conversation state machine.
type State string

const (
	// StateUnauthenticated indicates no verified identity and no active flow.
	StateUnauthenticated State = "unauthenticated"
	// StateAwaitingNationalID indicates the bot asked for a national id.
	StateAwaitingNationalID State = "awaiting_national_id"
	// StateAuthenticatedIdle indicates a verified user with no active flow.
	StateAuthenticatedIdle State = "authenticated_idle"
	// StateAwaitingOrderQuery indicates the bot asked for an order reference.
	StateAwaitingOrderQuery State = "awaiting_order_query"
	// StateAwaitingComplaintDetails indicates an in-progress complaint flow.
	StateAwaitingComplaintDetails State = "awaiting_complaint_details"
	// StateAwaitingRepairDetails indicates an in-progress repair request flow.
	StateAwaitingRepairDetails State = "awaiting_repair_request_details"
	// StateAwaitingRatingScore indicates the bot asked for a service score.
	StateAwaitingRatingScore State = "awaiting_rating_score"
	// StateAwaitingRatingText indicates the bot asked for a rating comment.
	StateAwaitingRatingText State = "awaiting_rating_text"
	// StateBlocked is reached after repeated identity failures. It exits only
	// by TTL expiry or explicit reset.
	StateBlocked State = "blocked"
)

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	switch s {
	case StateUnauthenticated, StateAwaitingNationalID, StateAuthenticatedIdle,
		StateAwaitingOrderQuery, StateAwaitingComplaintDetails,
		StateAwaitingRepairDetails, StateAwaitingRatingScore,
		StateAwaitingRatingText, StateBlocked:
		return true
	}
	return false
}

// Authenticated reports whether s belongs to the authenticated state family.
func (s State) Authenticated() bool {
	switch s {
	case StateAuthenticatedIdle, StateAwaitingOrderQuery,
		StateAwaitingComplaintDetails, StateAwaitingRepairDetails,
		StateAwaitingRatingScore, StateAwaitingRatingText:
		return true
	}
	return false
}

// Session stores conversation state and accumulated flow data for one user.
// NationalID is set if and only if State is in the authenticated family.
// Version strictly increases with every committed transition; a write carrying
// a stale version is rejected by the store.
type Session struct {
	UserID       int64             `json:"user_id"`
	State        State             `json:"state"`
	Context      map[string]string `json:"context,omitempty"`
	NationalID   string            `json:"national_id,omitempty"`
	CustomerName string            `json:"customer_name,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Version      int64             `json:"version"`
}

// New returns a fresh session in the initial state.
func New(userID int64) *Session {
	now := time.Now().UTC()
	return &Session{
		UserID:    userID,
		State:     StateUnauthenticated,
		Context:   make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Authenticated reports whether the session carries a verified identity.
func (s *Session) Authenticated() bool {
	return s.State.Authenticated()
}

// Set stores a context field for the in-progress flow.
func (s *Session) Set(key, value string) {
	if s.Context == nil {
		s.Context = make(map[string]string)
	}
	s.Context[key] = value
}

// Get retrieves a context field.
func (s *Session) Get(key string) (string, bool) {
	v, ok := s.Context[key]
	return v, ok
}

// ClearContext drops all accumulated flow data.
func (s *Session) ClearContext() {
	s.Context = make(map[string]string)
}

// ClearIdentity removes the verified identity, as on logout.
func (s *Session) ClearIdentity() {
	s.NationalID = ""
	s.CustomerName = ""
	s.Phone = ""
}

// Clone returns a deep copy so a transition can be computed without mutating
// the loaded snapshot.
func (s *Session) Clone() *Session {
	out := *s
	out.Context = make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		out.Context[k] = v
	}
	return &out
}
