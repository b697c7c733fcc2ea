// Package gateway defines the typed contract for the backend commerce API and
// an HTTP client implementing it. Business-negative outcomes (not found,
// duplicate, rejected) are distinct sentinel errors from availability failures
// so callers never confuse "no such order" with "backend down".
package gateway

import (
	"context"
	"errors"
)

// ErrNotFound means the backend answered authoritatively that the entity does
// not exist.
var ErrNotFound = errors.New("gateway: not found")

// ErrDuplicate means a submission with the same idempotency token was already
// accepted. Callers treat it as a completed submission, not a failure.
var ErrDuplicate = errors.New("gateway: duplicate submission")

// ErrRejected means the backend refused the submission payload.
var ErrRejected = errors.New("gateway: submission rejected")

// ErrUnavailable means the backend could not be reached or kept failing.
var ErrUnavailable = errors.New("gateway: upstream unavailable")

// ErrTimeout means the bounded call deadline elapsed. Not a negative result.
var ErrTimeout = errors.New("gateway: upstream timeout")

// Identity is the verified customer record behind a national id.
type Identity struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
}

// Order is a repair/commerce order as reported by the backend.
type Order struct {
	Number           string `json:"order_number"`
	CustomerName     string `json:"customer_name"`
	DeviceModel      string `json:"device_model"`
	Serial           string `json:"serial_number"`
	Step             int    `json:"steps"`
	RegistrationDate string `json:"registration_date"`
	TrackingCode     string `json:"tracking_code,omitempty"`
	RepairNote       string `json:"repair_description,omitempty"`
	TotalCost        int64  `json:"total_cost,omitempty"`
}

// Complaint is a support complaint prepared by the dialogue engine.
type Complaint struct {
	NationalID string `json:"national_id"`
	Type       string `json:"type"`
	Text       string `json:"text"`
}

// RepairRequest is a new repair submission prepared by the dialogue engine.
type RepairRequest struct {
	NationalID  string `json:"national_id"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
}

// Rating is a service score with an optional free-text comment.
type Rating struct {
	NationalID string `json:"national_id"`
	Score      int    `json:"score"`
	Comment    string `json:"comment,omitempty"`
}

// Receipt acknowledges an accepted submission.
type Receipt struct {
	TicketNumber string `json:"ticket_number"`
}

// Client is the backend commerce API adapter consumed by the dialogue engine.
// Submissions carry a client-generated idempotency token so a retried side
// effect is recognised as ErrDuplicate instead of creating a second record.
type Client interface {
	VerifyIdentity(ctx context.Context, nationalID string) (*Identity, error)
	OrderByNumber(ctx context.Context, number string) (*Order, error)
	OrderBySerial(ctx context.Context, serial string) (*Order, error)
	OrdersByNationalID(ctx context.Context, nationalID string) ([]Order, error)
	SubmitComplaint(ctx context.Context, c Complaint, token string) (*Receipt, error)
	SubmitRepair(ctx context.Context, r RepairRequest, token string) (*Receipt, error)
	SubmitRating(ctx context.Context, r Rating, token string) error
}
