package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/hamoonbot/core/dialog"
)

// ErrNotFound is returned when no submission exists for the token.
var ErrNotFound = errors.New("journal: submission not found")

type submissionRow struct {
	Token        string    `db:"token"`
	Kind         string    `db:"kind"`
	UserID       int64     `db:"user_id"`
	NationalID   string    `db:"national_id"`
	TicketNumber string    `db:"ticket_number"`
	CreatedAt    time.Time `db:"created_at"`
}

// Journal is the Postgres-backed submission recorder.
type Journal struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Journal {
	return &Journal{db: db}
}

// Record inserts one accepted submission. Replays of the same token are
// ignored so a re-run side effect cannot produce two rows.
func (j *Journal) Record(ctx context.Context, rec dialog.SubmissionRecord) error {
	const q = `
		INSERT INTO submissions (token, kind, user_id, national_id, ticket_number)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO NOTHING`
	if _, err := j.db.ExecContext(ctx, q,
		rec.Token, rec.Kind, rec.UserID, rec.NationalID, rec.TicketNumber,
	); err != nil {
		return fmt.Errorf("journal record: %w", err)
	}
	return nil
}

// FindByToken returns the submission recorded for an idempotency token.
func (j *Journal) FindByToken(ctx context.Context, token string) (*dialog.SubmissionRecord, error) {
	const q = `
		SELECT token, kind, user_id, national_id, ticket_number, created_at
		FROM submissions WHERE token = $1`
	var row submissionRow
	if err := j.db.GetContext(ctx, &row, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("journal lookup: %w", err)
	}
	return &dialog.SubmissionRecord{
		Token:        row.Token,
		Kind:         row.Kind,
		UserID:       row.UserID,
		NationalID:   row.NationalID,
		TicketNumber: row.TicketNumber,
	}, nil
}

// CountSince reports how many submissions were recorded after the given time,
// for admin reporting.
func (j *Journal) CountSince(ctx context.Context, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM submissions WHERE created_at >= $1`
	var n int
	if err := j.db.GetContext(ctx, &n, q, since); err != nil {
		return 0, fmt.Errorf("journal count: %w", err)
	}
	return n, nil
}
