// Package session defines the persisted per-user conversation state and the
// versioned store contract behind it.
//
// A Session records where a user currently is in the dialogue, the fields
// accumulated for the in-progress flow, and the verified identity once
// authentication succeeds. The store is the single source of truth: writes are
// conditional on the version counter last read, so concurrent messages from
// the same user are reconciled by optimistic concurrency instead of locks.
package session
