// Package dialog implements the conversation state machine: classification of
// inbound messages into intents, the pure transition function over session
// state, the engine that commits transitions through the versioned store, and
// the router that bridges committed side effects to the backend gateway.
//
// Transitions are computed on a copy of the loaded session and committed with
// a version-conditional write. Side effects (backend calls) run only after the
// commit succeeds; their outcomes re-enter the engine as result events, so a
// backend call never mutates state that was not durably recorded first.
package dialog
