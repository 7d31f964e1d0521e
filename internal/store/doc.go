// Package store provides SQLite-backed durable storage for the shared vitality
// document.
//
// The store is a path-addressed key/value document: every leaf is a string
// value stored under a dot-separated path such as "Health Bar 0.Player 1.UUID".
// It knows nothing about groups or members; the layout and its invariants live
// in the engine package.
//
// # Durability
//
// Every mutation goes through Update, which runs inside a single SQLite
// transaction and is followed by a WAL checkpoint (Flush). Multi-key writes
// such as adding a member therefore land together or not at all.
//
// # Ordering
//
// Rows keep their rowid across value updates and subtree moves, so iteration
// in rowid order reproduces first-write order. Export relies on this to emit
// the document in the same shape it was built.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: Each committed update survives power loss
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
