// Package engine implements the shared vitality pool.
//
// Groups of participants share one vitality value. Damage or healing taken
// by one online member is applied to the pool and mirrored to every other
// online member of the group. Group membership and pool vitality live in a
// store.Store document so they survive restarts.
//
// COMPONENTS:
//
// Registry: the authoritative list of groups. It creates, finds and deletes
// groups, rebuilds itself from the store at startup and tracks which
// participants are online in which group.
//
// Resolver: maps participant identities and display names to persisted
// member slots by scanning the document.
//
// Propagation: Registry.ApplyDelta and Registry.Regain clamp the pool to
// [0, MaxVitality], reset a depleted pool to MaxVitality in the same write
// and copy the result to eligible online members.
//
// Respawn watchers: one goroutine per respawn event polls the participant's
// location and writes the pool vitality once the host has moved them.
//
// DOCUMENT LAYOUT:
//
//	Health Bar Count
//	Health Bar <i>.Name | Health | Player Count
//	Health Bar <i>.Player <j>.Name | UUID | Last Login
//
// Indices are zero-based with no gaps. Every counter must bound exactly the
// entries that exist; anything else is CORRUPTED_STORE. Multi-key changes
// are written in one store transaction.
//
// CONCURRENCY:
//
// A single RWMutex in the Registry serialises structural changes and delta
// application. Watchers only take the read lock to read the pool vitality.
package engine
