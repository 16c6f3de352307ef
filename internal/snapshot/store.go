// Package snapshot provides the durable save/load/clear contract the
// execution engine persists through. The blob is opaque here; a
// partial or unreadable blob is the engine's problem to discard, the
// store only promises last-write-wins on a single current-session key.
package snapshot

import "context"

// Store is the key-value persistence the engine writes on every
// mutation. There is one current session at a time, so the key is
// fixed by the implementation.
type Store interface {
	// Save replaces the current snapshot, last write wins.
	Save(ctx context.Context, blob []byte) error
	// Load returns the current snapshot, or (nil, nil) when absent.
	Load(ctx context.Context) ([]byte, error)
	// Clear removes the current snapshot. Clearing an absent
	// snapshot is not an error.
	Clear(ctx context.Context) error
}
