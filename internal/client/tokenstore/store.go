// Package tokenstore holds the client's persisted session token. The
// store is shared process-wide state: any controller instance (or any
// other holder of the store) may read or clear it, and observers are
// told about clears so every instance can react to an external logout.
package tokenstore

// Store persists a single session token.
type Store interface {
	// Load returns the stored token and whether one is present.
	Load() (string, bool)
	// Save replaces the stored token.
	Save(token string) error
	// Clear removes the stored token and notifies subscribers.
	Clear() error
	// Subscribe registers fn to run on every clear. The returned
	// function cancels the subscription.
	Subscribe(fn func()) (cancel func())
}
