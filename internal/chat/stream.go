package chat

// TokenStream is a lazy, forward-only, non-restartable sequence of text
// fragments, consumed exactly once.
//
// The completion signal is explicit: Next returning false with Err() == nil
// is natural completion; false with a non-nil Err() (including a context
// cancellation from a client disconnect) is an abort. Consumers that care
// about the difference, like the persistence reconciler, must check Err()
// after the final Next.
type TokenStream interface {
	// Next advances to the next fragment, reporting whether one is available.
	Next() bool
	// Current returns the fragment Next advanced to.
	Current() string
	// Err returns the error that terminated the stream, if any.
	Err() error
	// Close releases the underlying connection. Safe to call at any point.
	Close() error
}
