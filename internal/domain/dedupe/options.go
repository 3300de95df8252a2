package dedupe

// Option applies a configuration option to the in-memory tracker.
type Option func(*inMemoryTracker)

// WithSizeHint preallocates room for n distinct ids.
func WithSizeHint(n int) Option {
	return func(t *inMemoryTracker) {
		if n > 0 {
			t.sizeHint = n
		}
	}
}
