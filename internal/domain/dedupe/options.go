package dedupe

const defaultMaxKeys = 1024

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxKeys bounds how many streaks can be latched at once.
// Zero or negative means unbounded.
func WithMaxKeys(n int) Option {
	return func(d *inMemoryDeduper) {
		d.maxKeys = n
	}
}
