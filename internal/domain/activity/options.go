package activity

// Option configures a Tracker.
type Option func(*Tracker)

// WithObserver reports count changes to o.
func WithObserver(o Observer) Option {
	return func(t *Tracker) {
		t.observer = o
	}
}
