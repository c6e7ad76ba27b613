package realtime

import "time"

// backoff yields the delay before each reconnect attempt. With initial equal
// to max it is a fixed delay; otherwise it doubles up to max.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

func (b *backoff) next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	if d > b.max {
		d = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.current = b.initial
}
