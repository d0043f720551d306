package telemetry

import (
	"context"
	"sync"
)

// Aggregator merges per-key value feeds into per-tick Snapshots. The kRPC
// layer pumps each subscribed stream into Publish from its own goroutine;
// the guidance loop drains whole ticks through Next. Keys that received no
// fresh value between two Next calls resolve as ErrStale, mirroring the wire
// behavior of the stream server, which only transmits changed values.
//
// Safe for concurrent use by one consumer and any number of producers.
type Aggregator struct {
	mu      sync.Mutex
	pending map[Key]Reading
	fatal   error

	// notify carries at most one wakeup; coalescing is fine because Next
	// drains everything pending.
	notify chan struct{}
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		pending: make(map[Key]Reading),
		notify:  make(chan struct{}, 1),
	}
}

// Publish records a freshly received value for key.
func (a *Aggregator) Publish(key Key, value float64) {
	a.publish(key, Reading{Value: value})
}

// PublishErr records a per-value resolution failure for key. The failure is
// delivered inside the next Snapshot; it does not fail Next.
func (a *Aggregator) PublishErr(key Key, err error) {
	a.publish(key, Reading{Err: err})
}

func (a *Aggregator) publish(key Key, r Reading) {
	a.mu.Lock()
	a.pending[key] = r
	a.mu.Unlock()
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// Fail marks the whole feed broken. Every subsequent Next returns err.
func (a *Aggregator) Fail(err error) {
	a.mu.Lock()
	if a.fatal == nil {
		a.fatal = err
	}
	a.mu.Unlock()
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// Next blocks until at least one fresh value is pending, then returns a
// Snapshot resolving every subscribed key independently. Implements Source.
func (a *Aggregator) Next(ctx context.Context) (Snapshot, error) {
	for {
		a.mu.Lock()
		if a.fatal != nil {
			err := a.fatal
			a.mu.Unlock()
			return Snapshot{}, err
		}
		if len(a.pending) > 0 {
			snap := a.drainLocked()
			a.mu.Unlock()
			return snap, nil
		}
		a.mu.Unlock()

		select {
		case <-a.notify:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}

// drainLocked converts pending readings into a Snapshot and clears them.
// Caller holds a.mu.
func (a *Aggregator) drainLocked() Snapshot {
	stale := Reading{Err: ErrStale}
	snap := Snapshot{UT: stale, Apoapsis: stale, Altitude: stale, SRBFuel: stale}
	for key, r := range a.pending {
		switch key {
		case KeyUT:
			snap.UT = r
		case KeyApoapsis:
			snap.Apoapsis = r
		case KeyAltitude:
			snap.Altitude = r
		case KeySRBFuel:
			snap.SRBFuel = r
		}
		delete(a.pending, key)
	}
	return snap
}
