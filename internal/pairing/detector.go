// Package pairing detects symmetric pairs over directed entries: when
// both (owner, target) and (target, owner) are active, the pair is
// mutual and gets a deterministic pair key shared by both sides.
//
// The detector is generic over its store so the same primitive serves
// both the followed-back signal on follow approval and the secret-crush
// mutual-interest list.
package pairing

import (
	"context"
	"fmt"
	"log"
)

// Store is the persistence surface the detector drives. The two-sided
// mutual update is not transactional across records; every method must
// therefore be idempotent so a retry or reconciliation sweep converges
// instead of diverging.
type Store interface {
	// ReciprocalActive reports whether the reciprocal entry
	// (target, owner) exists and is active.
	ReciprocalActive(ctx context.Context, owner, target int64) (bool, error)

	// MarkMutual sets the mutual flag and pair key on both sides of the
	// pair. Re-running with the same key is a no-op.
	MarkMutual(ctx context.Context, a, b int64, key string) error

	// ClearMutual clears the mutual flag and pair key on both sides.
	ClearMutual(ctx context.Context, a, b int64) error
}

// Events receives pair transitions. Implementations forward them to the
// external notification dispatcher; a nil Events drops them.
type Events interface {
	MutualDetected(ctx context.Context, a, b int64, pairKey string)
	MutualEnded(ctx context.Context, a, b int64)
}

// Detector wires a Store and an Events sink under a key namespace.
type Detector struct {
	name   string
	store  Store
	events Events
}

// NewDetector creates a detector. name namespaces pair keys so the two
// feature instantiations can never collide.
func NewDetector(name string, store Store, events Events) *Detector {
	return &Detector{name: name, store: store, events: events}
}

// Key derives the canonical, order-independent pair key for two
// accounts. Key(a, b) == Key(b, a) always.
func (d *Detector) Key(a, b int64) string {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%s_%d_%d", d.name, lo, hi)
}

// Check runs after the owner's own entry has been written: if the
// reciprocal entry is active, both sides are marked mutual with the
// shared pair key and a detection event is emitted.
//
// Safe to re-run: marking an already-mutual pair writes the same state
// and the caller decides whether to re-emit.
func (d *Detector) Check(ctx context.Context, owner, target int64) (bool, string, error) {
	reciprocal, err := d.store.ReciprocalActive(ctx, owner, target)
	if err != nil {
		return false, "", fmt.Errorf("check reciprocal: %w", err)
	}
	if !reciprocal {
		return false, "", nil
	}

	key := d.Key(owner, target)
	if err := d.store.MarkMutual(ctx, owner, target, key); err != nil {
		return false, "", fmt.Errorf("mark mutual: %w", err)
	}

	log.Printf("[Pairing:%s] Mutual detected: a=%d b=%d key=%s", d.name, owner, target, key)
	if d.events != nil {
		d.events.MutualDetected(ctx, owner, target, key)
	}
	return true, key, nil
}

// Drop runs after the owner's own entry has been deactivated. wasMutual
// is the state of the owner's entry before deactivation; only then does
// the reciprocal side need its flag cleared and an ended event emitted.
func (d *Detector) Drop(ctx context.Context, owner, target int64, wasMutual bool) error {
	if !wasMutual {
		return nil
	}

	if err := d.store.ClearMutual(ctx, owner, target); err != nil {
		return fmt.Errorf("clear mutual: %w", err)
	}

	log.Printf("[Pairing:%s] Mutual ended: a=%d b=%d", d.name, owner, target)
	if d.events != nil {
		d.events.MutualEnded(ctx, owner, target)
	}
	return nil
}
