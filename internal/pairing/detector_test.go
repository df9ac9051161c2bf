package pairing

import (
	"context"
	"errors"
	"testing"
)

type mockStore struct {
	reciprocalActiveFn func(ctx context.Context, owner, target int64) (bool, error)

	markCalls  []markCall
	clearCalls []clearCall
}

type markCall struct {
	A, B int64
	Key  string
}

type clearCall struct {
	A, B int64
}

func (m *mockStore) ReciprocalActive(ctx context.Context, owner, target int64) (bool, error) {
	if m.reciprocalActiveFn != nil {
		return m.reciprocalActiveFn(ctx, owner, target)
	}
	return false, nil
}

func (m *mockStore) MarkMutual(ctx context.Context, a, b int64, key string) error {
	m.markCalls = append(m.markCalls, markCall{A: a, B: b, Key: key})
	return nil
}

func (m *mockStore) ClearMutual(ctx context.Context, a, b int64) error {
	m.clearCalls = append(m.clearCalls, clearCall{A: a, B: b})
	return nil
}

type recordedEvents struct {
	detected []markCall
	ended    []clearCall
}

func (r *recordedEvents) MutualDetected(ctx context.Context, a, b int64, pairKey string) {
	r.detected = append(r.detected, markCall{A: a, B: b, Key: pairKey})
}

func (r *recordedEvents) MutualEnded(ctx context.Context, a, b int64) {
	r.ended = append(r.ended, clearCall{A: a, B: b})
}

func TestDetector_KeyIsOrderIndependent(t *testing.T) {
	d := NewDetector("crush", &mockStore{}, nil)

	if d.Key(7, 3) != d.Key(3, 7) {
		t.Errorf("Key(7,3) = %q, Key(3,7) = %q; want equal", d.Key(7, 3), d.Key(3, 7))
	}
	if got, want := d.Key(3, 7), "crush_3_7"; got != want {
		t.Errorf("Key(3,7) = %q, want %q", got, want)
	}
}

func TestDetector_KeyNamespaced(t *testing.T) {
	crush := NewDetector("crush", &mockStore{}, nil)
	follow := NewDetector("follow", &mockStore{}, nil)

	if crush.Key(1, 2) == follow.Key(1, 2) {
		t.Error("detectors with different names must derive different keys")
	}
}

func TestDetector_Check_NoReciprocal(t *testing.T) {
	store := &mockStore{
		reciprocalActiveFn: func(ctx context.Context, owner, target int64) (bool, error) {
			return false, nil
		},
	}
	events := &recordedEvents{}
	d := NewDetector("crush", store, events)

	mutual, key, err := d.Check(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mutual {
		t.Error("expected no mutual without a reciprocal entry")
	}
	if key != "" {
		t.Errorf("key = %q, want empty", key)
	}
	if len(store.markCalls) != 0 {
		t.Error("MarkMutual should not be called without a reciprocal entry")
	}
	if len(events.detected) != 0 {
		t.Error("no event should be emitted without a reciprocal entry")
	}
}

func TestDetector_Check_MutualDetected(t *testing.T) {
	store := &mockStore{
		reciprocalActiveFn: func(ctx context.Context, owner, target int64) (bool, error) {
			return true, nil
		},
	}
	events := &recordedEvents{}
	d := NewDetector("crush", store, events)

	mutual, key, err := d.Check(context.Background(), 9, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mutual {
		t.Fatal("expected mutual detection")
	}
	if want := "crush_4_9"; key != want {
		t.Errorf("key = %q, want %q", key, want)
	}

	if len(store.markCalls) != 1 {
		t.Fatalf("MarkMutual called %d times, want 1", len(store.markCalls))
	}
	if store.markCalls[0].Key != key {
		t.Errorf("MarkMutual key = %q, want %q", store.markCalls[0].Key, key)
	}

	if len(events.detected) != 1 {
		t.Fatalf("MutualDetected emitted %d times, want 1", len(events.detected))
	}
	if events.detected[0].Key != key {
		t.Errorf("event key = %q, want %q", events.detected[0].Key, key)
	}
}

func TestDetector_Check_StoreError(t *testing.T) {
	storeErr := errors.New("store down")
	store := &mockStore{
		reciprocalActiveFn: func(ctx context.Context, owner, target int64) (bool, error) {
			return false, storeErr
		},
	}
	d := NewDetector("crush", store, nil)

	_, _, err := d.Check(context.Background(), 1, 2)
	if !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want wrapped %v", err, storeErr)
	}
}

func TestDetector_Drop(t *testing.T) {
	tests := []struct {
		name       string
		wasMutual  bool
		wantClears int
		wantEvents int
	}{
		{name: "mutual pair clears reciprocal and emits", wasMutual: true, wantClears: 1, wantEvents: 1},
		{name: "non-mutual entry is a no-op", wasMutual: false, wantClears: 0, wantEvents: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			events := &recordedEvents{}
			d := NewDetector("crush", store, events)

			if err := d.Drop(context.Background(), 1, 2, tt.wasMutual); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(store.clearCalls) != tt.wantClears {
				t.Errorf("ClearMutual called %d times, want %d", len(store.clearCalls), tt.wantClears)
			}
			if len(events.ended) != tt.wantEvents {
				t.Errorf("MutualEnded emitted %d times, want %d", len(events.ended), tt.wantEvents)
			}
		})
	}
}

// Re-running Check on an already-mutual pair must write the same state,
// not diverge: same key, same both-sided mark.
func TestDetector_Check_Rerun(t *testing.T) {
	store := &mockStore{
		reciprocalActiveFn: func(ctx context.Context, owner, target int64) (bool, error) {
			return true, nil
		},
	}
	d := NewDetector("crush", store, nil)

	_, key1, err := d.Check(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	_, key2, err := d.Check(context.Background(), 5, 2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if key1 != key2 {
		t.Errorf("re-run produced different keys: %q vs %q", key1, key2)
	}
	for _, call := range store.markCalls {
		if call.Key != key1 {
			t.Errorf("MarkMutual key = %q, want %q", call.Key, key1)
		}
	}
}
