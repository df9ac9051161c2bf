package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"aufy/internal/model"
	"aufy/internal/queue"
)

// mockCrushRepo is an in-memory CrushRepository. Entries are keyed by
// the ordered (owner, target) pair, matching the unique key in the
// crushes table.
type mockCrushRepo struct {
	entries map[[2]int64]*model.CrushEntry

	countActiveFn func(ctx context.Context, ownerID int64) (int, error)
	upsertErr     error
}

func newMockCrushRepo() *mockCrushRepo {
	return &mockCrushRepo{entries: make(map[[2]int64]*model.CrushEntry)}
}

func (m *mockCrushRepo) Upsert(ctx context.Context, ownerID, targetID int64) (bool, error) {
	if m.upsertErr != nil {
		return false, m.upsertErr
	}
	key := [2]int64{ownerID, targetID}
	if existing, ok := m.entries[key]; ok && existing.IsActive {
		return false, nil
	}
	m.entries[key] = &model.CrushEntry{
		OwnerID:   ownerID,
		TargetID:  targetID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	return true, nil
}

func (m *mockCrushRepo) GetActive(ctx context.Context, ownerID, targetID int64) (*model.CrushEntry, error) {
	entry, ok := m.entries[[2]int64{ownerID, targetID}]
	if !ok || !entry.IsActive {
		return nil, nil
	}
	return entry, nil
}

func (m *mockCrushRepo) CountActive(ctx context.Context, ownerID int64) (int, error) {
	if m.countActiveFn != nil {
		return m.countActiveFn(ctx, ownerID)
	}
	count := 0
	for key, entry := range m.entries {
		if key[0] == ownerID && entry.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *mockCrushRepo) ListActive(ctx context.Context, ownerID int64) ([]model.CrushEntry, error) {
	var out []model.CrushEntry
	for key, entry := range m.entries {
		if key[0] == ownerID && entry.IsActive {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (m *mockCrushRepo) Deactivate(ctx context.Context, ownerID, targetID int64) (bool, bool, error) {
	entry, ok := m.entries[[2]int64{ownerID, targetID}]
	if !ok || !entry.IsActive {
		return false, false, nil
	}
	wasMutual := entry.IsMutual
	entry.IsActive = false
	entry.IsMutual = false
	entry.PairKey = nil
	return wasMutual, true, nil
}

func (m *mockCrushRepo) ReciprocalActive(ctx context.Context, ownerID, targetID int64) (bool, error) {
	entry, ok := m.entries[[2]int64{targetID, ownerID}]
	return ok && entry.IsActive, nil
}

func (m *mockCrushRepo) MarkMutual(ctx context.Context, a, b int64, key string) error {
	now := time.Now()
	for _, pair := range [][2]int64{{a, b}, {b, a}} {
		if entry, ok := m.entries[pair]; ok && entry.IsActive {
			entry.IsMutual = true
			entry.PairKey = &key
			if entry.MutualDetectedAt == nil {
				entry.MutualDetectedAt = &now
			}
		}
	}
	return nil
}

func (m *mockCrushRepo) ClearMutual(ctx context.Context, a, b int64) error {
	for _, pair := range [][2]int64{{a, b}, {b, a}} {
		if entry, ok := m.entries[pair]; ok {
			entry.IsMutual = false
			entry.PairKey = nil
		}
	}
	return nil
}

func newTestCrushService(crushRepo *mockCrushRepo, publisher *mockPublisher) *CrushService {
	accountRepo := &mockAccountRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Account, error) {
			return publicAccount(id), nil
		},
		getSummariesFn: func(ctx context.Context, ids []int64) (map[int64]model.AccountSummary, error) {
			out := make(map[int64]model.AccountSummary, len(ids))
			for _, id := range ids {
				out[id] = model.AccountSummary{ID: id, Username: "user"}
			}
			return out, nil
		},
	}
	return NewCrushService(crushRepo, accountRepo, &mockRelationshipRepo{}, publisher)
}

func TestCrushService_Add_SelfCrush(t *testing.T) {
	svc := newTestCrushService(newMockCrushRepo(), &mockPublisher{})

	_, err := svc.Add(context.Background(), 1, 1)

	if !errors.Is(err, model.ErrCannotCrushSelf) {
		t.Errorf("error = %v, want ErrCannotCrushSelf", err)
	}
}

func TestCrushService_Add_BlockedPairLooksLikeNotFound(t *testing.T) {
	accountRepo := &mockAccountRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Account, error) {
			return publicAccount(id), nil
		},
	}
	relRepo := &mockRelationshipRepo{
		blockExistsFn: func(ctx context.Context, a, b int64) (bool, error) {
			return true, nil
		},
	}
	svc := NewCrushService(newMockCrushRepo(), accountRepo, relRepo, &mockPublisher{})

	_, err := svc.Add(context.Background(), 1, 2)

	if !errors.Is(err, model.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestCrushService_Add_LimitEnforced(t *testing.T) {
	crushRepo := newMockCrushRepo()
	crushRepo.countActiveFn = func(ctx context.Context, ownerID int64) (int, error) {
		return model.MaxActiveCrushes, nil
	}
	svc := newTestCrushService(crushRepo, &mockPublisher{})

	_, err := svc.Add(context.Background(), 1, 2)

	if !errors.Is(err, model.ErrCrushLimitReached) {
		t.Errorf("error = %v, want ErrCrushLimitReached", err)
	}
}

func TestCrushService_Add_Duplicate(t *testing.T) {
	crushRepo := newMockCrushRepo()
	svc := newTestCrushService(crushRepo, &mockPublisher{})

	if _, err := svc.Add(context.Background(), 1, 2); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	_, err := svc.Add(context.Background(), 1, 2)
	if !errors.Is(err, model.ErrCrushExists) {
		t.Errorf("error = %v, want ErrCrushExists", err)
	}
}

func TestCrushService_Add_OneSidedStaysSecret(t *testing.T) {
	crushRepo := newMockCrushRepo()
	publisher := &mockPublisher{}
	svc := newTestCrushService(crushRepo, publisher)

	entry, err := svc.Add(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.IsMutual {
		t.Error("one-sided crush must not be mutual")
	}
	if len(publisher.events) != 0 {
		t.Errorf("one-sided crush published %d events, want 0 (target must not be notified)", len(publisher.events))
	}
}

func TestCrushService_Add_MutualMatchIsSymmetric(t *testing.T) {
	crushRepo := newMockCrushRepo()
	publisher := &mockPublisher{}
	svc := newTestCrushService(crushRepo, publisher)

	if _, err := svc.Add(context.Background(), 2, 1); err != nil {
		t.Fatalf("first side failed: %v", err)
	}
	entry, err := svc.Add(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("second side failed: %v", err)
	}

	if !entry.IsMutual {
		t.Fatal("expected second add to complete the match")
	}
	if entry.PairKey == nil {
		t.Fatal("mutual entry must carry the pair key")
	}

	// Both rows converge to the same state regardless of add order.
	other, _ := crushRepo.GetActive(context.Background(), 2, 1)
	if other == nil || !other.IsMutual {
		t.Fatal("reciprocal entry must be mutual too")
	}
	if other.PairKey == nil || *other.PairKey != *entry.PairKey {
		t.Errorf("pair keys differ: %v vs %v", other.PairKey, entry.PairKey)
	}
	if *entry.PairKey != "crush_1_2" {
		t.Errorf("pair key = %q, want order-independent crush_1_2", *entry.PairKey)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want exactly 1 match event", len(publisher.events))
	}
	if publisher.events[0].Type != queue.EventCrushMatched {
		t.Errorf("event type = %q, want %q", publisher.events[0].Type, queue.EventCrushMatched)
	}
	if publisher.events[0].PairKey != *entry.PairKey {
		t.Errorf("event pair key = %q, want %q", publisher.events[0].PairKey, *entry.PairKey)
	}
}

func TestCrushService_Remove_MutualDissolvesBothSides(t *testing.T) {
	crushRepo := newMockCrushRepo()
	publisher := &mockPublisher{}
	svc := newTestCrushService(crushRepo, publisher)

	if _, err := svc.Add(context.Background(), 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Add(context.Background(), 2, 1); err != nil {
		t.Fatal(err)
	}
	publisher.events = nil

	if err := svc.Remove(context.Background(), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The remaining side reverts to an ordinary secret entry.
	remaining, _ := crushRepo.GetActive(context.Background(), 2, 1)
	if remaining == nil {
		t.Fatal("reciprocal entry must survive the removal")
	}
	if remaining.IsMutual || remaining.PairKey != nil {
		t.Error("reciprocal entry must lose its mutual state")
	}

	if len(publisher.events) != 1 || publisher.events[0].Type != queue.EventCrushEnded {
		t.Errorf("events = %v, want one crush_ended", publisher.events)
	}
}

func TestCrushService_Remove_NotFound(t *testing.T) {
	svc := newTestCrushService(newMockCrushRepo(), &mockPublisher{})

	err := svc.Remove(context.Background(), 1, 2)

	if !errors.Is(err, model.ErrCrushNotFound) {
		t.Errorf("error = %v, want ErrCrushNotFound", err)
	}
}

func TestCrushService_Remove_OneSidedEmitsNothing(t *testing.T) {
	crushRepo := newMockCrushRepo()
	publisher := &mockPublisher{}
	svc := newTestCrushService(crushRepo, publisher)

	if _, err := svc.Add(context.Background(), 1, 2); err != nil {
		t.Fatal(err)
	}
	publisher.events = nil

	if err := svc.Remove(context.Background(), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Errorf("removing a one-sided crush published %d events, want 0", len(publisher.events))
	}
}

func TestCrushService_List_EnrichesTargets(t *testing.T) {
	crushRepo := newMockCrushRepo()
	svc := newTestCrushService(crushRepo, &mockPublisher{})

	if _, err := svc.Add(context.Background(), 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Add(context.Background(), 1, 3); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(resp.Entries))
	}
	for _, item := range resp.Entries {
		if item.Target.ID == 0 {
			t.Error("entry missing target summary")
		}
		if item.IsMutual || item.PairKey != nil {
			t.Error("one-sided entries must not expose mutual state")
		}
	}
}
