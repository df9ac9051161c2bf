package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"aufy/internal/queue"
)

// NotificationCreator delivers a notification to a recipient. The real
// dispatcher lives outside this system; this interface is its seam.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, recipientID, actorID int64, notifType string, pairKey *string) error
}

// Handler turns social events into notification deliveries.
type Handler struct {
	notifCreator NotificationCreator // Can be nil if notifications not wired
	seen         *dedupWindow
}

// NewHandler creates a new event handler.
func NewHandler(notifCreator NotificationCreator) *Handler {
	return &Handler{
		notifCreator: notifCreator,
		seen:         newDedupWindow(dedupCapacity),
	}
}

// HandleEvent routes an event by type. Events carry an id assigned at
// publish time; redeliveries (crash recovery replays, ack failures)
// are dropped here so a retry never double-notifies.
func (h *Handler) HandleEvent(ctx context.Context, event queue.SocialEvent) error {
	startTime := time.Now()

	if event.ID != "" && !h.seen.add(event.ID) {
		log.Printf("[Worker] Duplicate event dropped: id=%s type=%s", event.ID, event.Type)
		return nil
	}

	var err error
	switch event.Type {
	case queue.EventFollowRequested:
		err = h.notify(ctx, event.SubjectID, event.ActorID, "follow_request", nil)
	case queue.EventFollowApproved:
		// The follower learns the edge went active, the followee learns
		// of the new follower.
		err = h.notify(ctx, event.ActorID, event.SubjectID, "follow_approved", nil)
		if err == nil {
			err = h.notify(ctx, event.SubjectID, event.ActorID, "new_follower", nil)
		}
	case queue.EventMutualFollow:
		// Both sides learn they follow each other.
		err = h.notifyPair(ctx, event, "mutual_follow")
	case queue.EventCrushMatched:
		// The match is the FIRST moment either side may learn of the
		// other's interest; the pair key is the chat channel.
		err = h.notifyPair(ctx, event, "crush_match")
	case queue.EventCrushEnded:
		// Only the remaining side is told, and never who withdrew.
		err = h.notify(ctx, event.SubjectID, event.SubjectID, "crush_ended", nil)
	case queue.EventUserBlocked:
		// Audit only. The blocked party must never be notified.
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

func (h *Handler) notify(ctx context.Context, recipientID, actorID int64, notifType string, pairKey *string) error {
	if h.notifCreator == nil {
		return nil
	}
	if err := h.notifCreator.CreateNotification(ctx, recipientID, actorID, notifType, pairKey); err != nil {
		return fmt.Errorf("create %s notification: %w", notifType, err)
	}
	return nil
}

func (h *Handler) notifyPair(ctx context.Context, event queue.SocialEvent, notifType string) error {
	var pairKey *string
	if event.PairKey != "" {
		pairKey = &event.PairKey
	}
	if err := h.notify(ctx, event.ActorID, event.SubjectID, notifType, pairKey); err != nil {
		return err
	}
	return h.notify(ctx, event.SubjectID, event.ActorID, notifType, pairKey)
}

const dedupCapacity = 4096

// dedupWindow is a bounded set of recently seen event ids. Exact-once
// is impossible over at-least-once delivery; a bounded window catches
// the realistic case of near-in-time redelivery. One window is shared
// by every worker goroutine, so add is guarded by a mutex.
type dedupWindow struct {
	capacity int

	mu    sync.Mutex
	order []string
	seen  map[string]struct{}
}

func newDedupWindow(capacity int) *dedupWindow {
	return &dedupWindow{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// add records the id and reports whether it was new.
func (w *dedupWindow) add(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[id]; ok {
		return false
	}
	if len(w.order) >= w.capacity {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.seen, oldest)
	}
	w.order = append(w.order, id)
	w.seen[id] = struct{}{}
	return true
}
