package service

import (
	"context"
	"log"

	"aufy/internal/queue"
)

// mutualEvents adapts the pairing detector's event sink onto the social
// stream. Publish failures are logged and dropped: the graph mutation
// has already committed and notifications are best-effort.
type mutualEvents struct {
	publisher queue.Publisher
	matched   func(a, b int64, pairKey string) queue.SocialEvent
	ended     func(a, b int64) queue.SocialEvent
}

func (e *mutualEvents) MutualDetected(ctx context.Context, a, b int64, pairKey string) {
	if e.publisher == nil || e.matched == nil {
		return
	}
	if _, err := e.publisher.Publish(ctx, queue.StreamSocial, e.matched(a, b, pairKey)); err != nil {
		log.Printf("[Events] Failed to publish mutual detected: a=%d b=%d err=%v", a, b, err)
	}
}

func (e *mutualEvents) MutualEnded(ctx context.Context, a, b int64) {
	if e.publisher == nil || e.ended == nil {
		return
	}
	if _, err := e.publisher.Publish(ctx, queue.StreamSocial, e.ended(a, b)); err != nil {
		log.Printf("[Events] Failed to publish mutual ended: a=%d b=%d err=%v", a, b, err)
	}
}

// publish sends a single event, logging instead of failing the caller.
func publish(ctx context.Context, publisher queue.Publisher, event queue.SocialEvent) {
	if publisher == nil {
		return
	}
	if _, err := publisher.Publish(ctx, queue.StreamSocial, event); err != nil {
		log.Printf("[Events] Failed to publish %s: actor=%d subject=%d err=%v",
			event.Type, event.ActorID, event.SubjectID, err)
	}
}
