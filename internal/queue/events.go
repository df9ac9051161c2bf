package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types for the social stream
const (
	EventFollowRequested = "follow_requested"
	EventFollowApproved  = "follow_approved"
	EventMutualFollow    = "mutual_follow"
	EventCrushMatched    = "crush_matched"
	EventCrushEnded      = "crush_ended"
	EventUserBlocked     = "user_blocked"
)

// Stream names
const (
	StreamSocial = "stream:social"
)

// Consumer group name for notification workers
const (
	ConsumerGroupNotify = "notify_workers"
)

// SocialEvent is an event published to the social stream for the
// notification dispatcher. The ID is assigned at creation so a consumer
// replaying the same event (retry, pending recovery) can deduplicate.
type SocialEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// ActorID performed the action, SubjectID received it.
	ActorID   int64 `json:"actor_id"`
	SubjectID int64 `json:"subject_id"`

	// PairKey is set on mutual-pair events.
	PairKey string `json:"pair_key,omitempty"`
}

func newEvent(eventType string, actorID, subjectID int64) SocialEvent {
	return SocialEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		ActorID:   actorID,
		SubjectID: subjectID,
	}
}

// NewFollowRequestedEvent is emitted when a follow request lands as
// pending on a private account.
func NewFollowRequestedEvent(followerID, followeeID int64) SocialEvent {
	return newEvent(EventFollowRequested, followerID, followeeID)
}

// NewFollowApprovedEvent is emitted when a follow becomes active,
// either immediately (public followee) or via explicit approval.
func NewFollowApprovedEvent(followerID, followeeID int64) SocialEvent {
	return newEvent(EventFollowApproved, followerID, followeeID)
}

// NewMutualFollowEvent is emitted when both directions of a follow pair
// are active.
func NewMutualFollowEvent(a, b int64, pairKey string) SocialEvent {
	e := newEvent(EventMutualFollow, a, b)
	e.PairKey = pairKey
	return e
}

// NewCrushMatchedEvent is emitted when both sides of a crush pair are
// active. The pair key doubles as the chat channel for the match.
func NewCrushMatchedEvent(a, b int64, pairKey string) SocialEvent {
	e := newEvent(EventCrushMatched, a, b)
	e.PairKey = pairKey
	return e
}

// NewCrushEndedEvent is emitted when one side of a mutual crush pair
// withdraws.
func NewCrushEndedEvent(a, b int64) SocialEvent {
	return newEvent(EventCrushEnded, a, b)
}

// NewUserBlockedEvent is emitted after a block lands. Consumed for
// audit only; the blocked party is never notified.
func NewUserBlockedEvent(blockerID, blockedID int64) SocialEvent {
	return newEvent(EventUserBlocked, blockerID, blockedID)
}

// ToMap converts the event to a map for Redis XADD. Streams store
// field-value pairs, so the event is serialized to JSON in "data".
func (e SocialEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseSocialEvent parses a SocialEvent from Redis stream message values.
func ParseSocialEvent(values map[string]interface{}) (SocialEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return SocialEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event SocialEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return SocialEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
