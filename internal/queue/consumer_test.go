package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestParseMessages_SeparatesMalformedEntries(t *testing.T) {
	good := NewFollowRequestedEvent(1, 2)
	values, err := good.ToMap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	streams := []redis.XStream{
		{
			Stream: StreamSocial,
			Messages: []redis.XMessage{
				{ID: "1-0", Values: values},
				// No "data" field: can never parse, no matter how often
				// it is redelivered.
				{ID: "2-0", Values: map[string]interface{}{"type": "junk"}},
				{ID: "3-0", Values: map[string]interface{}{"data": "{not json"}},
			},
		},
	}

	messages, malformed := parseMessages(streams)

	if len(messages) != 1 || messages[0].ID != "1-0" {
		t.Fatalf("messages = %+v, want only the valid entry", messages)
	}
	if messages[0].Event.Type != EventFollowRequested {
		t.Errorf("event type = %q, want %q", messages[0].Event.Type, EventFollowRequested)
	}

	if len(malformed) != 2 || malformed[0] != "2-0" || malformed[1] != "3-0" {
		t.Errorf("malformed = %v, want the two unparseable ids so they get acked", malformed)
	}
}
