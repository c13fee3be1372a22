package queue

import "testing"

func TestParseSyncEvent_FromStreamValues(t *testing.T) {
	event := NewFollowEvent("instance-a", 1, 2, false)

	values, err := event.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if values["type"] != EventUserUnfollowed {
		t.Errorf("type field = %v, want %s", values["type"], EventUserUnfollowed)
	}

	parsed, err := ParseSyncEvent(values)
	if err != nil {
		t.Fatalf("ParseSyncEvent: %v", err)
	}
	if parsed != event {
		t.Errorf("parsed = %+v, want %+v", parsed, event)
	}
}

func TestParseSyncEvent_MissingData(t *testing.T) {
	if _, err := ParseSyncEvent(map[string]interface{}{"type": EventPostCreated}); err == nil {
		t.Error("expected error for missing data field")
	}
	if _, err := ParseSyncEvent(map[string]interface{}{"data": "{not json"}); err == nil {
		t.Error("expected error for malformed data")
	}
}

func TestNewLikeEvent_Direction(t *testing.T) {
	if e := NewLikeEvent("x", 1, 2, true); e.Type != EventPostLiked {
		t.Errorf("liked type = %s", e.Type)
	}
	if e := NewLikeEvent("x", 1, 2, false); e.Type != EventPostUnliked {
		t.Errorf("unliked type = %s", e.Type)
	}
	if ConsumerGroup("abc") != "sync:abc" {
		t.Errorf("ConsumerGroup = %s", ConsumerGroup("abc"))
	}
}
