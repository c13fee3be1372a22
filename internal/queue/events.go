package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the sync stream
const (
	EventPostCreated    = "post_created"
	EventPostLiked      = "post_liked"
	EventPostUnliked    = "post_unliked"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
)

// Stream names
const (
	StreamSync = "stream:sync"
)

// ConsumerGroupPrefix prefixes the per-instance consumer group. Every daemon
// instance reads the whole stream, so each gets its own group.
const ConsumerGroupPrefix = "sync:"

// ConsumerGroup returns the consumer group name for an instance.
func ConsumerGroup(instanceID string) string {
	return ConsumerGroupPrefix + instanceID
}

// SyncEvent announces a committed write so other instances can refresh the
// views it affects.
type SyncEvent struct {
	Type      string `json:"type"`
	Origin    string `json:"origin"`    // instance ID of the publisher
	Timestamp int64  `json:"timestamp"` // Unix timestamp of the commit

	// Post events
	PostID   int64 `json:"post_id,omitempty"`
	AuthorID int64 `json:"author_id,omitempty"`
	ActorID  int64 `json:"actor_id,omitempty"`

	// Follow events
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`
}

// NewPostCreatedEvent creates an event for a confirmed new post.
func NewPostCreatedEvent(origin string, postID, authorID int64) SyncEvent {
	return SyncEvent{
		Type:      EventPostCreated,
		Origin:    origin,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewLikeEvent creates a post_liked or post_unliked event.
func NewLikeEvent(origin string, postID, actorID int64, liked bool) SyncEvent {
	eventType := EventPostLiked
	if !liked {
		eventType = EventPostUnliked
	}
	return SyncEvent{
		Type:      eventType,
		Origin:    origin,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   actorID,
	}
}

// NewFollowEvent creates a user_followed or user_unfollowed event.
func NewFollowEvent(origin string, followerID, followeeID int64, following bool) SyncEvent {
	eventType := EventUserFollowed
	if !following {
		eventType = EventUserUnfollowed
	}
	return SyncEvent{
		Type:       eventType,
		Origin:     origin,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e SyncEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseSyncEvent parses a SyncEvent from Redis stream message values.
func ParseSyncEvent(values map[string]interface{}) (SyncEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return SyncEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event SyncEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return SyncEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
