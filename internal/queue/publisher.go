package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen caps the sync stream length (approximate trim).
const DefaultStreamMaxLen = 10000

// Publisher defines the interface for publishing events to a stream.
type Publisher interface {
	// Publish adds an event to the specified stream.
	// Returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event SyncEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
}

// NewPublisher creates a new Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client}
}

// Publish adds an event to the stream using XADD with approximate MAXLEN
// trimming, so the stream does not grow without bound.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event SyncEvent) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: DefaultStreamMaxLen,
		Approx: true,
		Values: values,
	}).Result()

	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Publisher] Publish OK: stream=%s type=%s msgID=%s duration=%v",
		stream, event.Type, messageID, time.Since(startTime))

	switch event.Type {
	case EventPostCreated:
		log.Printf("[Publisher]   -> post=%d author=%d", event.PostID, event.AuthorID)
	case EventPostLiked, EventPostUnliked:
		log.Printf("[Publisher]   -> post=%d actor=%d", event.PostID, event.ActorID)
	case EventUserFollowed, EventUserUnfollowed:
		log.Printf("[Publisher]   -> follower=%d followee=%d", event.FollowerID, event.FolloweeID)
	}

	return messageID, nil
}
