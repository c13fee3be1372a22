package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"feedsync/internal/cache"
	"feedsync/internal/model"
	"feedsync/internal/queue"
	"feedsync/internal/view"
)

// Refetcher reloads one cached view from the remote API.
// This abstracts the service layer so workers don't depend on the HTTP client.
type Refetcher interface {
	Refetch(ctx context.Context, key cache.Key) error
}

// Handler turns sync events published by other instances into background
// refetches of the resident views they touch. Views that are not resident
// are left alone; they will be fetched fresh on first read.
type Handler struct {
	store      *cache.Store
	refetcher  Refetcher
	instanceID string
}

// NewHandler creates a new event handler.
func NewHandler(store *cache.Store, refetcher Refetcher, instanceID string) *Handler {
	return &Handler{
		store:      store,
		refetcher:  refetcher,
		instanceID: instanceID,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.SyncEvent) error {
	if event.Origin == h.instanceID {
		// Our own write, already reflected locally.
		return nil
	}

	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostCreated:
		err = h.handlePostCreated(ctx, event)
	case queue.EventPostLiked, queue.EventPostUnliked:
		err = h.handleLikeChanged(ctx, event)
	case queue.EventUserFollowed, queue.EventUserUnfollowed:
		err = h.handleFollowChanged(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s origin=%s duration=%v err=%v",
			event.Type, event.Origin, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s origin=%s duration=%v",
		event.Type, event.Origin, time.Since(startTime))
	return nil
}

// handlePostCreated reloads the global feed and the author's profile views.
func (h *Handler) handlePostCreated(ctx context.Context, event queue.SyncEvent) error {
	log.Printf("[Worker] PostCreated: post=%d author=%d", event.PostID, event.AuthorID)

	return h.refetchResident(ctx,
		view.FeedKey(),
		view.ProfileFeedKey(event.AuthorID),
		view.ProfileKey(event.AuthorID),
	)
}

// handleLikeChanged reloads every view that holds the post.
func (h *Handler) handleLikeChanged(ctx context.Context, event queue.SyncEvent) error {
	log.Printf("[Worker] LikeChanged: post=%d actor=%d type=%s", event.PostID, event.ActorID, event.Type)

	keys := []cache.Key{view.PostKey(event.PostID)}
	for _, key := range view.PaginatedKeys(h.store) {
		feed, ok := cache.GetInfiniteEntry[model.Post](h.store, key)
		if !ok {
			continue
		}
		if _, found := view.FindPost(feed, event.PostID); found {
			keys = append(keys, key)
		}
	}

	return h.refetchResident(ctx, keys...)
}

// handleFollowChanged reloads the followee's profile and the pair's status.
func (h *Handler) handleFollowChanged(ctx context.Context, event queue.SyncEvent) error {
	log.Printf("[Worker] FollowChanged: follower=%d followee=%d type=%s",
		event.FollowerID, event.FolloweeID, event.Type)

	return h.refetchResident(ctx,
		view.ProfileKey(event.FolloweeID),
		view.ProfileKey(event.FollowerID),
		view.FollowStatusKey(event.FollowerID, event.FolloweeID),
	)
}

// refetchResident refetches each resident key, continuing past failures.
// The first failure is returned.
func (h *Handler) refetchResident(ctx context.Context, keys ...cache.Key) error {
	var firstErr error
	var refetched, failCount int

	for _, key := range keys {
		if _, ok := h.store.Get(key); !ok {
			continue
		}
		if err := h.refetcher.Refetch(ctx, key); err != nil {
			log.Printf("[Worker] Refetch failed: key=%s err=%v", key, err)
			failCount++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		refetched++
	}

	log.Printf("[Worker] Refetch DONE: refetched=%d failed=%d", refetched, failCount)
	return firstErr
}
