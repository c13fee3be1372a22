package service

import (
	"context"
	"log"

	"feedsync/internal/queue"
)

// syncPublisher announces committed writes to other instances. A nil
// publisher disables announcements.
type syncPublisher struct {
	publisher queue.Publisher
	origin    string
}

func (p syncPublisher) publish(ctx context.Context, component string, event queue.SyncEvent) {
	if p.publisher == nil {
		return
	}
	msgID, err := p.publisher.Publish(ctx, queue.StreamSync, event)
	if err != nil {
		// Log but don't fail - the write is committed, peers catch up on refetch
		log.Printf("[%s] Failed to publish %s event: err=%v", component, event.Type, err)
		return
	}
	log.Printf("[%s] Published %s: msgID=%s", component, event.Type, msgID)
}
