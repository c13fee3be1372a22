package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"feedsync/internal/cache"
	"feedsync/internal/identity"
	"feedsync/internal/model"
	"feedsync/internal/optimistic"
	"feedsync/internal/queue"
	"feedsync/internal/view"
)

// Mutation names, as they appear in logs and the journal.
const (
	MutationCreatePost = "create_post"
	MutationToggleLike = "toggle_like"
)

type PostService struct {
	exec     *optimistic.Executor
	identity identity.Provider
	api      PostAPI
	sync     syncPublisher
	now      func() time.Time
}

func NewPostService(exec *optimistic.Executor, identity identity.Provider, api PostAPI) *PostService {
	return &PostService{
		exec:     exec,
		identity: identity,
		api:      api,
		now:      time.Now,
	}
}

// SetPublisher sets the sync-event publisher (optional).
func (s *PostService) SetPublisher(publisher queue.Publisher, origin string) {
	s.sync = syncPublisher{publisher: publisher, origin: origin}
}

// CreatePost creates a post optimistically and waits for the outcome.
func (s *PostService) CreatePost(ctx context.Context, content string) (*model.Post, error) {
	pending, err := s.StartCreatePost(ctx, content)
	if err != nil {
		return nil, err
	}
	return pending.Wait(ctx)
}

// StartCreatePost prepends a provisional post to the global feed and the
// author's profile feed and bumps the author's post count, then sends the
// create call. On commit the provisional record is replaced in place by the
// server's; on failure it is removed and the count restored.
func (s *PostService) StartCreatePost(ctx context.Context, content string) (*optimistic.Pending[*model.Post], error) {
	me, ok := s.identity.Current()
	if !ok {
		return nil, model.ErrUnauthenticated
	}
	req := model.CreatePostRequest{Content: content}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	provisional := model.Post{
		ClientID:  uuid.NewString(),
		Content:   content,
		CreatedAt: s.now(),
		Author: model.UserSummary{
			ID:          me.UserID,
			DisplayName: me.DisplayName,
			AvatarURL:   me.AvatarURL,
		},
	}
	feeds := []cache.Key{view.FeedKey(), view.ProfileFeedKey(me.UserID)}
	profile := view.ProfileKey(me.UserID)
	// Generation of the profile entry the count was bumped on. A refetch in
	// between already carries the server's count.
	var profileGen uint64

	m := optimistic.Mutation[*model.Post]{
		Name: MutationCreatePost,
		Apply: func(st *cache.Store) {
			for _, key := range feeds {
				cache.SetInfiniteEntry(st, key, view.PrependPost(provisional))
			}
			profileGen = cache.SetEntry(st, profile, view.AdjustPostCount(1))
		},
		Call: func(ctx context.Context) (*model.Post, error) {
			return s.api.CreatePost(ctx, req.Content)
		},
		Commit: func(st *cache.Store, created *model.Post) {
			confirmed := confirmPost(provisional, created)
			for _, key := range feeds {
				cache.SetInfiniteEntry(st, key, view.ReplacePost(provisional.ClientID, confirmed))
			}
		},
		Rollback: func(st *cache.Store) {
			for _, key := range feeds {
				cache.SetInfiniteEntry(st, key, view.RemovePost(provisional.ClientID))
			}
			cache.SetEntryAt(st, profile, profileGen, view.AdjustPostCount(-1))
		},
		AfterCommit: func(ctx context.Context, created *model.Post) {
			s.sync.publish(ctx, "PostService", queue.NewPostCreatedEvent(s.sync.origin, created.ID, me.UserID))
		},
	}

	log.Printf("[PostService] CreatePost: author=%d client_id=%s", me.UserID, provisional.ClientID)
	return optimistic.Start(ctx, s.exec, m), nil
}

// confirmPost derives the cached record from the server's response. Fields
// the server left empty fall back to the provisional record.
func confirmPost(provisional model.Post, created *model.Post) model.Post {
	confirmed := *created
	confirmed.ClientID = ""
	if confirmed.Content == "" {
		confirmed.Content = provisional.Content
	}
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = provisional.CreatedAt
	}
	if confirmed.Author.ID == 0 {
		confirmed.Author = provisional.Author
	}
	return confirmed
}

// ToggleLike flips the current user's like on a post and waits for the outcome.
func (s *PostService) ToggleLike(ctx context.Context, postID int64) (*model.LikeResult, error) {
	pending, err := s.StartToggleLike(ctx, postID)
	if err != nil {
		return nil, err
	}
	return pending.Wait(ctx)
}

// StartToggleLike flips the like on every resident view holding the post,
// then sends like or unlike depending on the cached state. Commit aligns every
// view to the server's answer. Rollback returns each view touched by the
// forward patch to the state it had before it.
func (s *PostService) StartToggleLike(ctx context.Context, postID int64) (*optimistic.Pending[*model.LikeResult], error) {
	me, ok := s.identity.Current()
	if !ok {
		return nil, model.ErrUnauthenticated
	}

	st := s.exec.Store()
	liked, found := view.LikedState(st, postID)
	if !found {
		return nil, model.ErrPostNotCached
	}
	target := !liked

	// Per-view state before the forward patch, for rollback.
	priorFeeds := make(map[cache.Key]bool)
	var priorLookup *bool

	m := optimistic.Mutation[*model.LikeResult]{
		Name: MutationToggleLike,
		Apply: func(st *cache.Store) {
			for _, key := range view.PaginatedKeys(st) {
				feed, ok := cache.GetInfiniteEntry[model.Post](st, key)
				if !ok {
					continue
				}
				if p, ok := view.FindPost(feed, postID); ok {
					priorFeeds[key] = p.LikedByMe
					cache.SetInfiniteEntry(st, key, view.ToggleLike(postID))
				}
			}
			if p, ok := cache.GetEntry[model.Post](st, view.PostKey(postID)); ok && p.ID == postID {
				v := p.LikedByMe
				priorLookup = &v
				cache.SetEntry(st, view.PostKey(postID), view.ToggleLikeOne(postID))
			}
		},
		Call: func(ctx context.Context) (*model.LikeResult, error) {
			return s.api.SetLike(ctx, postID, target)
		},
		Commit: func(st *cache.Store, result *model.LikeResult) {
			for _, key := range view.PaginatedKeys(st) {
				cache.SetInfiniteEntry(st, key, view.AlignLike(postID, result.Liked))
			}
			cache.SetEntry(st, view.PostKey(postID), view.AlignLikeOne(postID, result.Liked))
		},
		Rollback: func(st *cache.Store) {
			for key, prior := range priorFeeds {
				cache.SetInfiniteEntry(st, key, view.AlignLike(postID, prior))
			}
			if priorLookup != nil {
				cache.SetEntry(st, view.PostKey(postID), view.AlignLikeOne(postID, *priorLookup))
			}
		},
		AfterCommit: func(ctx context.Context, result *model.LikeResult) {
			s.sync.publish(ctx, "PostService", queue.NewLikeEvent(s.sync.origin, postID, me.UserID, result.Liked))
		},
	}

	log.Printf("[PostService] ToggleLike: post=%d user=%d liked=%v->%v", postID, me.UserID, liked, target)
	return optimistic.Start(ctx, s.exec, m), nil
}
