package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"feedsync/internal/cache"
	"feedsync/internal/identity"
	"feedsync/internal/model"
	"feedsync/internal/view"
)

const (
	// FeedDefaultLimit is the default number of posts per page
	FeedDefaultLimit = 10

	// FeedMaxLimit is the maximum number of posts per page
	FeedMaxLimit = 50
)

// FeedService loads read-views into the cache and refetches them. Reads are
// served from the cache when resident and fetched on a miss.
type FeedService struct {
	store    *cache.Store
	api      QueryAPI
	identity identity.Provider
	limit    int
}

func NewFeedService(store *cache.Store, api QueryAPI, identity identity.Provider, limit int) *FeedService {
	if limit <= 0 {
		limit = FeedDefaultLimit
	}
	if limit > FeedMaxLimit {
		limit = FeedMaxLimit
	}
	return &FeedService{
		store:    store,
		api:      api,
		identity: identity,
		limit:    limit,
	}
}

// LoadFeed returns the global feed, fetching its first page on a miss.
func (s *FeedService) LoadFeed(ctx context.Context) (*view.Feed, error) {
	return s.loadPaginated(ctx, view.FeedKey(), func(ctx context.Context, cursor *string) (*model.FeedPage, error) {
		return s.api.GetFeed(ctx, cursor, s.limit)
	})
}

// LoadMoreFeed appends the next page of the global feed.
func (s *FeedService) LoadMoreFeed(ctx context.Context) (*view.Feed, error) {
	return s.loadMore(ctx, view.FeedKey(), func(ctx context.Context, cursor *string) (*model.FeedPage, error) {
		return s.api.GetFeed(ctx, cursor, s.limit)
	})
}

// LoadProfileFeed returns the posts authored by userID.
func (s *FeedService) LoadProfileFeed(ctx context.Context, userID int64) (*view.Feed, error) {
	return s.loadPaginated(ctx, view.ProfileFeedKey(userID), s.userPosts(userID))
}

// LoadMoreProfileFeed appends the next page of userID's posts.
func (s *FeedService) LoadMoreProfileFeed(ctx context.Context, userID int64) (*view.Feed, error) {
	return s.loadMore(ctx, view.ProfileFeedKey(userID), s.userPosts(userID))
}

// LoadProfile returns the profile summary of userID.
func (s *FeedService) LoadProfile(ctx context.Context, userID int64) (model.UserSummary, error) {
	key := view.ProfileKey(userID)
	if u, ok := cache.GetEntry[model.UserSummary](s.store, key); ok {
		return u, nil
	}
	return s.refetchProfile(ctx, key, userID)
}

// LoadPost returns a single post.
func (s *FeedService) LoadPost(ctx context.Context, postID int64) (model.Post, error) {
	key := view.PostKey(postID)
	if p, ok := cache.GetEntry[model.Post](s.store, key); ok {
		return p, nil
	}
	return s.refetchPost(ctx, key, postID)
}

// LoadFollowStatus reports whether the current user follows followeeID.
func (s *FeedService) LoadFollowStatus(ctx context.Context, followeeID int64) (bool, error) {
	me, ok := s.identity.Current()
	if !ok {
		return false, model.ErrUnauthenticated
	}
	key := view.FollowStatusKey(me.UserID, followeeID)
	if v, ok := cache.GetEntry[bool](s.store, key); ok {
		return v, nil
	}
	return s.refetchFollowStatus(ctx, key, me.UserID, followeeID)
}

// Refetch reloads one cached view wholesale. A paginated view is reloaded
// with as many pages as it currently holds.
func (s *FeedService) Refetch(ctx context.Context, key cache.Key) error {
	switch key.Query {
	case view.QueryFeed:
		return s.refetchPaginated(ctx, key, func(ctx context.Context, cursor *string) (*model.FeedPage, error) {
			return s.api.GetFeed(ctx, cursor, s.limit)
		})
	case view.QueryProfileFeed:
		userID, err := view.KeyUserID(key)
		if err != nil {
			return err
		}
		return s.refetchPaginated(ctx, key, s.userPosts(userID))
	case view.QueryProfile:
		userID, err := view.KeyUserID(key)
		if err != nil {
			return err
		}
		_, err = s.refetchProfile(ctx, key, userID)
		return err
	case view.QueryPost:
		postID, err := view.KeyPostID(key)
		if err != nil {
			return err
		}
		_, err = s.refetchPost(ctx, key, postID)
		return err
	case view.QueryIsFollowing:
		followerID, followeeID, err := view.KeyFollowPair(key)
		if err != nil {
			return err
		}
		_, err = s.refetchFollowStatus(ctx, key, followerID, followeeID)
		return err
	default:
		return fmt.Errorf("refetch: unknown query %q", key.Query)
	}
}

// Invalidate drops every cached view, e.g. on sign-out.
func (s *FeedService) Invalidate() {
	s.store.Clear()
	log.Printf("[FeedService] Cache invalidated")
}

type pageFetcher func(ctx context.Context, cursor *string) (*model.FeedPage, error)

func (s *FeedService) userPosts(userID int64) pageFetcher {
	return func(ctx context.Context, cursor *string) (*model.FeedPage, error) {
		return s.api.GetUserPosts(ctx, userID, cursor, s.limit)
	}
}

func (s *FeedService) loadPaginated(ctx context.Context, key cache.Key, fetch pageFetcher) (*view.Feed, error) {
	if feed, ok := cache.GetInfiniteEntry[model.Post](s.store, key); ok {
		return feed, nil
	}

	startTime := time.Now()
	epoch := s.store.Epoch()
	resp, err := fetch(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key.Query, err)
	}

	feed := &view.Feed{Pages: []view.FeedPage{view.PageFromResponse(resp)}}
	s.put(epoch, key, feed)

	log.Printf("[FeedService] Load OK: key=%s posts=%d hasMore=%v duration=%v",
		key, len(resp.Posts), resp.HasMore, time.Since(startTime))
	return feed, nil
}

func (s *FeedService) loadMore(ctx context.Context, key cache.Key, fetch pageFetcher) (*view.Feed, error) {
	feed, ok := cache.GetInfiniteEntry[model.Post](s.store, key)
	if !ok {
		return s.loadPaginated(ctx, key, fetch)
	}
	cursor := feed.LastCursor()
	if cursor == nil {
		// Already at the end.
		return feed, nil
	}

	startTime := time.Now()
	epoch := s.store.Epoch()
	resp, err := fetch(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key.Query, err)
	}

	page := view.PageFromResponse(resp)
	s.store.Within(epoch, func(st *cache.Store) {
		cache.SetInfiniteEntry(st, key, view.AppendPage(page))
	})
	next, ok := cache.GetInfiniteEntry[model.Post](s.store, key)
	if !ok {
		// Cleared mid-fetch; answer from the entry the caller started with.
		next, _ = view.AppendPage(page)(feed, true)
	}

	log.Printf("[FeedService] LoadMore OK: key=%s posts=%d hasMore=%v duration=%v",
		key, len(resp.Posts), resp.HasMore, time.Since(startTime))
	return next, nil
}

func (s *FeedService) refetchPaginated(ctx context.Context, key cache.Key, fetch pageFetcher) error {
	startTime := time.Now()
	epoch := s.store.Epoch()

	want := 1
	if feed, ok := cache.GetInfiniteEntry[model.Post](s.store, key); ok && len(feed.Pages) > 0 {
		want = len(feed.Pages)
	}

	var pages []view.FeedPage
	var cursor *string
	for len(pages) < want {
		resp, err := fetch(ctx, cursor)
		if err != nil {
			return fmt.Errorf("refetch %s: %w", key.Query, err)
		}
		page := view.PageFromResponse(resp)
		pages = append(pages, page)
		if page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	s.put(epoch, key, &view.Feed{Pages: pages})
	log.Printf("[FeedService] Refetch OK: key=%s pages=%d duration=%v", key, len(pages), time.Since(startTime))
	return nil
}

func (s *FeedService) refetchProfile(ctx context.Context, key cache.Key, userID int64) (model.UserSummary, error) {
	epoch := s.store.Epoch()
	u, err := s.api.GetProfile(ctx, userID)
	if err != nil {
		return model.UserSummary{}, fmt.Errorf("fetch profile %d: %w", userID, err)
	}
	s.put(epoch, key, *u)
	log.Printf("[FeedService] Profile loaded: user=%d", userID)
	return *u, nil
}

func (s *FeedService) refetchPost(ctx context.Context, key cache.Key, postID int64) (model.Post, error) {
	epoch := s.store.Epoch()
	p, err := s.api.GetPost(ctx, postID)
	if err != nil {
		return model.Post{}, fmt.Errorf("fetch post %d: %w", postID, err)
	}
	s.put(epoch, key, *p)
	log.Printf("[FeedService] Post loaded: post=%d", postID)
	return *p, nil
}

func (s *FeedService) refetchFollowStatus(ctx context.Context, key cache.Key, followerID, followeeID int64) (bool, error) {
	epoch := s.store.Epoch()
	v, err := s.api.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("fetch follow status %d->%d: %w", followerID, followeeID, err)
	}
	s.put(epoch, key, v)
	log.Printf("[FeedService] Follow status loaded: follower=%d followee=%d following=%v", followerID, followeeID, v)
	return v, nil
}

// put stores a fetch result unless the cache was cleared while it was in
// flight, e.g. by a sign-out.
func (s *FeedService) put(epoch uint64, key cache.Key, value any) {
	if !s.store.Within(epoch, func(st *cache.Store) { st.Put(key, value) }) {
		log.Printf("[FeedService] Fetch result discarded, cache cleared: key=%s", key)
	}
}
