package view

import (
	"feedsync/internal/cache"
	"feedsync/internal/model"
)

// ToggleLikeOne flips the like state of a directly looked-up post.
func ToggleLikeOne(postID int64) cache.Updater[model.Post] {
	return func(prior model.Post, ok bool) (model.Post, bool) {
		if !ok || prior.ID != postID {
			return prior, false
		}
		return flipLike(prior), true
	}
}

// AlignLikeOne is AlignLike for the direct post lookup.
func AlignLikeOne(postID int64, liked bool) cache.Updater[model.Post] {
	return func(prior model.Post, ok bool) (model.Post, bool) {
		if !ok || prior.ID != postID || prior.LikedByMe == liked {
			return prior, false
		}
		return flipLike(prior), true
	}
}

// LikedState reports the current user's cached like state for postID. The
// direct lookup wins; otherwise the first resident feed containing the post
// answers. found is false when no resident view holds the post.
func LikedState(s *cache.Store, postID int64) (liked bool, found bool) {
	if p, ok := cache.GetEntry[model.Post](s, PostKey(postID)); ok {
		return p.LikedByMe, true
	}
	for _, key := range PaginatedKeys(s) {
		feed, ok := cache.GetInfiniteEntry[model.Post](s, key)
		if !ok {
			continue
		}
		if p, ok := FindPost(feed, postID); ok {
			return p.LikedByMe, true
		}
	}
	return false, false
}

// FollowState reports the cached follow state of followerID -> followeeID,
// preferring the direct lookup over the followee's profile summary.
func FollowState(s *cache.Store, followerID, followeeID int64) (following bool, found bool) {
	if v, ok := cache.GetEntry[bool](s, FollowStatusKey(followerID, followeeID)); ok {
		return v, true
	}
	if u, ok := cache.GetEntry[model.UserSummary](s, ProfileKey(followeeID)); ok {
		return u.IsFollowing, true
	}
	return false, false
}
