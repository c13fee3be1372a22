// Package view holds the query keys of every cached read-view and the pure
// patchers that fold a write into each view's cached shape.
package view

import (
	"encoding/json"
	"fmt"

	"feedsync/internal/cache"
	"feedsync/internal/model"
)

// Query names, one per remote read procedure.
const (
	QueryFeed        = "post.infiniteFeed"
	QueryProfileFeed = "post.infiniteProfileFeed"
	QueryPost        = "post.getPost"
	QueryProfile     = "user.getUserProfile"
	QueryIsFollowing = "user.isFollowing"
)

// PaginatedQueries lists the queries cached as InfiniteData[model.Post].
var PaginatedQueries = []string{QueryFeed, QueryProfileFeed}

// Feed is the cached shape of a paginated post list.
type Feed = cache.InfiniteData[model.Post]

// FeedPage is one page of Feed.
type FeedPage = cache.Page[model.Post]

type userParams struct {
	UserID int64 `json:"userId"`
}

type postParams struct {
	PostID int64 `json:"postId"`
}

type followParams struct {
	FollowerID int64 `json:"followerId"`
	FolloweeID int64 `json:"followeeId"`
}

// FeedKey is the global feed; it takes no parameters.
func FeedKey() cache.Key {
	return cache.NewKey(QueryFeed, struct{}{})
}

// ProfileFeedKey is the feed of posts authored by userID.
func ProfileFeedKey(userID int64) cache.Key {
	return cache.NewKey(QueryProfileFeed, userParams{UserID: userID})
}

// PostKey is the direct lookup of a single post.
func PostKey(postID int64) cache.Key {
	return cache.NewKey(QueryPost, postParams{PostID: postID})
}

// ProfileKey is the profile summary of userID.
func ProfileKey(userID int64) cache.Key {
	return cache.NewKey(QueryProfile, userParams{UserID: userID})
}

// FollowStatusKey is the follower -> followee boolean lookup.
func FollowStatusKey(followerID, followeeID int64) cache.Key {
	return cache.NewKey(QueryIsFollowing, followParams{FollowerID: followerID, FolloweeID: followeeID})
}

// PaginatedKeys returns every resident paginated post view.
func PaginatedKeys(s *cache.Store) []cache.Key {
	var keys []cache.Key
	for _, q := range PaginatedQueries {
		keys = append(keys, s.Keys(q)...)
	}
	return keys
}

// KeyUserID extracts the userId parameter of a profile or profile-feed key.
func KeyUserID(k cache.Key) (int64, error) {
	var p userParams
	if err := json.Unmarshal([]byte(k.Params), &p); err != nil {
		return 0, fmt.Errorf("parse %s params: %w", k.Query, err)
	}
	return p.UserID, nil
}

// KeyPostID extracts the postId parameter of a post lookup key.
func KeyPostID(k cache.Key) (int64, error) {
	var p postParams
	if err := json.Unmarshal([]byte(k.Params), &p); err != nil {
		return 0, fmt.Errorf("parse %s params: %w", k.Query, err)
	}
	return p.PostID, nil
}

// KeyFollowPair extracts the follower and followee of a follow-status key.
func KeyFollowPair(k cache.Key) (followerID, followeeID int64, err error) {
	var p followParams
	if err := json.Unmarshal([]byte(k.Params), &p); err != nil {
		return 0, 0, fmt.Errorf("parse %s params: %w", k.Query, err)
	}
	return p.FollowerID, p.FolloweeID, nil
}
