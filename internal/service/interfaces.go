package service

import (
	"context"

	"feedsync/internal/model"
)

// PostAPI is the remote side of post mutations.
type PostAPI interface {
	CreatePost(ctx context.Context, content string) (*model.Post, error)
	SetLike(ctx context.Context, postID int64, liked bool) (*model.LikeResult, error)
}

// FollowAPI is the remote side of follow mutations.
type FollowAPI interface {
	SetFollow(ctx context.Context, followerID, followeeID int64, follow bool) (*model.FollowResult, error)
}

// QueryAPI is the remote side of every cached read-view.
type QueryAPI interface {
	GetFeed(ctx context.Context, cursor *string, limit int) (*model.FeedPage, error)
	GetUserPosts(ctx context.Context, userID int64, cursor *string, limit int) (*model.FeedPage, error)
	GetPost(ctx context.Context, postID int64) (*model.Post, error)
	GetProfile(ctx context.Context, userID int64) (*model.UserSummary, error)
	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)
}
