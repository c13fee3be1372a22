package model

// FollowResult is the authoritative follow state after a follow/unfollow call.
type FollowResult struct {
	FollowerID int64 `json:"follower_id"`
	FolloweeID int64 `json:"followee_id"`
	Following  bool  `json:"following"`
}

// FollowStatusResponse is the body of the follow-status lookup.
type FollowStatusResponse struct {
	IsFollowing bool `json:"is_following"`
}
