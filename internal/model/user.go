package model

// UserSummary is the profile summary view of a user.
// IsFollowing is only meaningful when the summary belongs to someone other
// than the current user.
type UserSummary struct {
	ID             int64   `json:"id"`
	DisplayName    *string `json:"display_name"`
	AvatarURL      *string `json:"avatar_url"`
	PostCount      int     `json:"post_count"`
	FollowerCount  int     `json:"follower_count"`
	FollowingCount int     `json:"following_count"`
	IsFollowing    bool    `json:"is_following"`
}
