package model

import (
	"time"
	"unicode/utf8"
)

// Post is a post as it appears in cached read-views.
// ID is zero until the server confirms the post; provisional records carry a
// ClientID instead so they can be found again by reconciliation or rollback.
type Post struct {
	ID        int64       `json:"id"`
	ClientID  string      `json:"client_id,omitempty"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Author    UserSummary `json:"author"`
	LikeCount int         `json:"like_count"`
	LikedByMe bool        `json:"liked_by_me"`
}

// Confirmed reports whether the server has assigned an ID to the post.
func (p Post) Confirmed() bool {
	return p.ID != 0
}

// Matches reports whether p is the record identified by either a server ID
// or a provisional client ID.
func (p Post) Matches(id int64, clientID string) bool {
	if id != 0 && p.ID == id {
		return true
	}
	return clientID != "" && p.ClientID == clientID
}

// FeedPage is one page of a paginated post list as returned by the API.
type FeedPage struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Content string `json:"content"`
}

// LikeResult is the authoritative like state after a like/unlike call.
type LikeResult struct {
	PostID int64 `json:"post_id"`
	Liked  bool  `json:"liked"`
}

// Post content limits, counted in Unicode code points.
const (
	MinPostContentLength = 1
	MaxPostContentLength = 140
)

// Validate checks the content length limits.
func (r CreatePostRequest) Validate() error {
	n := utf8.RuneCountInString(r.Content)
	if n < MinPostContentLength {
		return ErrContentEmpty
	}
	if n > MaxPostContentLength {
		return ErrContentTooLong
	}
	return nil
}
