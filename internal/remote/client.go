// Package remote is the HTTP client for the social API the sync daemon
// mirrors. It performs no retries; timeouts are set on the http.Client.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"feedsync/internal/model"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 10 * time.Second

// TokenSource yields the bearer token for outgoing requests.
type TokenSource interface {
	Token() (string, bool)
}

// APIError is a non-2xx response from the API.
// The body follows {"error": {"code": "...", "message": "..."}}.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the remote social API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a client for baseURL. A zero timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// CreatePost handles POST /posts.
func (c *Client) CreatePost(ctx context.Context, content string) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodPost, "/posts", model.CreatePostRequest{Content: content}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// SetLike handles POST /posts/:id/like (liked) and DELETE /posts/:id/like.
func (c *Client) SetLike(ctx context.Context, postID int64, liked bool) (*model.LikeResult, error) {
	method := http.MethodPost
	if !liked {
		method = http.MethodDelete
	}

	var body struct {
		Liked *bool `json:"liked"`
	}
	if err := c.do(ctx, method, fmt.Sprintf("/posts/%d/like", postID), nil, &body); err != nil {
		return nil, err
	}

	result := &model.LikeResult{PostID: postID, Liked: liked}
	if body.Liked != nil {
		result.Liked = *body.Liked
	}
	return result, nil
}

// SetFollow handles POST /users/:id/follow (follow) and DELETE /users/:id/follow.
func (c *Client) SetFollow(ctx context.Context, followerID, followeeID int64, follow bool) (*model.FollowResult, error) {
	method := http.MethodPost
	if !follow {
		method = http.MethodDelete
	}

	var body struct {
		Following *bool `json:"following"`
	}
	if err := c.do(ctx, method, fmt.Sprintf("/users/%d/follow", followeeID), nil, &body); err != nil {
		return nil, err
	}

	result := &model.FollowResult{FollowerID: followerID, FolloweeID: followeeID, Following: follow}
	if body.Following != nil {
		result.Following = *body.Following
	}
	return result, nil
}

// GetFeed handles GET /feed.
func (c *Client) GetFeed(ctx context.Context, cursor *string, limit int) (*model.FeedPage, error) {
	var page model.FeedPage
	if err := c.do(ctx, http.MethodGet, "/feed"+pageQuery(cursor, limit), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetUserPosts handles GET /users/:id/posts.
func (c *Client) GetUserPosts(ctx context.Context, userID int64, cursor *string, limit int) (*model.FeedPage, error) {
	var page model.FeedPage
	path := fmt.Sprintf("/users/%d/posts", userID) + pageQuery(cursor, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPost handles GET /posts/:id.
func (c *Client) GetPost(ctx context.Context, postID int64) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetProfile handles GET /users/:id.
func (c *Client) GetProfile(ctx context.Context, userID int64) (*model.UserSummary, error) {
	var profile model.UserSummary
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// IsFollowing handles GET /users/:follower/following/:followee.
func (c *Client) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var resp model.FollowStatusResponse
	path := fmt.Sprintf("/users/%d/following/%d", followerID, followeeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.IsFollowing, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	startTime := time.Now()

	var bodyReader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[Remote] %s %s FAILED: err=%v", method, path, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log.Printf("[Remote] %s %s status=%d duration=%v", method, path, resp.StatusCode, time.Since(startTime))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error.Code != "" {
			apiErr.Code = body.Error.Code
		}
		if body.Error.Message != "" {
			apiErr.Message = body.Error.Message
		}
	}
	return apiErr
}

func pageQuery(cursor *string, limit int) string {
	q := url.Values{}
	if cursor != nil && *cursor != "" {
		q.Set("cursor", *cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
