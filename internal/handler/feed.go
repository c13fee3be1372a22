package handler

import (
	"net/http"

	"feedsync/internal/httputil"
	"feedsync/internal/model"
	"feedsync/internal/service"
	"feedsync/internal/view"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /feed
// Returns every loaded page of the global feed, fetching the first on a miss.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.feedService.LoadFeed(r.Context())
	if err != nil {
		writeServiceError(w, err, "get feed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feedResponse(feed))
}

// LoadMoreFeed handles POST /feed/more
func (h *FeedHandler) LoadMoreFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.feedService.LoadMoreFeed(r.Context())
	if err != nil {
		writeServiceError(w, err, "load more feed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feedResponse(feed))
}

// GetUserPosts handles GET /users/{id}/posts
func (h *FeedHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	feed, err := h.feedService.LoadProfileFeed(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "get user posts")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feedResponse(feed))
}

// LoadMoreUserPosts handles POST /users/{id}/posts/more
func (h *FeedHandler) LoadMoreUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	feed, err := h.feedService.LoadMoreProfileFeed(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "load more user posts")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feedResponse(feed))
}

// feedResponse flattens the cached pages into the API's page shape.
func feedResponse(feed *view.Feed) model.FeedPage {
	posts := feed.Items()
	if posts == nil {
		posts = []model.Post{}
	}
	cursor := feed.LastCursor()
	return model.FeedPage{
		Posts:      posts,
		NextCursor: cursor,
		HasMore:    cursor != nil,
	}
}
