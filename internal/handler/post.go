package handler

import (
	"encoding/json"
	"net/http"

	"feedsync/internal/httputil"
	"feedsync/internal/model"
	"feedsync/internal/service"
)

type PostHandler struct {
	postService *service.PostService
	feedService *service.FeedService
}

func NewPostHandler(postService *service.PostService, feedService *service.FeedService) *PostHandler {
	return &PostHandler{
		postService: postService,
		feedService: feedService,
	}
}

// Create handles POST /posts
// The post appears in the cached feeds before the remote call returns.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	pending, err := h.postService.StartCreatePost(r.Context(), req.Content)
	if err != nil {
		writeServiceError(w, err, "create post")
		return
	}
	writeMutationOutcome(w, r, pending, "create post", http.StatusCreated)
}

// GetByID handles GET /posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	post, err := h.feedService.LoadPost(r.Context(), postID)
	if err != nil {
		writeServiceError(w, err, "get post")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// ToggleLike handles POST /posts/{id}/like
// Likes or unlikes depending on the cached state.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	pending, err := h.postService.StartToggleLike(r.Context(), postID)
	if err != nil {
		writeServiceError(w, err, "toggle like")
		return
	}
	writeMutationOutcome(w, r, pending, "toggle like", http.StatusOK)
}
