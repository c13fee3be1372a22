package handler

import (
	"net/http"

	"feedsync/internal/httputil"
	"feedsync/internal/model"
	"feedsync/internal/optimistic"
	"feedsync/internal/service"
)

type UserHandler struct {
	feedService   *service.FeedService
	followService *service.FollowService
}

func NewUserHandler(feedService *service.FeedService, followService *service.FollowService) *UserHandler {
	return &UserHandler{
		feedService:   feedService,
		followService: followService,
	}
}

// GetProfile handles GET /users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	profile, err := h.feedService.LoadProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "get profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// GetFollowStatus handles GET /users/{id}/follow-status
func (h *UserHandler) GetFollowStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	following, err := h.feedService.LoadFollowStatus(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "get follow status")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.FollowStatusResponse{IsFollowing: following})
}

// ToggleFollow handles POST /users/{id}/follow
// Follows or unfollows depending on the cached state.
func (h *UserHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	pending, err := h.followService.StartToggleFollow(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "toggle follow")
		return
	}
	writeMutationOutcome(w, r, pending, "toggle follow", http.StatusOK)
}

// writeMutationOutcome either waits for the remote outcome or reports the
// mutation as pending, per ?wait.
func writeMutationOutcome[R any](w http.ResponseWriter, r *http.Request, pending *optimistic.Pending[R], action string, status int) {
	if !wantsWait(r) {
		httputil.WriteJSON(w, http.StatusAccepted, pendingResponse{
			MutationID: pending.ID.String(),
			Mutation:   pending.Name,
			State:      pending.State().String(),
		})
		return
	}

	result, err := pending.Wait(r.Context())
	if err != nil {
		writeServiceError(w, err, action)
		return
	}
	httputil.WriteJSON(w, status, result)
}
