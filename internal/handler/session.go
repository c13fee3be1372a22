package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"feedsync/internal/httputil"
	"feedsync/internal/identity"
	"feedsync/internal/model"
	"feedsync/internal/service"
)

type SessionHandler struct {
	session     *identity.Session
	feedService *service.FeedService
}

func NewSessionHandler(session *identity.Session, feedService *service.FeedService) *SessionHandler {
	return &SessionHandler{
		session:     session,
		feedService: feedService,
	}
}

type signInRequest struct {
	AccessToken string `json:"access_token"`
}

// SignIn handles POST /session
// Installs the access token the remote API issued. Cached views belong to
// the previous user, so they are dropped.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		httputil.WriteBadRequest(w, "access_token is required")
		return
	}

	if err := h.session.SetToken(req.AccessToken); err != nil {
		switch {
		case errors.Is(err, identity.ErrTokenExpired):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
		default:
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid access token")
		}
		return
	}

	h.feedService.Invalidate()

	me, _ := h.session.Current()
	log.Printf("[Session] Signed in: user=%d", me.UserID)
	httputil.WriteJSON(w, http.StatusOK, me)
}

// SignOut handles DELETE /session
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.session.Clear()
	h.feedService.Invalidate()
	log.Printf("[Session] Signed out")
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, ok := h.session.Current()
	if !ok {
		httputil.WriteUnauthorized(w, "Sign in required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, me)
}
