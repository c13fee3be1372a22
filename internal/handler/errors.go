package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"feedsync/internal/httputil"
	"feedsync/internal/model"
	"feedsync/internal/remote"
)

// writeServiceError maps service errors onto the API's error envelope.
// action names the operation in the log line and the fallback message.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	var rejection *model.RemoteRejection
	var apiErr *remote.APIError

	switch {
	case errors.Is(err, model.ErrValidation):
		httputil.WriteBadRequestWithCode(w, model.CodeValidation, err.Error())
	case errors.Is(err, model.ErrUnauthenticated):
		httputil.WriteUnauthorized(w, "Sign in required")
	case errors.Is(err, model.ErrPrecondition):
		httputil.WriteError(w, http.StatusNotFound, model.CodeNotCached, err.Error())
	case errors.As(err, &rejection):
		message := rejection.Err.Error()
		if errors.As(err, &apiErr) {
			message = apiErr.Message
		}
		log.Printf("[Handler] %s rejected by remote: %v", action, err)
		httputil.WriteBadGateway(w, model.CodeRemoteRejected, message)
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		httputil.WriteNotFound(w, apiErr.Message)
	case errors.As(err, &apiErr):
		httputil.WriteBadGateway(w, apiErr.Code, apiErr.Message)
	default:
		log.Printf("[ERROR] %s handler: err=%v", action, err)
		httputil.WriteInternalError(w, "Failed to "+action)
	}
}

// parseIDParam reads a positive int64 URL parameter.
func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// wantsWait reports whether the caller asked to wait for the remote outcome.
// Waiting is the default; ?wait=false returns as soon as the local patch is
// applied.
func wantsWait(r *http.Request) bool {
	return r.URL.Query().Get("wait") != "false"
}

// pendingResponse is returned for mutations accepted with ?wait=false.
type pendingResponse struct {
	MutationID string `json:"mutation_id"`
	Mutation   string `json:"mutation"`
	State      string `json:"state"`
}
