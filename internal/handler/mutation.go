package handler

import (
	"log"
	"net/http"
	"strconv"

	"feedsync/internal/httputil"
	"feedsync/internal/model"
	"feedsync/internal/repository"
)

const (
	mutationListDefaultLimit = 20
	mutationListMaxLimit     = 100
)

type MutationHandler struct {
	mutationRepo repository.MutationRepository
}

// NewMutationHandler creates the handler. A nil repository means the journal
// is disabled.
func NewMutationHandler(mutationRepo repository.MutationRepository) *MutationHandler {
	return &MutationHandler{
		mutationRepo: mutationRepo,
	}
}

// ListFailed handles GET /mutations/failed
// Returns the newest rolled-back writes so the UI can offer a retry.
//
// Query params:
//   - limit: optional, default 20, max 100
func (h *MutationHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	if h.mutationRepo == nil {
		httputil.WriteServiceUnavailable(w, "Mutation journal is not configured")
		return
	}

	limit := mutationListDefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}
	if limit > mutationListMaxLimit {
		limit = mutationListMaxLimit
	}

	records, err := h.mutationRepo.ListRolledBack(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] ListFailed handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list mutations")
		return
	}
	if records == nil {
		records = []model.MutationRecord{}
	}

	httputil.WriteJSON(w, http.StatusOK, model.MutationListResponse{Mutations: records})
}
