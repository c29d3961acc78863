package api

import (
	"net/http"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

type featureRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type voteRequest struct {
	VoteType string `json:"vote_type"`
}

type featureStatusRequest struct {
	Status string `json:"status"`
}

// ListFeatureRequests handles GET /feature-requests?status=&sort=votes|newest
func (h *Handler) ListFeatureRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	features, err := h.features.List(r.Context(), userFrom(r.Context()), q.Get("status"), q.Get("sort"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if features == nil {
		features = []*models.FeatureRequest{}
	}
	respondJSON(w, http.StatusOK, features)
}

// SubmitFeatureRequest handles POST /feature-requests
func (h *Handler) SubmitFeatureRequest(w http.ResponseWriter, r *http.Request) {
	var req featureRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	feature, err := h.features.Submit(r.Context(), userFrom(r.Context()), req.Title, req.Description)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, feature)
}

// VoteFeatureRequest handles POST /feature-requests/{id}/vote
func (h *Handler) VoteFeatureRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	feature, err := h.features.Vote(r.Context(), userFrom(r.Context()), id, req.VoteType)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, feature)
}

// SetFeatureRequestStatus handles PUT /feature-requests/{id}/status. Admins only.
func (h *Handler) SetFeatureRequestStatus(w http.ResponseWriter, r *http.Request) {
	if !h.admins[userFrom(r.Context()).Email] {
		respondJSON(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req featureStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.features.SetStatus(r.Context(), id, req.Status); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
