package api

import (
	"net/http"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// ListJournalEntries handles GET /journal?type=&tag=&q=&limit=N
func (h *Handler) ListJournalEntries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	q := r.URL.Query()

	entries, err := h.journal.List(r.Context(), userFrom(r.Context()), models.JournalFilter{
		EntryType: q.Get("type"),
		Tag:       q.Get("tag"),
		Search:    q.Get("q"),
		Limit:     limit,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*models.JournalEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// CreateJournalEntry handles POST /journal
func (h *Handler) CreateJournalEntry(w http.ResponseWriter, r *http.Request) {
	var req models.JournalEntryInput
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	entry, err := h.journal.Create(r.Context(), userFrom(r.Context()), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// GetJournalEntry handles GET /journal/{id}
func (h *Handler) GetJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	entry, err := h.journal.Get(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// UpdateJournalEntry handles PATCH /journal/{id}
func (h *Handler) UpdateJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req models.JournalEntryInput
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	entry, err := h.journal.Update(r.Context(), userFrom(r.Context()), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// DeleteJournalEntry handles DELETE /journal/{id}
func (h *Handler) DeleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.journal.Delete(r.Context(), userFrom(r.Context()), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TradeJournal handles GET /journal/trades?q=
func (h *Handler) TradeJournal(w http.ResponseWriter, r *http.Request) {
	positions, err := h.journal.TradeJournal(r.Context(), userFrom(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, positions)
}
