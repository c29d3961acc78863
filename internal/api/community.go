package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

type shareRequest struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
}

type followRequest struct {
	Email string `json:"email"`
}

type commentRequest struct {
	Body string `json:"body"`
}

type commentResponse struct {
	Comment        *models.PostComment `json:"comment"`
	AuthorNotified bool                `json:"author_notified"`
}

// SharePosition handles POST /positions/{id}/share
func (h *Handler) SharePosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)

	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req shareRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	position, err := h.positions.Get(ctx, user, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.sharing.ShareToCommunity(ctx, user, position, req.Title, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	status := http.StatusCreated
	if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, result)
}

// RetryFanOut handles POST /posts/{id}/fanout/retry
func (h *Handler) RetryFanOut(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.sharing.RetryFanOut(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, result)
}

// ListPosts handles GET /posts?author=&symbol=&following=true&limit=N
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := models.PostFilter{
		AuthorEmail: strings.ToLower(strings.TrimSpace(q.Get("author"))),
		Symbol:      strings.TrimSpace(q.Get("symbol")),
		Limit:       limit,
	}
	if q.Get("following") == "true" {
		filter.FollowedBy = user.Email
	}

	posts, err := h.store.ListCommunityPosts(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, &models.DependencyError{Op: "list community posts", Err: err})
		return
	}
	if posts == nil {
		posts = []*models.CommunityPost{}
	}
	respondJSON(w, http.StatusOK, posts)
}

// GetPost handles GET /posts/{id}
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	post, err := h.store.GetCommunityPostByID(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.respondError(w, r, &models.NotFoundError{Kind: "community post", ID: id})
			return
		}
		h.respondError(w, r, &models.DependencyError{Op: "get community post", Err: err})
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// ListComments handles GET /posts/{id}/comments
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if _, err := h.store.GetCommunityPostByID(r.Context(), id); err != nil {
		if isNotFound(err) {
			h.respondError(w, r, &models.NotFoundError{Kind: "community post", ID: id})
			return
		}
		h.respondError(w, r, &models.DependencyError{Op: "get community post", Err: err})
		return
	}

	comments, err := h.store.ListPostComments(r.Context(), id)
	if err != nil {
		h.respondError(w, r, &models.DependencyError{Op: "list post comments", Err: err})
		return
	}
	if comments == nil {
		comments = []*models.PostComment{}
	}
	respondJSON(w, http.StatusOK, comments)
}

// CommentOnPost handles POST /posts/{id}/comments
func (h *Handler) CommentOnPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.sharing.Comment(r.Context(), userFrom(r.Context()), id, req.Body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, commentResponse{
		Comment:        result.Comment,
		AuthorNotified: result.Notification != nil,
	})
}

// FollowUser handles POST /follows
func (h *Handler) FollowUser(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req followRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	followed := strings.ToLower(strings.TrimSpace(req.Email))
	if followed == "" {
		h.respondError(w, r, &models.ValidationError{Field: "email", Reason: "is required"})
		return
	}
	if followed == user.Email {
		h.respondError(w, r, &models.ValidationError{Field: "email", Reason: "cannot follow yourself"})
		return
	}

	if err := h.store.Follow(r.Context(), user.Email, followed); err != nil {
		h.respondError(w, r, &models.DependencyError{Op: "follow user", Err: err})
		return
	}
	respondJSON(w, http.StatusCreated, models.UserFollow{FollowerEmail: user.Email, FollowedEmail: followed})
}

// UnfollowUser handles DELETE /follows/{email}
func (h *Handler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	followed := strings.ToLower(mux.Vars(r)["email"])

	if err := h.store.Unfollow(r.Context(), user.Email, followed); err != nil {
		if isNotFound(err) {
			h.respondError(w, r, err)
			return
		}
		h.respondError(w, r, &models.DependencyError{Op: "unfollow user", Err: err})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotifications handles GET /notifications?unread=true&limit=N
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.store.ListNotifications(r.Context(), user.Email, unreadOnly, limit)
	if err != nil {
		h.respondError(w, r, &models.DependencyError{Op: "list notifications", Err: err})
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	respondJSON(w, http.StatusOK, notifications)
}

// MarkNotificationRead handles POST /notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.sharing.MarkRead(r.Context(), userFrom(r.Context()), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /notifications/read-all
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.sharing.MarkAllRead(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"marked": count})
}
