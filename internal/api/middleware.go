package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

const (
	headerUserEmail = "X-User-Email"
	headerUserName  = "X-User-Name"
)

type userKey struct{}

func withUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func userFrom(ctx context.Context) models.User {
	u, _ := ctx.Value(userKey{}).(models.User)
	return u
}

// Identify resolves the acting user from the identity headers set by the upstream
// auth proxy and loads the stored plan. Requests without an identity are rejected.
func (h *Handler) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserEmail)))
		if email == "" {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: headerUserEmail + " header is required"})
			return
		}

		user, err := h.store.EnsureUser(r.Context(), email, strings.TrimSpace(r.Header.Get(headerUserName)))
		if err != nil {
			h.respondError(w, r, &models.DependencyError{Op: "load user", Err: err})
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), *user)))
	})
}
