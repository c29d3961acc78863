package api

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(handler.Identify)

	// Position routes
	api.HandleFunc("/positions", handler.ListPositions).Methods("GET")
	api.HandleFunc("/positions", handler.CreatePosition).Methods("POST")
	api.HandleFunc("/positions/{id:[0-9]+}", handler.GetPosition).Methods("GET")
	api.HandleFunc("/positions/{id:[0-9]+}", handler.EditPosition).Methods("PATCH")
	api.HandleFunc("/positions/{id:[0-9]+}/close", handler.ClosePosition).Methods("POST")
	api.HandleFunc("/positions/{id:[0-9]+}/roll", handler.RollPosition).Methods("POST")
	api.HandleFunc("/positions/{id:[0-9]+}/roll/retry", handler.RetryRoll).Methods("POST")
	api.HandleFunc("/positions/{id:[0-9]+}/share", handler.SharePosition).Methods("POST")

	// Usage and performance
	api.HandleFunc("/limits", handler.GetLimits).Methods("GET")
	api.HandleFunc("/performance", handler.GetPerformance).Methods("GET")

	// Community routes
	api.HandleFunc("/follows", handler.FollowUser).Methods("POST")
	api.HandleFunc("/follows/{email}", handler.UnfollowUser).Methods("DELETE")
	api.HandleFunc("/posts", handler.ListPosts).Methods("GET")
	api.HandleFunc("/posts/{id:[0-9]+}", handler.GetPost).Methods("GET")
	api.HandleFunc("/posts/{id:[0-9]+}/comments", handler.ListComments).Methods("GET")
	api.HandleFunc("/posts/{id:[0-9]+}/comments", handler.CommentOnPost).Methods("POST")
	api.HandleFunc("/posts/{id:[0-9]+}/fanout/retry", handler.RetryFanOut).Methods("POST")
	api.HandleFunc("/notifications", handler.ListNotifications).Methods("GET")
	api.HandleFunc("/notifications/read-all", handler.MarkAllNotificationsRead).Methods("POST")
	api.HandleFunc("/notifications/{id:[0-9]+}/read", handler.MarkNotificationRead).Methods("POST")

	// Journal routes
	api.HandleFunc("/journal", handler.ListJournalEntries).Methods("GET")
	api.HandleFunc("/journal", handler.CreateJournalEntry).Methods("POST")
	api.HandleFunc("/journal/trades", handler.TradeJournal).Methods("GET")
	api.HandleFunc("/journal/{id:[0-9]+}", handler.GetJournalEntry).Methods("GET")
	api.HandleFunc("/journal/{id:[0-9]+}", handler.UpdateJournalEntry).Methods("PATCH")
	api.HandleFunc("/journal/{id:[0-9]+}", handler.DeleteJournalEntry).Methods("DELETE")

	// Feature request routes
	api.HandleFunc("/feature-requests", handler.ListFeatureRequests).Methods("GET")
	api.HandleFunc("/feature-requests", handler.SubmitFeatureRequest).Methods("POST")
	api.HandleFunc("/feature-requests/{id:[0-9]+}/vote", handler.VoteFeatureRequest).Methods("POST")
	api.HandleFunc("/feature-requests/{id:[0-9]+}/status", handler.SetFeatureRequestStatus).Methods("PUT")

	return r
}

// Wrap adds access logging, panic recovery and CORS around the router
func Wrap(router http.Handler, accessLog io.Writer, allowedOrigins []string) http.Handler {
	var h http.Handler = router
	if len(allowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(allowedOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", headerUserEmail, headerUserName}),
		)(h)
	}
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return handlers.CombinedLoggingHandler(accessLog, h)
}
