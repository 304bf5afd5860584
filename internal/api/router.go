package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/credmon/internal/api/handlers"
	"github.com/wonny/credmon/internal/api/ws"
	"github.com/wonny/credmon/pkg/database"
	"github.com/wonny/credmon/pkg/logger"
)

// NewRouter wires all HTTP routes. Routing configuration lives here and
// nowhere else.
func NewRouter(scores *handlers.ScoreHandler, alerts *handlers.AlertHandler,
	hub *ws.Hub, db *database.DB, log *logger.Logger) http.Handler {

	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler(db)).Methods("GET")
	r.HandleFunc("/ws", hub.ServeWS)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/entities", scores.ListEntities).Methods("GET")
	api.HandleFunc("/entities/{ticker}/cycle", scores.TriggerCycle).Methods("POST")
	api.HandleFunc("/entities/{ticker}/score", scores.GetScore).Methods("GET")
	api.HandleFunc("/entities/{ticker}/history", scores.GetHistory).Methods("GET")
	api.HandleFunc("/entities/{ticker}/alerts", alerts.EntityAlerts).Methods("GET")
	api.HandleFunc("/entities/{ticker}", scores.Deactivate).Methods("DELETE")

	api.HandleFunc("/alerts", alerts.AllAlerts).Methods("GET")
	api.HandleFunc("/alerts/{id}/ack", alerts.Acknowledge).Methods("POST")
	api.HandleFunc("/leaderboard", alerts.Leaderboard).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthHandler reports service and database health
func healthHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := db.HealthCheck(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"service":  "credmon-api",
			"database": status,
		})
	}
}

// loggingMiddleware logs completed HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware converts handler panics into 500 responses
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
