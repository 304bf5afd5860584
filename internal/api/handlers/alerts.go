package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/logger"
	"github.com/wonny/credmon/pkg/redis"
)

// AlertHandler serves the alert log and the leaderboard
type AlertHandler struct {
	alerts contracts.AlertRepository
	snaps  contracts.SnapshotRepository
	cache  *redis.Cache
	log    *logger.Logger
}

func NewAlertHandler(alerts contracts.AlertRepository, snaps contracts.SnapshotRepository,
	cache *redis.Cache, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		snaps:  snaps,
		cache:  cache,
		log:    log,
	}
}

func alertQueryParams(r *http.Request) (time.Time, int, error) {
	hours := 24 * 7
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return time.Time{}, 0, errors.New("hours must be a positive integer")
		}
		hours = parsed
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return time.Time{}, 0, errors.New("limit must be a positive integer")
		}
		limit = parsed
	}
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour), limit, nil
}

// EntityAlerts returns one ticker's alerts
func (h *AlertHandler) EntityAlerts(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)
	since, limit, err := alertQueryParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.alerts.List(r.Context(), ticker, since, limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list entity alerts")
		respondError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ticker": ticker, "alerts": alerts})
}

// AllAlerts returns recent alerts across all entities
func (h *AlertHandler) AllAlerts(w http.ResponseWriter, r *http.Request) {
	since, limit, err := alertQueryParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.alerts.ListAll(r.Context(), since, limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list alerts")
		respondError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// Acknowledge marks an alert as seen
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	err = h.alerts.Acknowledge(r.Context(), id)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "unknown alert")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("Failed to acknowledge alert")
		respondError(w, http.StatusInternalServerError, "failed to acknowledge alert")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "acknowledged": true})
}

// Leaderboard returns every active entity's latest composite, best first
func (h *AlertHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	var cached []*contracts.ScoreSnapshot
	if hit, _ := h.cache.Get(r.Context(), redis.LeaderboardKey(), &cached); hit {
		respondJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": cached})
		return
	}

	snaps, err := h.snaps.LatestAcrossActive(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to load leaderboard")
		respondError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	h.cache.Set(r.Context(), redis.LeaderboardKey(), snaps, redis.TTLLeaderboard)
	respondJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": snaps})
}
