package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/internal/ingest"
	"github.com/wonny/credmon/internal/scoring"
	"github.com/wonny/credmon/pkg/logger"
	"github.com/wonny/credmon/pkg/redis"
)

// ScoreHandler serves entity scores, histories and cycle triggers
type ScoreHandler struct {
	runner   *ingest.Runner
	entities contracts.EntityRepository
	snaps    contracts.SnapshotRepository
	cache    *redis.Cache
	log      *logger.Logger
}

func NewScoreHandler(runner *ingest.Runner, entities contracts.EntityRepository,
	snaps contracts.SnapshotRepository, cache *redis.Cache, log *logger.Logger) *ScoreHandler {
	return &ScoreHandler{
		runner:   runner,
		entities: entities,
		snaps:    snaps,
		cache:    cache,
		log:      log,
	}
}

func tickerParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))
}

// scoreResponse pairs a snapshot with the attribution that explains it
type scoreResponse struct {
	Snapshot    *contracts.ScoreSnapshot `json:"snapshot"`
	Attribution *contracts.Attribution   `json:"attribution"`
}

// TriggerCycle runs one scoring cycle for the ticker, registering the
// entity on first use
func (h *ScoreHandler) TriggerCycle(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	result, err := h.runner.RunCycle(r.Context(), ticker, body.Name)
	if err != nil {
		if errors.Is(err, ingest.ErrCycleInProgress) {
			respondError(w, http.StatusConflict, "cycle already in progress")
			return
		}
		h.log.WithError(err).Error("Cycle trigger failed")
		respondError(w, http.StatusInternalServerError, "cycle failed")
		return
	}

	if result.Snapshot != nil {
		h.cache.Delete(r.Context(), redis.LatestScoreKey(ticker))
		h.cache.Delete(r.Context(), redis.LeaderboardKey())
	}

	respondJSON(w, http.StatusOK, result)
}

// GetScore returns the latest snapshot and attribution
func (h *ScoreHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	var cached scoreResponse
	if hit, _ := h.cache.Get(r.Context(), redis.LatestScoreKey(ticker), &cached); hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	snap, attr, err := h.snaps.Latest(r.Context(), ticker)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no score for ticker")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("Failed to load latest score")
		respondError(w, http.StatusInternalServerError, "failed to load score")
		return
	}

	resp := scoreResponse{Snapshot: snap, Attribution: attr}
	h.cache.Set(r.Context(), redis.LatestScoreKey(ticker), resp, redis.TTLScore)
	respondJSON(w, http.StatusOK, resp)
}

// historyResponse carries the snapshot series and its trend summary
type historyResponse struct {
	Ticker    string                     `json:"ticker"`
	Snapshots []*contracts.ScoreSnapshot `json:"snapshots"`
	Trend     scoring.TrendSummary       `json:"trend"`
}

// GetHistory returns the snapshot series for a lookback window
func (h *ScoreHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	hours := 24 * 30
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = parsed
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	snaps, err := h.snaps.History(r.Context(), ticker, since, limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to load score history")
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	respondJSON(w, http.StatusOK, historyResponse{
		Ticker:    ticker,
		Snapshots: snaps,
		Trend:     scoring.Summarize(snaps),
	})
}

// ListEntities returns all active entities
func (h *ScoreHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.entities.ListActive(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to list entities")
		respondError(w, http.StatusInternalServerError, "failed to list entities")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entities": entities})
}

// Deactivate removes an entity from the active sweep
func (h *ScoreHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	err := h.entities.Deactivate(r.Context(), ticker)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "unknown ticker")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("Failed to deactivate entity")
		respondError(w, http.StatusInternalServerError, "failed to deactivate entity")
		return
	}

	h.cache.Delete(r.Context(), redis.LeaderboardKey())
	respondJSON(w, http.StatusOK, map[string]string{"ticker": ticker, "status": "deactivated"})
}
