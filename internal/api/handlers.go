package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cvaas/quest-engine/internal/quest"
	"github.com/cvaas/quest-engine/internal/storage"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// serviceErrors maps lifecycle errors to HTTP status and error code
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{quest.ErrNotFound, http.StatusNotFound, "not_found"},
	{quest.ErrAlreadyPending, http.StatusConflict, "already_pending"},
	{quest.ErrAlreadyPassed, http.StatusConflict, "already_passed"},
	{quest.ErrAlreadyReviewed, http.StatusConflict, "already_reviewed"},
	{quest.ErrQuestInactive, http.StatusConflict, "quest_inactive"},
	{quest.ErrScoreBelowThreshold, http.StatusUnprocessableEntity, "score_below_threshold"},
	{quest.ErrScoreRequired, http.StatusUnprocessableEntity, "score_required"},
	{quest.ErrInvalidScore, http.StatusUnprocessableEntity, "invalid_score"},
	{quest.ErrInvalidStatus, http.StatusUnprocessableEntity, "invalid_status"},
	{quest.ErrInvalidContent, http.StatusUnprocessableEntity, "invalid_content"},
	{quest.ErrInvalidQuest, http.StatusUnprocessableEntity, "invalid_quest"},
	{quest.ErrInvalidTimeframe, http.StatusBadRequest, "invalid_timeframe"},
	{quest.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{storage.ErrConflict, http.StatusConflict, "conflict"},
}

// respondServiceError writes the response for an error returned by the
// quest service. Unknown errors are logged and reported as internal.
func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			respondError(w, m.status, m.code, err.Error())
			return
		}
	}

	slog.Error("request failed",
		"operation", op,
		"error", err,
		"path", r.URL.Path,
	)
	respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+op)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if str := r.URL.Query().Get(key); str != "" {
		if v, err := strconv.Atoi(str); err == nil && v >= 0 {
			return v
		}
	}
	return defaultValue
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report := s.health.CheckAll(r.Context())
	if !report.Healthy {
		slog.Warn("readiness check failed", "checks", report.Checks)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(apiResponse{
			Success: false,
			Data:    report,
			Error:   &apiError{Code: "not_ready", Message: "service not ready"},
		}); err != nil {
			slog.Error("failed to encode error response", "error", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": report.Checks,
	})
}
