package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cvaas/quest-engine/internal/models"
)

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())

	elig, err := s.quests.GetSubmissionEligibility(r.Context(), chi.URLParam(r, "id"), principal.UserID)
	if err != nil {
		respondServiceError(w, r, "check eligibility", err)
		return
	}

	respondJSON(w, http.StatusOK, elig)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal := PrincipalFromContext(r.Context())
	sub, err := s.quests.Submit(r.Context(), chi.URLParam(r, "id"), principal.UserID, req)
	if err != nil {
		respondServiceError(w, r, "submit", err)
		return
	}

	respondJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleListMySubmissions(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())

	subs, err := s.quests.ListUserSubmissions(r.Context(), principal.UserID, r.URL.Query().Get("quest_id"))
	if err != nil {
		respondServiceError(w, r, "list submissions", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"total":       len(subs),
	})
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.quests.GetSubmission(r.Context(), chi.URLParam(r, "id"), PrincipalFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, "get submission", err)
		return
	}

	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.quests.Review(r.Context(), chi.URLParam(r, "id"), PrincipalFromContext(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, "review submission", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	var statuses []models.SubmissionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			if st = strings.TrimSpace(st); st != "" {
				statuses = append(statuses, models.SubmissionStatus(st))
			}
		}
	}

	subs, err := s.quests.ReviewQueue(r.Context(), PrincipalFromContext(r.Context()), statuses...)
	if err != nil {
		respondServiceError(w, r, "list review queue", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"total":       len(subs),
	})
}
