package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvaas/quest-engine/internal/models"
)

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	q := r.URL.Query()

	filters := models.QuestFilters{
		Category:   models.QuestCategory(q.Get("category")),
		Difficulty: models.Difficulty(q.Get("difficulty")),
		CreatorID:  q.Get("creator_id"),
		ActiveOnly: true,
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}

	// Authors may list their own inactive quests
	if q.Get("include_inactive") == "true" && (principal.IsAdmin() || filters.CreatorID == principal.UserID) {
		filters.ActiveOnly = false
	}

	quests, err := s.quests.ListQuests(r.Context(), filters)
	if err != nil {
		respondServiceError(w, r, "list quests", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"quests": quests,
		"total":  len(quests),
	})
}

func (s *Server) handleCreateQuest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal := PrincipalFromContext(r.Context())
	q, err := s.quests.CreateQuest(r.Context(), principal.UserID, req)
	if err != nil {
		respondServiceError(w, r, "create quest", err)
		return
	}

	respondJSON(w, http.StatusCreated, q)
}

func (s *Server) handleGetQuest(w http.ResponseWriter, r *http.Request) {
	q, err := s.quests.GetQuest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "get quest", err)
		return
	}

	principal := PrincipalFromContext(r.Context())
	if !q.IsActive && !principal.IsAdmin() && q.CreatorID != principal.UserID {
		respondError(w, http.StatusNotFound, "not_found", "quest not found")
		return
	}

	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleUpdateQuest(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateQuestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := s.quests.UpdateQuest(r.Context(), chi.URLParam(r, "id"), PrincipalFromContext(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, "update quest", err)
		return
	}

	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleSetQuestActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.quests.SetQuestActive(r.Context(), chi.URLParam(r, "id"), PrincipalFromContext(r.Context()), active)
		if err != nil {
			respondServiceError(w, r, "change quest activation", err)
			return
		}

		respondJSON(w, http.StatusOK, q)
	}
}
