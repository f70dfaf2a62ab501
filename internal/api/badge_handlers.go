package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/cvaas/quest-engine/internal/models"
)

func (s *Server) handleListMyBadges(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())

	badges, err := s.quests.ListBadges(r.Context(), principal.UserID)
	if err != nil {
		respondServiceError(w, r, "list badges", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"badges": badges,
		"total":  len(badges),
	})
}

// handleListUserBadges is the public profile view: hidden badges are only
// listed for their owner and admins.
func (s *Server) handleListUserBadges(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	principal := PrincipalFromContext(r.Context())

	badges, err := s.quests.ListBadges(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, "list badges", err)
		return
	}

	if userID != principal.UserID && !principal.IsAdmin() {
		badges = lo.Filter(badges, func(b *models.Badge, _ int) bool {
			return b.IsDisplayed
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"badges": badges,
		"total":  len(badges),
	})
}

func (s *Server) handleUpdateBadgeDisplay(w http.ResponseWriter, r *http.Request) {
	var req models.BadgeDisplayRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	badge, err := s.quests.UpdateBadgeDisplay(r.Context(), chi.URLParam(r, "id"), PrincipalFromContext(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, "update badge display", err)
		return
	}

	respondJSON(w, http.StatusOK, badge)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	entries, err := s.quests.GetLeaderboard(r.Context(),
		models.Timeframe(q.Get("timeframe")),
		models.QuestCategory(q.Get("category")),
	)
	if err != nil {
		respondServiceError(w, r, "get leaderboard", err)
		return
	}

	if limit := queryInt(r, "limit", 0); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}
