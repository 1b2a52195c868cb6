package api

import (
	"encoding/json"
	"net/http"

	"voting-app/internal/platform/apperr"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		errorResponse(w, apperr.BadRequest("invalid_input", "username, email and password are required", nil))
		return
	}

	u, err := h.userSvc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	tokens, err := h.authSvc.Issue(r.Context(), u.ID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":   u,
		"tokens": tokens,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	tokens, err := h.authSvc.Issue(r.Context(), u.ID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":   u,
		"tokens": tokens,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	tokens, err := h.authSvc.Refresh(r.Context(), req.Refresh)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// Logout is idempotent: an unknown or already revoked token still
// results in a 204.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.authSvc.Logout(r.Context(), req.Refresh); err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Current user profile
// @Tags        auth
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  map[string]any
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Router      /api/v1/auth/profile [get]
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromCtx(r)

	u, err := h.userSvc.GetByID(r.Context(), userID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	pollsCreated, err := h.userSvc.PollsCreated(r.Context(), userID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	votesCast, err := h.voteSvc.CountByUser(r.Context(), userID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	recent, err := h.voteSvc.History(r.Context(), userID, 5)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":          u,
		"polls_created": pollsCreated,
		"votes_cast":    votesCast,
		"recent_votes":  recent,
	})
}
