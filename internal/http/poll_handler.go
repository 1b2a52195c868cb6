package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"voting-app/internal/domain/poll"
	"voting-app/internal/platform/apperr"
)

type createPollRequest struct {
	Question    string   `json:"question"`
	Description *string  `json:"description"`
	Choices     []string `json:"choices"`
}

type pollPage struct {
	Count    int64          `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []poll.Summary `json:"results"`
}

func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	p := &poll.Poll{
		Question:    req.Question,
		Description: req.Description,
		CreatorID:   userIDFromCtx(r),
	}

	id, err := h.pollSvc.Create(r.Context(), p, req.Choices)
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", err.Error(), err))
		return
	}

	viewerID := viewerIDFromCtx(r)
	detail, err := h.pollSvc.Get(r.Context(), id, viewerID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, detail)
}

func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intQuery(q.Get("page"), 1)
	pageSize := intQuery(q.Get("page_size"), poll.DefaultPageSize)
	if pageSize > poll.MaxPageSize {
		pageSize = poll.MaxPageSize
	}
	search := q.Get("search")

	items, total, err := h.pollSvc.List(r.Context(), page, pageSize, search, viewerIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	resp := pollPage{
		Count:   total,
		Results: items,
	}
	if int64(page*pageSize) < total {
		resp.Next = pageLink(r, page+1)
	}
	if page > 1 {
		resp.Previous = pageLink(r, page-1)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	viewerID := viewerIDFromCtx(r)
	detail, err := h.pollSvc.Get(r.Context(), id, viewerID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll": detail,
		// Anonymous viewers get results only; an authenticated user keeps
		// the voting form until their vote lands.
		"show_results": viewerID == nil || detail.UserHasVoted,
	})
}

// @Summary     Delete a poll
// @Tags        polls
// @Security    BearerAuth
// @Param       id   path  int64  true  "Poll ID"
// @Success     204
// @Failure     400  {object}  map[string]string  "poll has votes"
// @Failure     403  {object}  map[string]string  "not the owner"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id} [delete]
func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	if err := h.pollSvc.Delete(r.Context(), id, userIDFromCtx(r)); err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func intQuery(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func pageLink(r *http.Request, page int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
