package api

import (
	"encoding/json"
	"net/http"

	"voting-app/internal/platform/apperr"
	"voting-app/internal/worker"
)

type castVoteRequest struct {
	Poll   int64 `json:"poll"`
	Choice int64 `json:"choice"`
}

// @Summary     Cast a vote
// @Tags        votes
// @Security    BearerAuth
// @Accept      json
// @Param       request  body      castVoteRequest  true  "Vote payload"
// @Success     201      {object}  vote.Receipt
// @Failure     400      {object}  map[string]string  "invalid body, inactive poll or already voted"
// @Failure     401      {object}  map[string]string  "unauthorized"
// @Failure     404      {object}  map[string]string  "poll not found"
// @Router      /api/v1/votes [post]
func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.Poll == 0 || req.Choice == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "poll and choice are required", nil))
		return
	}

	userID := userIDFromCtx(r)

	receipt, err := h.voteSvc.Cast(r.Context(), userID, req.Poll, req.Choice)
	if err != nil {
		errorResponse(w, err)
		return
	}

	select {
	case h.voteCh <- worker.VoteEvent{PollID: req.Poll, ChoiceID: req.Choice, UserID: userID}:
	default:
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// @Summary     Poll results
// @Tags        polls
// @Produce     json
// @Param       id   path     int64  true  "Poll ID"
// @Success     200  {object} vote.Results
// @Failure     400  {object}  map[string]string  "invalid poll id"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	res, err := h.voteSvc.Results(r.Context(), pollID, viewerIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleVoteHistory(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r.URL.Query().Get("limit"), 20)

	history, err := h.voteSvc.History(r.Context(), userIDFromCtx(r), limit)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}
