package api

import (
	"database/sql"
	"errors"
	"net/http"

	"voting-app/internal/domain/auth"
	"voting-app/internal/domain/poll"
	"voting-app/internal/domain/user"
	"voting-app/internal/domain/vote"
	"voting-app/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrUsernameTaken):
		return apperr.BadRequest("username_taken", "username already exists", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.BadRequest("email_taken", "email already registered", err)
	case errors.Is(err, auth.ErrTokenExpired):
		return apperr.Unauthorized("token_expired", "token expired, please sign in again", err)
	case errors.Is(err, auth.ErrTokenReused):
		return apperr.Unauthorized("token_reused", "session revoked, please sign in again", err)
	case errors.Is(err, auth.ErrTokenInvalid):
		return apperr.Unauthorized("token_invalid", "invalid token, please sign in again", err)
	case errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrNotOwner):
		return apperr.Forbidden("forbidden", "poll belongs to another user", err)
	case errors.Is(err, poll.ErrPollHasVotes):
		return apperr.BadRequest("poll_has_votes", "polls with votes cannot be deleted", err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.BadRequest("already_voted", "you have already voted on this poll", err)
	case errors.Is(err, vote.ErrPollNotActive):
		return apperr.BadRequest("poll_not_active", "poll is not active", err)
	case errors.Is(err, vote.ErrChoiceNotInPoll):
		return apperr.BadRequest("invalid_choice", "choice does not belong to poll", err)
	case errors.Is(err, vote.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
