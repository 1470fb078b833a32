// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/storage"
	"github.com/danielhkuo/votedesk/users"
	"github.com/danielhkuo/votedesk/voting"
)

// writeServiceError maps workflow errors to HTTP statuses. Anything
// unrecognised is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, voting.ErrAlreadyVoted):
		middleware.ErrorResponse(w, http.StatusConflict, "You have already voted in this topic")
	case errors.Is(err, voting.ErrTopicNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Topic not found")
	case errors.Is(err, voting.ErrCandidateNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
	case errors.Is(err, voting.ErrBallotNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Ballot not found")
	case errors.Is(err, voting.ErrUserNotFound), errors.Is(err, users.ErrUserNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
	case errors.Is(err, voting.ErrTooManySelections),
		errors.Is(err, voting.ErrInvalidInput),
		errors.Is(err, users.ErrInvalidInput):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, voting.ErrCandidateLimit):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, users.ErrEmailTaken):
		middleware.ErrorResponse(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, users.ErrInvalidCredentials):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, users.ErrInactive):
		middleware.ErrorResponse(w, http.StatusForbidden, "Account is inactive")
	case errors.Is(err, users.ErrResetTokenInvalid):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Reset token is invalid or expired")
	case errors.Is(err, storage.ErrNotConfigured):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Image storage is not configured")
	default:
		slog.Error("failed to "+action, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+action)
	}
}
