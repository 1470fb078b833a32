// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/users"
)

type AuthHandler struct {
	users *users.Service
	cfg   cliparse.Config
}

func NewAuthHandler(svc *users.Service, cfg cliparse.Config) *AuthHandler {
	return &AuthHandler{users: svc, cfg: cfg}
}

func sessionResponse(s users.Session) models.SessionResponse {
	return models.SessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: s.User}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sess, err := h.users.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		writeServiceError(w, err, "register")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, sessionResponse(sess))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Email == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "sign in")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, sessionResponse(sess))
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	if err := h.users.Logout(r.Context(), user.ID); err != nil {
		writeServiceError(w, err, "sign out")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Signed out"})
}

// RequestPasswordReset handles POST /auth/password-reset
// The response is identical whether or not the email is registered.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}

	if _, err := h.users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err, "request password reset")
		return
	}

	middleware.JSONResponse(w, http.StatusAccepted, models.MessageResponse{
		Message: "If the email is registered, reset instructions have been sent",
	})
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetConfirmRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Token == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.users.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, err, "reset password")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Password updated"})
}

// Me handles GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, user)
}
