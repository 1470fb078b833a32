// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
)

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err, "load users")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, list)
}

// SetAdmin handles PUT /admin/users/:id/admin
func (h *AdminHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	var req models.SetAdminRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Guard against locking everyone out.
	if admin, _ := middleware.UserFromContext(r.Context()); admin.ID == userID && !req.IsAdmin {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot revoke your own admin rights")
		return
	}

	if err := h.accounts.SetAdmin(r.Context(), userID, req.IsAdmin); err != nil {
		writeServiceError(w, err, "update user")
		return
	}

	user, err := h.accounts.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "load user")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, user)
}
