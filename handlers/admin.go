// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/users"
	"github.com/danielhkuo/votedesk/voting"
)

// maxImageSize bounds candidate image uploads (5 MiB).
const maxImageSize = 5 << 20

type AdminHandler struct {
	votes    *voting.Service
	accounts *users.Service
}

func NewAdminHandler(votes *voting.Service, accounts *users.Service) *AdminHandler {
	return &AdminHandler{votes: votes, accounts: accounts}
}

// CreateTopic handles POST /admin/topics
func (h *AdminHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.UserFromContext(r.Context())

	var req models.TopicRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	topic, err := h.votes.AddTopic(r.Context(), req, admin.ID)
	if err != nil {
		writeServiceError(w, err, "create topic")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, topic)
}

// UpdateTopic handles PUT /admin/topics/:id
func (h *AdminHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	var req models.TopicRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	topic, err := h.votes.UpdateTopic(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "update topic")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, topic)
}

// DeleteTopic handles DELETE /admin/topics/:id
func (h *AdminHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.votes.RemoveTopic(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "remove topic")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Topic removed"})
}

// AddCandidate handles POST /admin/topics/:id/candidates
func (h *AdminHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.CandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	candidate, err := h.votes.AddCandidate(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "add candidate")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, candidate)
}

// EditCandidate handles PUT /admin/topics/:id/candidates/:cid
func (h *AdminHandler) EditCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.CandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	candidate, err := h.votes.EditCandidate(r.Context(), r.PathValue("id"), r.PathValue("cid"), req)
	if err != nil {
		writeServiceError(w, err, "update candidate")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, candidate)
}

// RemoveCandidate handles DELETE /admin/topics/:id/candidates/:cid
func (h *AdminHandler) RemoveCandidate(w http.ResponseWriter, r *http.Request) {
	if err := h.votes.RemoveCandidate(r.Context(), r.PathValue("id"), r.PathValue("cid")); err != nil {
		writeServiceError(w, err, "remove candidate")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Candidate removed"})
}

// UploadCandidateImage handles POST /admin/topics/:id/candidates/:cid/image
// Expects a multipart form with an "image" file field.
func (h *AdminHandler) UploadCandidateImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<10)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid multipart form or image too large")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Failed to read image")
		return
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "file must be an image")
		return
	}

	candidate, err := h.votes.SetCandidateImage(r.Context(), r.PathValue("id"), r.PathValue("cid"),
		header.Filename, contentType, bytes.NewReader(data))
	if err != nil {
		writeServiceError(w, err, "upload image")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, candidate)
}

// ResetVotes handles POST /admin/reset
// The body must carry either topic_id or "all": true. Unknown fields are
// rejected so a misspelled key never widens the reset.
func (h *AdminHandler) ResetVotes(w http.ResponseWriter, r *http.Request) {
	var req models.ResetRequest
	if err := middleware.ParseStrictJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON: expected {\"topic_id\": ...} or {\"all\": true}")
		return
	}

	switch {
	case req.TopicID != "" && req.All:
		middleware.ErrorResponse(w, http.StatusBadRequest, "topic_id and all are mutually exclusive")
	case req.All:
		if err := h.votes.ResetAll(r.Context()); err != nil {
			writeServiceError(w, err, "reset votes")
			return
		}
		middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "All votes reset"})
	case req.TopicID != "":
		if err := h.votes.ResetTopic(r.Context(), req.TopicID); err != nil {
			writeServiceError(w, err, "reset votes")
			return
		}
		middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Topic votes reset"})
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "topic_id or all is required")
	}
}

// ListBallots handles GET /admin/ballots
// Optional ?topic_id= narrows the log to one topic.
func (h *AdminHandler) ListBallots(w http.ResponseWriter, r *http.Request) {
	var (
		ballots []models.BallotRecord
		err     error
	)
	if topicID := r.URL.Query().Get("topic_id"); topicID != "" {
		ballots, err = h.votes.GetBallotsByTopic(r.Context(), topicID)
	} else {
		ballots, err = h.votes.GetAllBallots(r.Context())
	}
	if err != nil {
		writeServiceError(w, err, "load ballots")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, ballots)
}

// VerifyBallot handles POST /admin/ballots/:id/verify
func (h *AdminHandler) VerifyBallot(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.UserFromContext(r.Context())

	ballot, err := h.votes.VerifyBallot(r.Context(), r.PathValue("id"), admin.ID)
	if err != nil {
		writeServiceError(w, err, "verify ballot")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, ballot)
}
