// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/voting"
)

// maxDeviceInfoLen caps the stored user agent.
const maxDeviceInfoLen = 255

type VotingHandler struct {
	votes *voting.Service
	cfg   cliparse.Config
}

func NewVotingHandler(svc *voting.Service, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{votes: svc, cfg: cfg}
}

// ListTopics handles GET /topics
func (h *VotingHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.votes.GetAllTopics(r.Context())
	if err != nil {
		writeServiceError(w, err, "load topics")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, topics)
}

// GetTopic handles GET /topics/:id
func (h *VotingHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	topicID := r.PathValue("id")
	if topicID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "topic id is required")
		return
	}

	topic, err := h.votes.GetTopic(r.Context(), topicID)
	if err != nil {
		writeServiceError(w, err, "load topic")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, topic)
}

// CastVote handles POST /topics/:id/votes
// Accepts either candidate_id or candidate_ids.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	topicID := r.PathValue("id")
	if topicID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "topic id is required")
		return
	}

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	selections := req.CandidateIDs
	if len(selections) == 0 && req.CandidateID != "" {
		selections = []string{req.CandidateID}
	}
	if len(selections) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id or candidate_ids is required")
		return
	}

	// Optional metadata for abuse review
	deviceInfo := truncateUTF8(r.UserAgent(), maxDeviceInfoLen)
	client := models.ClientInfo{
		IPHash:     auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt),
		DeviceInfo: deviceInfo,
	}

	ballotIDs, err := h.votes.CastBallot(r.Context(), user.ID, topicID, selections, client)
	if err != nil {
		writeServiceError(w, err, "record vote")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		BallotIDs: ballotIDs,
		Message:   "Vote recorded",
	})
}

// MyBallots handles GET /me/ballots
func (h *VotingHandler) MyBallots(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	ballots, err := h.votes.GetUserBallots(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "load ballots")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, ballots)
}

// truncateUTF8 shortens s to at most limit bytes without splitting a rune.
// Invalid sequences are dropped so the result is always valid UTF-8.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return strings.ToValidUTF8(s, "")
	}
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.ToValidUTF8(s[:n], "")
}
