// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/report"
	"github.com/danielhkuo/votedesk/users"
	"github.com/danielhkuo/votedesk/voting"
)

type ReportHandler struct {
	votes    *voting.Service
	accounts *users.Service
	now      func() time.Time
}

func NewReportHandler(votes *voting.Service, accounts *users.Service) *ReportHandler {
	return &ReportHandler{
		votes:    votes,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetAudit handles GET /admin/audit
// Optional ?limit=N returns only the newest N entries.
func (h *ReportHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ballots, err := h.votes.GetAllBallots(r.Context())
	if err != nil {
		writeServiceError(w, err, "load audit log")
		return
	}
	names, err := h.accounts.DisplayNames(r.Context())
	if err != nil {
		writeServiceError(w, err, "load audit log")
		return
	}
	topics, err := h.votes.GetAllTopics(r.Context())
	if err != nil {
		writeServiceError(w, err, "load audit log")
		return
	}

	feed := report.AuditFeed(ballots, names, topics, h.now())
	if limit > 0 && len(feed) > limit {
		feed = feed[:limit]
	}

	middleware.JSONResponse(w, http.StatusOK, feed)
}

// GetReport handles GET /admin/report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	topics, err := h.votes.GetAllTopics(r.Context())
	if err != nil {
		writeServiceError(w, err, "build report")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, report.Summarize(topics, h.now()))
}

// GetReportCSV handles GET /admin/report.csv
func (h *ReportHandler) GetReportCSV(w http.ResponseWriter, r *http.Request) {
	topics, err := h.votes.GetAllTopics(r.Context())
	if err != nil {
		writeServiceError(w, err, "build report")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.CSVFilename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)

	if err := report.WriteCSV(w, topics); err != nil {
		slog.Error("failed to write CSV report", "error", err)
	}
}
