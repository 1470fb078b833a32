// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/handlers"
	"github.com/danielhkuo/votedesk/metrics"
	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/notify"
	"github.com/danielhkuo/votedesk/storage"
	"github.com/danielhkuo/votedesk/users"
	"github.com/danielhkuo/votedesk/voting"
)

// NewRouter wires services and handlers onto a ServeMux. The result is
// wrapped in CORS and request metrics.
func NewRouter(db *sql.DB, cfg cliparse.Config, bus *notify.Bus, m *metrics.Metrics, images storage.ObjectStore) http.Handler {
	mux := http.NewServeMux()

	// Services
	accounts := users.NewService(db, cfg, bus)
	votes := voting.NewService(db, bus, m, images, voting.WithCandidateCap(cfg.EnforceCandidateCap))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accounts, cfg)
	votingHandler := handlers.NewVotingHandler(votes, cfg)
	adminHandler := handlers.NewAdminHandler(votes, accounts)
	reportHandler := handlers.NewReportHandler(votes, accounts)
	eventsHandler := handlers.NewEventsHandler(bus, accounts, cfg.AllowedOrigins)

	user := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireUser(accounts, h))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(accounts, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", m.Handler())

	// Accounts (public)
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(authHandler.Register))
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(authHandler.Login))
	mux.HandleFunc("POST /auth/password-reset", middleware.WithLogging(authHandler.RequestPasswordReset))
	mux.HandleFunc("POST /auth/password-reset/confirm", middleware.WithLogging(authHandler.ConfirmPasswordReset))

	// Signed-in users
	mux.HandleFunc("POST /auth/logout", user(authHandler.Logout))
	mux.HandleFunc("GET /me", user(authHandler.Me))
	mux.HandleFunc("GET /me/ballots", user(votingHandler.MyBallots))
	mux.HandleFunc("GET /topics", user(votingHandler.ListTopics))
	mux.HandleFunc("GET /topics/{id}", user(votingHandler.GetTopic))
	mux.HandleFunc("POST /topics/{id}/votes", user(votingHandler.CastVote))

	// Topic administration
	mux.HandleFunc("POST /admin/topics", admin(adminHandler.CreateTopic))
	mux.HandleFunc("PUT /admin/topics/{id}", admin(adminHandler.UpdateTopic))
	mux.HandleFunc("DELETE /admin/topics/{id}", admin(adminHandler.DeleteTopic))
	mux.HandleFunc("POST /admin/topics/{id}/candidates", admin(adminHandler.AddCandidate))
	mux.HandleFunc("PUT /admin/topics/{id}/candidates/{cid}", admin(adminHandler.EditCandidate))
	mux.HandleFunc("DELETE /admin/topics/{id}/candidates/{cid}", admin(adminHandler.RemoveCandidate))
	mux.HandleFunc("POST /admin/topics/{id}/candidates/{cid}/image", admin(adminHandler.UploadCandidateImage))
	mux.HandleFunc("POST /admin/reset", admin(adminHandler.ResetVotes))

	// Ballot log and reporting
	mux.HandleFunc("GET /admin/ballots", admin(adminHandler.ListBallots))
	mux.HandleFunc("POST /admin/ballots/{id}/verify", admin(adminHandler.VerifyBallot))
	mux.HandleFunc("GET /admin/audit", admin(reportHandler.GetAudit))
	mux.HandleFunc("GET /admin/report", admin(reportHandler.GetReport))
	mux.HandleFunc("GET /admin/report.csv", admin(reportHandler.GetReportCSV))

	// User administration
	mux.HandleFunc("GET /admin/users", admin(adminHandler.ListUsers))
	mux.HandleFunc("PUT /admin/users/{id}/admin", admin(adminHandler.SetAdmin))

	// Live change notifications
	mux.HandleFunc("GET /events", middleware.WithLogging(eventsHandler.Stream))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("votedesk API v1"))
	})

	return middleware.CORS(middleware.WithMetrics(m, mux))
}
