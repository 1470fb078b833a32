// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the votedesk API.

# Route Registration

NewRouter builds the services, registers every endpoint and returns the mux
wrapped in CORS and request metrics:

	handler := router.NewRouter(db, cfg, bus, m, images)

# Endpoints

Public:

	GET  /health                      - Liveness
	GET  /metrics                     - Prometheus exposition
	POST /auth/register               - Create account and session
	POST /auth/login                  - Start session
	POST /auth/password-reset         - Request reset token
	POST /auth/password-reset/confirm - Set new password

Signed-in users (Authorization: Bearer <token>):

	POST /auth/logout
	GET  /me
	GET  /me/ballots
	GET  /topics
	GET  /topics/{id}
	POST /topics/{id}/votes
	GET  /events (WebSocket; the token may also be sent as ?token=)

Admins:

	POST   /admin/topics
	PUT    /admin/topics/{id}
	DELETE /admin/topics/{id}
	POST   /admin/topics/{id}/candidates
	PUT    /admin/topics/{id}/candidates/{cid}
	DELETE /admin/topics/{id}/candidates/{cid}
	POST   /admin/topics/{id}/candidates/{cid}/image
	POST   /admin/reset
	GET    /admin/ballots
	POST   /admin/ballots/{id}/verify
	GET    /admin/audit
	GET    /admin/report
	GET    /admin/report.csv
	GET    /admin/users
	PUT    /admin/users/{id}/admin

Admin rights are read from the database on every request.
*/
package router
