// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging and Metrics

	mux.HandleFunc("GET /topics", middleware.WithLogging(handler))
	handler := middleware.WithMetrics(m, mux)

WithLogging logs request start and completion with status and duration_ms.
WithMetrics observes latency labelled by the matched route pattern.

# Sessions

RequireUser resolves the bearer token through an Authenticator and stores
the user in the request context; RequireAdmin additionally demands the admin
flag:

	mux.HandleFunc("GET /me", middleware.RequireUser(accounts, h.Me))
	user, ok := middleware.UserFromContext(r.Context())

# CORS

CORS allows GET, POST, PUT, DELETE, OPTIONS with Content-Type and
Authorization headers and answers preflight requests directly.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

GetClientIP returns the caller address, honouring X-Forwarded-For and
X-Real-IP. Ballots store only a salted hash of it.
*/
package middleware
