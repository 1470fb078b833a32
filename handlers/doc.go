// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the votedesk API.

Handlers are thin: they decode requests, call the users and voting services
and translate service errors to status codes in one place (errors.go).

  - AuthHandler: registration, sessions, password resets
  - VotingHandler: topic listing and ballot casting
  - AdminHandler: topic, candidate, ballot and user administration
  - ReportHandler: statistics, audit feed, CSV export
  - EventsHandler: WebSocket stream of change events

Handlers that need the caller read it from the request context, where
middleware.RequireUser put it.
*/
package handlers
