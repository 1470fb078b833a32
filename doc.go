// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the votedesk API server.

votedesk runs small elections: admins define voting topics with candidates,
signed-in users cast at most one ballot per topic, and admins review the
ballot log, reports and audit feed.

# Starting the Server

SQLite is the default backend, so a secret is all that is needed locally:

	JWT_SECRET=dev DATABASE_URL=file:votedesk.db go run .

Or against PostgreSQL with flags:

	go run . -t postgres -d "postgres://..." --jwt-secret dev

A .env file in the working directory is loaded first if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): database connection string
  - JWT_SECRET (--jwt-secret): session signing secret

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - SESSION_TTL: session lifetime (default: 24h)
  - IP_HASH_SALT (--ip-salt): salt for ballot IP hashes
  - ADMIN_EMAIL (--admin-email): account promoted to admin at startup
  - ALLOWED_ORIGINS: comma-separated browser origins allowed on /events
  - ENFORCE_CANDIDATE_CAP (--candidate-cap): limit candidates to max_selections
  - S3_BUCKET (--s3-bucket), S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY,
    S3_SECRET_KEY, S3_PUBLIC_URL: candidate image storage
  - LOG_LEVEL (--log-level), LOG_FORMAT: text or json logging

# Architecture

  - handlers: HTTP request handlers (auth, voting, admin, reports, events)
  - router: route table using Go 1.22+ routing
  - middleware: CORS, logging, metrics, session auth, JSON helpers
  - voting: topics, candidates, ballots and resets
  - users: accounts, sessions and password resets
  - report: statistics, audit feed and CSV export
  - notify: in-process change events
  - storage: S3 candidate images
  - metrics: Prometheus collectors
  - auth: tokens, hashing and password checks
  - db: connections, transactions and migrations
  - cliparse: configuration parsing
*/
package main
