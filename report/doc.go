// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package report derives read-only views from topics and ballots: the
// per-topic summary, the admin audit feed and the CSV export. Nothing here
// touches the database.
package report
