// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - RegisterRequest, LoginRequest: account access
  - PasswordResetRequest, PasswordResetConfirmRequest: password recovery
  - TopicRequest: topic create/update fields
  - CandidateRequest: candidate create/edit fields
  - CastVoteRequest: candidate_id or candidate_ids
  - ResetRequest: optional topic_id (empty means all topics)
  - SetAdminRequest: admin flag

# Domain Types

  - User: profile plus the voted-topic set (sorted, unique)
  - VotingTopic: topic with its ordered, embedded candidates
  - Candidate: selectable option with a running vote counter
  - BallotRecord: one accepted vote; only verification fields ever change

# Report Types

  - TopicStats, CandidateShare, Report: derived vote aggregates
  - AuditEntry: a ballot enriched with display names

# Constants

Topic status values:

	StatusDraft  = "draft"
	StatusActive = "active"
	StatusEnded  = "ended"

The status label is stored but transitions are not enforced.
*/
package models
