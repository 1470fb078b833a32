// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Topic status constants
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Topic type constants (stored labels only)
const (
	TypeSingle   = "single"
	TypeMultiple = "multiple"
	TypeRanked   = "ranked"
)

// User status constants
const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// Request types

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type TopicRequest struct {
	Name          string     `json:"name"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	MaxSelections int        `json:"max_selections"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Status        string     `json:"status"`
}

type CandidateRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Position        string `json:"position"`
	ImageURL        string `json:"image_url"`
	CampaignDetails string `json:"campaign_details"`
}

// CastVoteRequest carries one candidate_id or several candidate_ids for
// multi-select topics.
type CastVoteRequest struct {
	CandidateID  string   `json:"candidate_id,omitempty"`
	CandidateIDs []string `json:"candidate_ids,omitempty"`
}

// ResetRequest names exactly one scope: a topic_id, or all=true for every
// topic.
type ResetRequest struct {
	TopicID string `json:"topic_id,omitempty"`
	All     bool   `json:"all,omitempty"`
}

type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// Response types

type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type CastVoteResponse struct {
	BallotIDs []string `json:"ballot_ids"`
	Message   string   `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Domain types

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	IsAdmin      bool       `json:"is_admin"`
	Status       string     `json:"status"`
	VotedTopics  []string   `json:"voted_topics"` // sorted, unique
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastLogoutAt *time.Time `json:"last_logout_at,omitempty"`
	PasswordHash string     `json:"-"` // Never expose in JSON
}

// HasVoted reports whether topicID is in the user's voted-topic set.
func (u User) HasVoted(topicID string) bool {
	for _, id := range u.VotedTopics {
		if id == topicID {
			return true
		}
	}
	return false
}

type Candidate struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Position        string `json:"position"`
	ImageURL        string `json:"image_url,omitempty"`
	CampaignDetails string `json:"campaign_details,omitempty"`
	Votes           int    `json:"votes"`
}

type VotingTopic struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Type          string      `json:"type"`
	MaxSelections int         `json:"max_selections"`
	Candidates    []Candidate `json:"candidates"`
	StartDate     *time.Time  `json:"start_date,omitempty"`
	EndDate       *time.Time  `json:"end_date,omitempty"`
	Status        string      `json:"status"`
	CreatedBy     string      `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Candidate returns the candidate with the given id.
func (t VotingTopic) Candidate(id string) (Candidate, bool) {
	for _, c := range t.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}

type BallotRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TopicID     string     `json:"topic_id"`
	CandidateID string     `json:"candidate_id"`
	Timestamp   time.Time  `json:"timestamp"`
	Verified    bool       `json:"verified"`
	VerifiedBy  *string    `json:"verified_by,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	IPHash      *string    `json:"-"` // Never expose in JSON
	DeviceInfo  *string    `json:"device_info,omitempty"`
}

// ClientInfo is the optional metadata attached to a ballot.
type ClientInfo struct {
	IPHash     string
	DeviceInfo string
}

// Report types

type CandidateShare struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	Position    string  `json:"position"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
}

type TopicStats struct {
	TopicID          string           `json:"topic_id"`
	TopicName        string           `json:"topic_name"`
	TotalVotes       int              `json:"total_votes"`
	LeadingCandidate string           `json:"leading_candidate"`
	AverageVotes     float64          `json:"average_votes"`
	VotePercentage   float64          `json:"vote_percentage"` // of the grand total
	Candidates       []CandidateShare `json:"candidates"`
}

type Report struct {
	GrandTotal  int          `json:"grand_total"`
	GeneratedAt time.Time    `json:"generated_at"`
	Topics      []TopicStats `json:"topics"`
}

type AuditEntry struct {
	BallotID      string    `json:"ballot_id"`
	UserName      string    `json:"user_name"`
	TopicName     string    `json:"topic_name"`
	CandidateName string    `json:"candidate_name"`
	Timestamp     time.Time `json:"timestamp"`
	RelativeTime  string    `json:"relative_time"`
	Verified      bool      `json:"verified"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
