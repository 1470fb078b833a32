// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/votedesk/db"
	"github.com/danielhkuo/votedesk/metrics"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/notify"
	"github.com/danielhkuo/votedesk/storage"
)

var (
	ErrAlreadyVoted      = errors.New("user has already voted in this topic")
	ErrTopicNotFound     = errors.New("topic not found")
	ErrCandidateNotFound = errors.New("candidate not found in topic")
	ErrUserNotFound      = errors.New("user not found")
	ErrTooManySelections = errors.New("too many selections")
	ErrInvalidInput      = errors.New("invalid input")
	ErrBallotNotFound    = errors.New("ballot not found")
	ErrCandidateLimit    = errors.New("topic already has max_selections candidates")
)

// Service runs the voting, reset and administration workflows. Every
// workflow invocation is a single transaction.
type Service struct {
	conn    *sql.DB
	events  notify.Publisher
	metrics *metrics.Metrics
	images  storage.ObjectStore
	now     func() time.Time

	candidateCap bool
}

// Option adjusts a Service at construction.
type Option func(*Service)

// WithCandidateCap makes AddCandidate refuse once a topic holds
// max_selections candidates.
func WithCandidateCap(on bool) Option {
	return func(s *Service) { s.candidateCap = on }
}

// NewService wires the workflows. A nil publisher, metrics or image store
// falls back to a no-op implementation.
func NewService(conn *sql.DB, events notify.Publisher, m *metrics.Metrics, images storage.ObjectStore, opts ...Option) *Service {
	if events == nil {
		events = notify.Discard{}
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if images == nil {
		images = storage.Unconfigured{}
	}
	s := &Service{
		conn:    conn,
		events:  events,
		metrics: m,
		images:  images,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vote records a single-candidate ballot and returns its ID.
func (s *Service) Vote(ctx context.Context, userID, topicID, candidateID string, client models.ClientInfo) (string, error) {
	ids, err := s.CastBallot(ctx, userID, topicID, []string{candidateID}, client)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CastBallot records one ballot per selected candidate, increments each
// counter and marks the topic as voted for the user, all or nothing.
// It returns the new ballot IDs in selection order.
func (s *Service) CastBallot(ctx context.Context, userID, topicID string, candidateIDs []string, client models.ClientInfo) ([]string, error) {
	ballotIDs, err := s.castBallot(ctx, userID, topicID, candidateIDs, client)
	if err != nil {
		s.metrics.VoteRejected(rejectionReason(err))
		if rejectionReason(err) == metrics.ReasonBackend {
			slog.Error("failed to record vote", "error", err, "topic_id", topicID, "user_id", userID)
		}
		return nil, err
	}

	s.metrics.VotesRecorded(len(ballotIDs))
	s.events.Publish(notify.Event{Kind: notify.VoteRecorded, TopicID: topicID, UserID: userID})

	slog.Info("vote recorded",
		"topic_id", topicID,
		"user_id", userID,
		"selections", len(ballotIDs),
	)
	return ballotIDs, nil
}

func (s *Service) castBallot(ctx context.Context, userID, topicID string, candidateIDs []string, client models.ClientInfo) ([]string, error) {
	if userID == "" || topicID == "" || len(candidateIDs) == 0 {
		return nil, fmt.Errorf("%w: user, topic and at least one candidate are required", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty candidate id", ErrInvalidInput)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: candidate %s selected twice", ErrInvalidInput, id)
		}
		seen[id] = true
	}

	ballotIDs := make([]string, 0, len(candidateIDs))
	err := db.WithTx(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}

		var maxSelections int
		err := tx.QueryRowContext(ctx, `SELECT max_selections FROM voting_topic WHERE id = $1`, topicID).Scan(&maxSelections)
		if err == sql.ErrNoRows {
			return ErrTopicNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query topic: %w", err)
		}
		if len(candidateIDs) > maxSelections {
			return fmt.Errorf("%w: at most %d allowed", ErrTooManySelections, maxSelections)
		}

		members, err := candidateSet(ctx, tx, topicID)
		if err != nil {
			return err
		}
		for _, id := range candidateIDs {
			if !members[id] {
				return ErrCandidateNotFound
			}
		}

		var one int
		err = tx.QueryRowContext(ctx, `
			SELECT 1 FROM user_voted_topic WHERE user_id = $1 AND topic_id = $2
		`, userID, topicID).Scan(&one)
		if err == nil {
			return ErrAlreadyVoted
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check voted topics: %w", err)
		}

		now := s.now()
		for _, candidateID := range candidateIDs {
			ballotID := uuid.NewString()
			_, err := tx.ExecContext(ctx, `
				INSERT INTO ballot (id, user_id, topic_id, candidate_id, cast_at, verified, ip_hash, device_info)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, ballotID, userID, topicID, candidateID, now, false, nullable(client.IPHash), nullable(client.DeviceInfo))
			if err != nil {
				return fmt.Errorf("failed to insert ballot: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				UPDATE candidate SET votes = votes + 1, updated_at = $1 WHERE id = $2 AND topic_id = $3
			`, now, candidateID, topicID)
			if err != nil {
				return fmt.Errorf("failed to increment votes: %w", err)
			}

			ballotIDs = append(ballotIDs, ballotID)
		}

		// The primary key decides between concurrent voters.
		res, err := tx.ExecContext(ctx, `
			INSERT INTO user_voted_topic (user_id, topic_id, voted_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, topic_id) DO NOTHING
		`, userID, topicID, now)
		if err != nil {
			return fmt.Errorf("failed to mark topic voted: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to mark topic voted: %w", err)
		}
		if n == 0 {
			return ErrAlreadyVoted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ballotIDs, nil
}

func requireUser(ctx context.Context, tx db.DBTX, userID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM app_user WHERE id = $1`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query user: %w", err)
	}
	return nil
}

func candidateSet(ctx context.Context, tx db.DBTX, topicID string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM candidate WHERE topic_id = $1`, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		set[id] = true
	}
	return set, rows.Err()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyVoted):
		return metrics.ReasonAlreadyVoted
	case errors.Is(err, ErrTopicNotFound), errors.Is(err, ErrCandidateNotFound), errors.Is(err, ErrUserNotFound):
		return metrics.ReasonNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrTooManySelections):
		return metrics.ReasonValidation
	default:
		return metrics.ReasonBackend
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
