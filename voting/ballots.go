// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/notify"
)

const ballotColumns = `id, user_id, topic_id, candidate_id, cast_at, verified, verified_by, verified_at, ip_hash, device_info`

func scanBallot(row rowScanner) (models.BallotRecord, error) {
	var b models.BallotRecord
	err := row.Scan(&b.ID, &b.UserID, &b.TopicID, &b.CandidateID, &b.Timestamp,
		&b.Verified, &b.VerifiedBy, &b.VerifiedAt, &b.IPHash, &b.DeviceInfo)
	return b, err
}

func (s *Service) queryBallots(ctx context.Context, where string, args ...any) ([]models.BallotRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+ballotColumns+` FROM ballot `+where+` ORDER BY cast_at DESC, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ballots: %w", err)
	}
	defer rows.Close()

	ballots := []models.BallotRecord{}
	for rows.Next() {
		b, err := scanBallot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		ballots = append(ballots, b)
	}
	return ballots, rows.Err()
}

// GetAllBallots returns the full ballot log, newest first.
func (s *Service) GetAllBallots(ctx context.Context) ([]models.BallotRecord, error) {
	return s.queryBallots(ctx, "")
}

func (s *Service) GetBallotsByTopic(ctx context.Context, topicID string) ([]models.BallotRecord, error) {
	return s.queryBallots(ctx, "WHERE topic_id = $1", topicID)
}

func (s *Service) GetUserBallots(ctx context.Context, userID string) ([]models.BallotRecord, error) {
	return s.queryBallots(ctx, "WHERE user_id = $1", userID)
}

// VerifyBallot marks a ballot verified by verifierID. Verification fields
// are the only mutable part of a ballot.
func (s *Service) VerifyBallot(ctx context.Context, ballotID, verifierID string) (models.BallotRecord, error) {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE ballot SET verified = $1, verified_by = $2, verified_at = $3 WHERE id = $4
	`, true, verifierID, s.now(), ballotID)
	if err != nil {
		return models.BallotRecord{}, fmt.Errorf("failed to verify ballot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.BallotRecord{}, ErrBallotNotFound
	}

	b, err := scanBallot(s.conn.QueryRowContext(ctx, `SELECT `+ballotColumns+` FROM ballot WHERE id = $1`, ballotID))
	if err == sql.ErrNoRows {
		return models.BallotRecord{}, ErrBallotNotFound
	}
	if err != nil {
		return models.BallotRecord{}, fmt.Errorf("failed to query ballot: %w", err)
	}

	s.events.Publish(notify.Event{Kind: notify.BallotVerified, TopicID: b.TopicID, UserID: verifierID})
	slog.Info("ballot verified", "ballot_id", ballotID, "verified_by", verifierID)
	return b, nil
}
