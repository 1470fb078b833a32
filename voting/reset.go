// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/votedesk/db"
	"github.com/danielhkuo/votedesk/notify"
)

// ResetTopic zeroes every counter of the topic, deletes its ballots and
// removes it from every voted-topic set.
func (s *Service) ResetTopic(ctx context.Context, topicID string) error {
	var ballots, voters int64
	err := db.WithTx(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM voting_topic WHERE id = $1`, topicID).Scan(&one)
		if err == sql.ErrNoRows {
			return ErrTopicNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query topic: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE candidate SET votes = 0, updated_at = $1 WHERE topic_id = $2`, s.now(), topicID); err != nil {
			return fmt.Errorf("failed to zero votes: %w", err)
		}

		ballots, err = execCount(ctx, tx, `DELETE FROM ballot WHERE topic_id = $1`, topicID)
		if err != nil {
			return fmt.Errorf("failed to delete ballots: %w", err)
		}

		voters, err = execCount(ctx, tx, `DELETE FROM user_voted_topic WHERE topic_id = $1`, topicID)
		if err != nil {
			return fmt.Errorf("failed to clear voted topics: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.Reset("topic")
	s.events.Publish(notify.Event{Kind: notify.VotesReset, TopicID: topicID})
	slog.Info("topic votes reset", "topic_id", topicID, "ballots_deleted", ballots, "voters_cleared", voters)
	return nil
}

// ResetAll is ResetTopic applied to every topic at once.
func (s *Service) ResetAll(ctx context.Context) error {
	var ballots, voters int64
	err := db.WithTx(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `UPDATE candidate SET votes = 0, updated_at = $1`, s.now()); err != nil {
			return fmt.Errorf("failed to zero votes: %w", err)
		}

		var err error
		ballots, err = execCount(ctx, tx, `DELETE FROM ballot`)
		if err != nil {
			return fmt.Errorf("failed to delete ballots: %w", err)
		}

		voters, err = execCount(ctx, tx, `DELETE FROM user_voted_topic`)
		if err != nil {
			return fmt.Errorf("failed to clear voted topics: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.Reset("all")
	s.events.Publish(notify.Event{Kind: notify.VotesReset})
	slog.Info("all votes reset", "ballots_deleted", ballots, "voters_cleared", voters)
	return nil
}

func execCount(ctx context.Context, tx db.DBTX, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
