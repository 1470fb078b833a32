// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/danielhkuo/votedesk/db"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/notify"
	"github.com/danielhkuo/votedesk/storage"
)

var (
	validTypes    = map[string]bool{models.TypeSingle: true, models.TypeMultiple: true, models.TypeRanked: true}
	validStatuses = map[string]bool{models.StatusDraft: true, models.StatusActive: true, models.StatusEnded: true}
)

func validateTopic(t *models.VotingTopic) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if t.MaxSelections < 1 {
		return fmt.Errorf("%w: max_selections must be at least 1", ErrInvalidInput)
	}
	if !validTypes[t.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, t.Type)
	}
	if !validStatuses[t.Status] {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, t.Status)
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
	}
	return nil
}

// AddTopic creates a topic with no candidates. Status defaults to draft,
// type to single and max_selections to 1.
func (s *Service) AddTopic(ctx context.Context, req models.TopicRequest, createdBy string) (models.VotingTopic, error) {
	now := s.now()
	topic := models.VotingTopic{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Type:          req.Type,
		MaxSelections: req.MaxSelections,
		Candidates:    []models.Candidate{},
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        req.Status,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if topic.Type == "" {
		topic.Type = models.TypeSingle
	}
	if topic.Status == "" {
		topic.Status = models.StatusDraft
	}
	if topic.MaxSelections == 0 {
		topic.MaxSelections = 1
	}
	if topic.Title == "" {
		topic.Title = topic.Name
	}
	if err := validateTopic(&topic); err != nil {
		return models.VotingTopic{}, err
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO voting_topic (id, name, title, description, topic_type, max_selections, start_date, end_date, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, topic.ID, topic.Name, topic.Title, topic.Description, topic.Type, topic.MaxSelections,
		topic.StartDate, topic.EndDate, topic.Status, topic.CreatedBy, now, now)
	if err != nil {
		slog.Error("failed to create topic", "error", err)
		return models.VotingTopic{}, fmt.Errorf("failed to insert topic: %w", err)
	}

	s.events.Publish(notify.Event{Kind: notify.TopicCreated, TopicID: topic.ID, UserID: createdBy})
	slog.Info("topic created", "topic_id", topic.ID, "name", topic.Name)
	return topic, nil
}

// UpdateTopic replaces the topic's metadata. Empty type or status keep the
// stored value; status transitions are not enforced.
func (s *Service) UpdateTopic(ctx context.Context, topicID string, req models.TopicRequest) (models.VotingTopic, error) {
	err := db.WithTx(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		current, err := loadTopic(ctx, tx, topicID)
		if err != nil {
			return err
		}

		current.Name = strings.TrimSpace(req.Name)
		current.Title = strings.TrimSpace(req.Title)
		current.Description = req.Description
		current.MaxSelections = req.MaxSelections
		current.StartDate = req.StartDate
		current.EndDate = req.EndDate
		if req.Type != "" {
			current.Type = req.Type
		}
		if req.Status != "" {
			current.Status = req.Status
		}
		if current.Title == "" {
			current.Title = current.Name
		}
		if err := validateTopic(&current); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE voting_topic
			SET name = $1, title = $2, description = $3, topic_type = $4, max_selections = $5,
			    start_date = $6, end_date = $7, status = $8, updated_at = $9
			WHERE id = $10
		`, current.Name, current.Title, current.Description, current.Type, current.MaxSelections,
			current.StartDate, current.EndDate, current.Status, s.now(), topicID)
		if err != nil {
			return fmt.Errorf("failed to update topic: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.VotingTopic{}, err
	}

	s.events.Publish(notify.Event{Kind: notify.TopicUpdated, TopicID: topicID})
	slog.Info("topic updated", "topic_id", topicID)
	return s.GetTopic(ctx, topicID)
}

// RemoveTopic deletes the topic and its candidates. Ballots and voted-topic
// entries that reference it stay behind.
func (s *Service) RemoveTopic(ctx context.Context, topicID string) error {
	err := db.WithTx(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM candidate WHERE topic_id = $1`, topicID); err != nil {
			return fmt.Errorf("failed to delete candidates: %w", err)
		}
		n, err := execCount(ctx, tx, `DELETE FROM voting_topic WHERE id = $1`, topicID)
		if err != nil {
			return fmt.Errorf("failed to delete topic: %w", err)
		}
		if n == 0 {
			return ErrTopicNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(notify.Event{Kind: notify.TopicRemoved, TopicID: topicID})
	slog.Info("topic removed", "topic_id", topicID)
	return nil
}

func candidateFromRequest(req models.CandidateRequest) models.Candidate {
	return models.Candidate{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Position:        strings.TrimSpace(req.Position),
		ImageURL:        req.ImageURL,
		CampaignDetails: req.CampaignDetails,
	}
}

// AddCandidate appends a candidate with zero votes at the end of the list.
// With the candidate cap on, a topic holding max_selections candidates
// rejects the add with ErrCandidateLimit.
func (s *Service) AddCandidate(ctx context.Context, topicID string, req models.CandidateRequest) (models.Candidate, error) {
	c := candidateFromRequest(req)
	if c.Name == "" {
		return models.Candidate{}, fmt.Errorf("%w: candidate name is required", ErrInvalidInput)
	}
	c.ID = uuid.NewString()

	err := db.WithTx(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		var maxSelections int
		err := tx.QueryRowContext(ctx, `SELECT max_selections FROM voting_topic WHERE id = $1`, topicID).Scan(&maxSelections)
		if err == sql.ErrNoRows {
			return ErrTopicNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query topic: %w", err)
		}

		if s.candidateCap {
			var count int
			err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidate WHERE topic_id = $1`, topicID).Scan(&count)
			if err != nil {
				return fmt.Errorf("failed to count candidates: %w", err)
			}
			if count >= maxSelections {
				return fmt.Errorf("%w (%d)", ErrCandidateLimit, maxSelections)
			}
		}

		var maxOrdinal sql.NullInt64
		err = tx.QueryRowContext(ctx, `SELECT MAX(ordinal) FROM candidate WHERE topic_id = $1`, topicID).Scan(&maxOrdinal)
		if err != nil {
			return fmt.Errorf("failed to read candidate order: %w", err)
		}

		ordinal := 0
		if maxOrdinal.Valid {
			ordinal = int(maxOrdinal.Int64) + 1
		}

		now := s.now()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO candidate (id, topic_id, ordinal, name, description, position, image_url, campaign_details, votes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, c.ID, topicID, ordinal, c.Name, c.Description, c.Position, c.ImageURL, c.CampaignDetails, 0, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Candidate{}, err
	}

	s.events.Publish(notify.Event{Kind: notify.CandidateChanged, TopicID: topicID})
	slog.Info("candidate added", "topic_id", topicID, "candidate_id", c.ID)
	return c, nil
}

// EditCandidate updates descriptive fields. The vote counter is never
// touched here.
func (s *Service) EditCandidate(ctx context.Context, topicID, candidateID string, req models.CandidateRequest) (models.Candidate, error) {
	c := candidateFromRequest(req)
	if c.Name == "" {
		return models.Candidate{}, fmt.Errorf("%w: candidate name is required", ErrInvalidInput)
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE candidate
		SET name = $1, description = $2, position = $3, image_url = $4, campaign_details = $5, updated_at = $6
		WHERE id = $7 AND topic_id = $8
	`, c.Name, c.Description, c.Position, c.ImageURL, c.CampaignDetails, s.now(), candidateID, topicID)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to update candidate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Candidate{}, s.missingCandidate(ctx, topicID)
	}

	s.events.Publish(notify.Event{Kind: notify.CandidateChanged, TopicID: topicID})
	return s.getCandidate(ctx, topicID, candidateID)
}

func (s *Service) RemoveCandidate(ctx context.Context, topicID, candidateID string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM candidate WHERE id = $1 AND topic_id = $2`, candidateID, topicID)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.missingCandidate(ctx, topicID)
	}

	s.events.Publish(notify.Event{Kind: notify.CandidateChanged, TopicID: topicID})
	slog.Info("candidate removed", "topic_id", topicID, "candidate_id", candidateID)
	return nil
}

// SetCandidateImage uploads an image to object storage and stores its
// public URL on the candidate.
func (s *Service) SetCandidateImage(ctx context.Context, topicID, candidateID, filename, contentType string, body io.Reader) (models.Candidate, error) {
	if _, err := s.getCandidate(ctx, topicID, candidateID); err != nil {
		return models.Candidate{}, err
	}

	url, err := s.images.Upload(ctx, storage.CandidateImageKey(topicID, candidateID, filename), contentType, body)
	if err != nil {
		return models.Candidate{}, err
	}

	_, err = s.conn.ExecContext(ctx, `
		UPDATE candidate SET image_url = $1, updated_at = $2 WHERE id = $3 AND topic_id = $4
	`, url, s.now(), candidateID, topicID)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to store image url: %w", err)
	}

	s.events.Publish(notify.Event{Kind: notify.CandidateChanged, TopicID: topicID})
	slog.Info("candidate image uploaded", "topic_id", topicID, "candidate_id", candidateID)
	return s.getCandidate(ctx, topicID, candidateID)
}

func (s *Service) missingCandidate(ctx context.Context, topicID string) error {
	var one int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM voting_topic WHERE id = $1`, topicID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrTopicNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query topic: %w", err)
	}
	return ErrCandidateNotFound
}

const candidateColumns = `id, name, description, position, image_url, campaign_details, votes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner, dest ...any) (models.Candidate, error) {
	var c models.Candidate
	fields := append([]any{&c.ID, &c.Name, &c.Description, &c.Position, &c.ImageURL, &c.CampaignDetails, &c.Votes}, dest...)
	err := row.Scan(fields...)
	return c, err
}

func (s *Service) getCandidate(ctx context.Context, topicID, candidateID string) (models.Candidate, error) {
	c, err := scanCandidate(s.conn.QueryRowContext(ctx, `
		SELECT `+candidateColumns+` FROM candidate WHERE id = $1 AND topic_id = $2
	`, candidateID, topicID))
	if err == sql.ErrNoRows {
		return models.Candidate{}, s.missingCandidate(ctx, topicID)
	}
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to query candidate: %w", err)
	}
	return c, nil
}

const topicColumns = `id, name, title, description, topic_type, max_selections, start_date, end_date, status, created_by, created_at, updated_at`

func scanTopic(row rowScanner) (models.VotingTopic, error) {
	var t models.VotingTopic
	err := row.Scan(&t.ID, &t.Name, &t.Title, &t.Description, &t.Type, &t.MaxSelections,
		&t.StartDate, &t.EndDate, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	t.Candidates = []models.Candidate{}
	return t, err
}

// loadTopic reads a topic with its candidates in list order.
func loadTopic(ctx context.Context, q db.DBTX, topicID string) (models.VotingTopic, error) {
	topic, err := scanTopic(q.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM voting_topic WHERE id = $1`, topicID))
	if err == sql.ErrNoRows {
		return models.VotingTopic{}, ErrTopicNotFound
	}
	if err != nil {
		return models.VotingTopic{}, fmt.Errorf("failed to query topic: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+candidateColumns+` FROM candidate WHERE topic_id = $1 ORDER BY ordinal, id
	`, topicID)
	if err != nil {
		return models.VotingTopic{}, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return models.VotingTopic{}, fmt.Errorf("failed to scan candidate: %w", err)
		}
		topic.Candidates = append(topic.Candidates, c)
	}
	return topic, rows.Err()
}

func (s *Service) GetTopic(ctx context.Context, topicID string) (models.VotingTopic, error) {
	return loadTopic(ctx, s.conn, topicID)
}

// GetAllTopics returns every topic in creation order with its candidates.
func (s *Service) GetAllTopics(ctx context.Context) ([]models.VotingTopic, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+topicColumns+` FROM voting_topic ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}

	topics := []models.VotingTopic{}
	index := make(map[string]int)
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		index[t.ID] = len(topics)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	crows, err := s.conn.QueryContext(ctx, `
		SELECT `+candidateColumns+`, topic_id FROM candidate ORDER BY topic_id, ordinal, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer crows.Close()

	for crows.Next() {
		var topicID string
		c, err := scanCandidate(crows, &topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if i, ok := index[topicID]; ok {
			topics[i].Candidates = append(topics[i].Candidates, c)
		}
	}
	return topics, crows.Err()
}
