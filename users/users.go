// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/db"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/notify"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
	ErrInactive           = errors.New("account inactive")
)

// ResetTokenTTL bounds how long a password reset token stays usable.
const ResetTokenTTL = time.Hour

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

type Service struct {
	conn   *sql.DB
	secret []byte
	ttl    time.Duration
	events notify.Publisher
	now    func() time.Time
}

func NewService(conn *sql.DB, cfg cliparse.Config, events notify.Publisher) *Service {
	if events == nil {
		events = notify.Discard{}
	}
	return &Service{
		conn:   conn,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.SessionTTL,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active, non-admin account with an empty voted-topic
// set and signs it in.
func (s *Service) Register(ctx context.Context, email, displayName, password string) (Session, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if email == "" || displayName == "" {
		return Session{}, fmt.Errorf("%w: email and display name are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrInvalidPassword) {
		return Session{}, fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidInput, auth.MinPasswordLength, auth.MaxPasswordLength)
	}
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		Status:       models.UserActive,
		VotedTopics:  []string{},
		CreatedAt:    now,
		LastLoginAt:  &now,
		PasswordHash: hash,
	}

	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO app_user (id, email, display_name, password_hash, is_admin, status, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO NOTHING
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash, false, user.Status, now, now)
	if err != nil {
		return Session{}, fmt.Errorf("failed to insert user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Session{}, fmt.Errorf("failed to insert user: %w", err)
	} else if n == 0 {
		return Session{}, ErrEmailTaken
	}

	slog.Info("user registered", "user_id", user.ID)
	return s.startSession(user)
}

// Login verifies credentials, stamps last_login_at and issues a session.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.findByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if user.Status != models.UserActive {
		return Session{}, ErrInactive
	}

	now := s.now()
	if _, err := s.conn.ExecContext(ctx, `UPDATE app_user SET last_login_at = $1 WHERE id = $2`, now, user.ID); err != nil {
		return Session{}, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLoginAt = &now

	return s.startSession(user)
}

func (s *Service) startSession(user models.User) (Session, error) {
	token, expiresAt, err := auth.IssueSession(user.ID, s.secret, s.ttl)
	if err != nil {
		return Session{}, err
	}

	s.events.Publish(notify.Event{Kind: notify.SignedIn, UserID: user.ID})
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a session token to its (still existing, active) user.
func (s *Service) Authenticate(ctx context.Context, token string) (models.User, error) {
	userID, err := auth.ParseSession(token, s.secret)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return models.User{}, auth.ErrInvalidToken
	}
	if err != nil {
		return models.User{}, err
	}
	if user.Status != models.UserActive {
		return models.User{}, ErrInactive
	}
	return user, nil
}

// Logout records the sign-out. Session tokens are stateless and simply
// expire.
func (s *Service) Logout(ctx context.Context, userID string) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE app_user SET last_logout_at = $1 WHERE id = $2`, s.now(), userID)
	if err != nil {
		return fmt.Errorf("failed to record logout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}

	s.events.Publish(notify.Event{Kind: notify.SignedOut, UserID: userID})
	return nil
}

// RequestPasswordReset issues a reset token for email. Unknown addresses
// return an empty token and no error so callers cannot enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.findByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		slog.Info("password reset requested for unknown email")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO password_reset (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, auth.HashToken(token), user.ID, now.Add(ResetTokenTTL), now)
	if err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	// No mail transport is wired; delivery is the operator's concern.
	slog.Info("password reset issued", "user_id", user.ID, "expires_in", ResetTokenTTL.String())
	return token, nil
}

// ConfirmPasswordReset sets a new password and burns every outstanding reset
// token of the user.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	hash, err := auth.HashPassword(newPassword)
	if errors.Is(err, auth.ErrInvalidPassword) {
		return fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidInput, auth.MinPasswordLength, auth.MaxPasswordLength)
	}
	if err != nil {
		return err
	}

	return db.WithTx(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		var userID string
		var expiresAt time.Time
		err := tx.QueryRowContext(ctx, `
			SELECT user_id, expires_at FROM password_reset WHERE token_hash = $1
		`, auth.HashToken(token)).Scan(&userID, &expiresAt)
		if err == sql.ErrNoRows {
			return ErrResetTokenInvalid
		}
		if err != nil {
			return fmt.Errorf("failed to look up reset token: %w", err)
		}
		if !s.now().Before(expiresAt) {
			return ErrResetTokenInvalid
		}

		if _, err := tx.ExecContext(ctx, `UPDATE app_user SET password_hash = $1 WHERE id = $2`, hash, userID); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear reset tokens: %w", err)
		}

		slog.Info("password reset completed", "user_id", userID)
		return nil
	})
}

const userColumns = `id, email, display_name, password_hash, is_admin, status, created_at, last_login_at, last_logout_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsAdmin, &u.Status,
		&u.CreatedAt, &u.LastLoginAt, &u.LastLogoutAt)
	return u, err
}

func (s *Service) findByEmail(ctx context.Context, email string) (models.User, error) {
	user, err := scanUser(s.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM app_user WHERE email = $1`, email))
	if err == sql.ErrNoRows {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetUser loads a user together with the voted-topic set.
func (s *Service) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := scanUser(s.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM app_user WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user: %w", err)
	}

	voted, err := VotedTopics(ctx, s.conn, id)
	if err != nil {
		return models.User{}, err
	}
	user.VotedTopics = voted
	return user, nil
}

// VotedTopics returns the sorted voted-topic set of a user.
func VotedTopics(ctx context.Context, q db.DBTX, userID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT topic_id FROM user_voted_topic WHERE user_id = $1 ORDER BY topic_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query voted topics: %w", err)
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan voted topic: %w", err)
		}
		topics = append(topics, id)
	}
	return topics, rows.Err()
}

// ListUsers returns every user ordered by creation time, with voted sets.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM app_user ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	list := []models.User{}
	index := make(map[string]int)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.VotedTopics = []string{}
		index[u.ID] = len(list)
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	voted, err := s.conn.QueryContext(ctx, `SELECT user_id, topic_id FROM user_voted_topic ORDER BY user_id, topic_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query voted topics: %w", err)
	}
	defer voted.Close()

	for voted.Next() {
		var userID, topicID string
		if err := voted.Scan(&userID, &topicID); err != nil {
			return nil, fmt.Errorf("failed to scan voted topic: %w", err)
		}
		if i, ok := index[userID]; ok {
			list[i].VotedTopics = append(list[i].VotedTopics, topicID)
		}
	}
	return list, voted.Err()
}

func (s *Service) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE app_user SET is_admin = $1 WHERE id = $2`, isAdmin, userID)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	slog.Info("admin flag changed", "user_id", userID, "is_admin", isAdmin)
	return nil
}

// PromoteByEmail grants admin rights to the account registered with email.
func (s *Service) PromoteByEmail(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	return s.SetAdmin(ctx, user.ID, true)
}

// DisplayNames maps every user id to its display name.
func (s *Service) DisplayNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, display_name FROM app_user`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// IsAdmin reports whether userID currently holds admin rights.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := s.conn.QueryRowContext(ctx, `SELECT is_admin FROM app_user WHERE id = $1`, userID).Scan(&isAdmin)
	if err == sql.ErrNoRows {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to query admin flag: %w", err)
	}
	return isAdmin, nil
}
