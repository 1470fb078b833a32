// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/db"
	"github.com/danielhkuo/votedesk/models"
)

// TestJWTSecret signs sessions issued by GetTestConfig.
const TestJWTSecret = "test-jwt-secret"

// SetupTestDB returns a migrated, private in-memory SQLite database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()[:8]
	ctx := context.Background()

	conn, err := db.Open(ctx, cliparse.DatabaseSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(ctx, conn, cliparse.DatabaseSQLite); err != nil {
		conn.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Shared-cache SQLite locks whole tables; one connection serializes access.
	conn.SetMaxOpenConns(1)

	t.Cleanup(func() { conn.Close() })
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseType: cliparse.DatabaseSQLite,
		DatabaseURL:  "file:test?mode=memory&cache=shared",
		JWTSecret:    TestJWTSecret,
		SessionTTL:   time.Hour,
		IPHashSalt:   "test-ip-salt",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// CreateTestUser inserts an active user and returns its ID.
func CreateTestUser(t *testing.T, conn *sql.DB, displayName string, isAdmin bool) string {
	t.Helper()

	id := uuid.NewString()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	email := strings.ToLower(strings.ReplaceAll(displayName, " ", ".")) + "." + id[:6] + "@example.com"
	_, err = conn.Exec(`
		INSERT INTO app_user (id, email, display_name, password_hash, is_admin, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, email, displayName, hash, isAdmin, models.UserActive, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return id
}

// CreateTestTopic inserts an active topic and returns its ID.
func CreateTestTopic(t *testing.T, conn *sql.DB, name string, maxSelections int) string {
	t.Helper()

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := conn.Exec(`
		INSERT INTO voting_topic (id, name, title, description, topic_type, max_selections, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, id, name, name, "A test topic", models.TypeSingle, maxSelections, models.StatusActive, "", now, now)
	if err != nil {
		t.Fatalf("Failed to create test topic: %v", err)
	}

	return id
}

// AddTestCandidate appends a candidate to a topic and returns its ID.
func AddTestCandidate(t *testing.T, conn *sql.DB, topicID, name string) string {
	t.Helper()

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := conn.Exec(`
		INSERT INTO candidate (id, topic_id, ordinal, name, description, position, votes, created_at, updated_at)
		VALUES ($1, $2, (SELECT COUNT(*) FROM candidate WHERE topic_id = $3), $4, '', '', 0, $5, $6)
	`, id, topicID, topicID, name, now, now)
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return id
}

// SessionToken issues a bearer token for userID signed with TestJWTSecret.
func SessionToken(t *testing.T, userID string) string {
	t.Helper()

	token, _, err := auth.IssueSession(userID, []byte(TestJWTSecret), time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}
	return token
}

// BearerHeader builds the Authorization header map for MakeRequest.
func BearerHeader(t *testing.T, userID string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + SessionToken(t, userID)}
}

// CandidateVotes reads the stored counter of a candidate.
func CandidateVotes(t *testing.T, conn *sql.DB, candidateID string) int {
	t.Helper()

	var votes int
	if err := conn.QueryRow(`SELECT votes FROM candidate WHERE id = $1`, candidateID).Scan(&votes); err != nil {
		t.Fatalf("Failed to read candidate votes: %v", err)
	}
	return votes
}

// CountRows returns the row count of table.
func CountRows(t *testing.T, conn *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
