// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/testutil"
	"github.com/danielhkuo/votedesk/users"
	"github.com/danielhkuo/votedesk/voting"
)

type testEnv struct {
	db    *sql.DB
	cfg   cliparse.Config
	users *users.Service
	votes *voting.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	return &testEnv{
		db:    db,
		cfg:   cfg,
		users: users.NewService(db, cfg, nil),
		votes: voting.NewService(db, nil, nil, nil),
	}
}

// createUser inserts a user and loads it the way the auth middleware would.
func (e *testEnv) createUser(t *testing.T, name string, isAdmin bool) models.User {
	t.Helper()

	id := testutil.CreateTestUser(t, e.db, name, isAdmin)
	user, err := e.users.GetUser(t.Context(), id)
	if err != nil {
		t.Fatalf("Failed to load test user: %v", err)
	}
	return user
}

// asUser attaches user to the request context, as RequireUser does.
func asUser(r *http.Request, user models.User) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), user))
}
