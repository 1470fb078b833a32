// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/testutil"
	"github.com/danielhkuo/votedesk/voting"
)

func TestCreateAndUpdateTopic(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAdminHandler(env.votes, env.users)
	admin := env.createUser(t, "Admin", true)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{"valid topic", models.TopicRequest{Name: "Class Rep", MaxSelections: 2}, http.StatusCreated},
		{"missing name", models.TopicRequest{MaxSelections: 1}, http.StatusBadRequest},
		{"bad status", models.TopicRequest{Name: "X", Status: "paused"}, http.StatusBadRequest},
		{"invalid JSON", "nope", http.StatusBadRequest},
	}

	var created models.VotingTopic
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/admin/topics", tt.requestBody, nil)
			w := httptest.NewRecorder()

			handler.CreateTopic(w, asUser(req, admin))

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus == http.StatusCreated {
				testutil.AssertJSON(t, w, &created)
			}
		})
	}

	if created.Status != models.StatusDraft || created.CreatedBy != admin.ID {
		t.Fatalf("Unexpected created topic: %+v", created)
	}

	req := testutil.MakeRequest("PUT", "/admin/topics/"+created.ID,
		models.TopicRequest{Name: "Class Rep", MaxSelections: 2, Status: models.StatusActive}, nil)
	req.SetPathValue("id", created.ID)
	w := httptest.NewRecorder()
	handler.UpdateTopic(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	var updated models.VotingTopic
	testutil.AssertJSON(t, w, &updated)
	if updated.Status != models.StatusActive {
		t.Errorf("Expected active, got %s", updated.Status)
	}

	req = testutil.MakeRequest("PUT", "/admin/topics/"+created.ID,
		models.TopicRequest{Name: "Class Rep", MaxSelections: 0}, nil)
	req.SetPathValue("id", created.ID)
	w = httptest.NewRecorder()
	handler.UpdateTopic(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestDeleteTopic(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAdminHandler(env.votes, env.users)
	admin := env.createUser(t, "Admin", true)
	topicID := testutil.CreateTestTopic(t, env.db, "Doomed", 1)

	for _, expected := range []int{http.StatusOK, http.StatusNotFound} {
		req := httptest.NewRequest("DELETE", "/admin/topics/"+topicID, nil)
		req.SetPathValue("id", topicID)
		w := httptest.NewRecorder()
		handler.DeleteTopic(w, asUser(req, admin))
		testutil.AssertStatus(t, w, expected)
	}
}

func TestCandidateEndpoints(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAdminHandler(env.votes, env.users)
	admin := env.createUser(t, "Admin", true)
	topicID := testutil.CreateTestTopic(t, env.db, "Mascot", 1)

	req := testutil.MakeRequest("POST", "/admin/topics/"+topicID+"/candidates",
		models.CandidateRequest{Name: "Owl", Position: "Bird"}, nil)
	req.SetPathValue("id", topicID)
	w := httptest.NewRecorder()
	handler.AddCandidate(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var candidate models.Candidate
	testutil.AssertJSON(t, w, &candidate)
	if candidate.ID == "" || candidate.Votes != 0 {
		t.Fatalf("Unexpected candidate: %+v", candidate)
	}

	req = testutil.MakeRequest("PUT", "/admin/topics/"+topicID+"/candidates/"+candidate.ID,
		models.CandidateRequest{Name: "Snowy Owl"}, nil)
	req.SetPathValue("id", topicID)
	req.SetPathValue("cid", candidate.ID)
	w = httptest.NewRecorder()
	handler.EditCandidate(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("PUT", "/admin/topics/"+topicID+"/candidates/missing",
		models.CandidateRequest{Name: "Ghost"}, nil)
	req.SetPathValue("id", topicID)
	req.SetPathValue("cid", "missing")
	w = httptest.NewRecorder()
	handler.EditCandidate(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	req = httptest.NewRequest("DELETE", "/admin/topics/"+topicID+"/candidates/"+candidate.ID, nil)
	req.SetPathValue("id", topicID)
	req.SetPathValue("cid", candidate.ID)
	w = httptest.NewRecorder()
	handler.RemoveCandidate(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusOK)
}

type stubStore struct{ key string }

func (s *stubStore) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	s.key = key
	_, err := io.Copy(io.Discard, body)
	return "https://img.example.com/" + key, err
}

func imageRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest("POST", "/admin/topics/x/candidates/y/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadCandidateImage(t *testing.T) {
	env := newTestEnv(t)
	store := &stubStore{}
	votes := voting.NewService(env.db, nil, nil, store)
	handler := NewAdminHandler(votes, env.users)
	admin := env.createUser(t, "Admin", true)

	topicID := testutil.CreateTestTopic(t, env.db, "Mascot", 1)
	candidateID := testutil.AddTestCandidate(t, env.db, topicID, "Owl")

	// Minimal PNG signature is enough for content sniffing
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	req := imageRequest(t, "owl.png", png)
	req.SetPathValue("id", topicID)
	req.SetPathValue("cid", candidateID)
	w := httptest.NewRecorder()
	handler.UploadCandidateImage(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	var candidate models.Candidate
	testutil.AssertJSON(t, w, &candidate)
	if !strings.HasPrefix(candidate.ImageURL, "https://img.example.com/candidates/"+topicID+"/"+candidateID+"/") {
		t.Errorf("Unexpected image URL %q", candidate.ImageURL)
	}

	req = imageRequest(t, "notes.txt", []byte("plain text, not an image"))
	req.SetPathValue("id", topicID)
	req.SetPathValue("cid", candidateID)
	w = httptest.NewRecorder()
	handler.UploadCandidateImage(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestUploadCandidateImage_StorageNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAdminHandler(env.votes, env.users)
	admin := env.createUser(t, "Admin", true)

	topicID := testutil.CreateTestTopic(t, env.db, "Mascot", 1)
	candidateID := testutil.AddTestCandidate(t, env.db, topicID, "Owl")

	req := imageRequest(t, "owl.png", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))
	req.SetPathValue("id", topicID)
	req.SetPathValue("cid", candidateID)
	w := httptest.NewRecorder()
	handler.UploadCandidateImage(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}

func TestResetVotes(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAdminHandler(env.votes, env.users)
	admin := env.createUser(t, "Admin", true)
	voter := env.createUser(t, "Voter", false)

	t1 := testutil.CreateTestTopic(t, env.db, "One", 1)
	t2 := testutil.CreateTestTopic(t, env.db, "Two", 1)
	c1 := testutil.AddTestCandidate(t, env.db, t1, "A")
	c2 := testutil.AddTestCandidate(t, env.db, t2, "B")
	for topic, candidate := range map[string]string{t1: c1, t2: c2} {
		if _, err := env.votes.Vote(t.Context(), voter.ID, topic, candidate, models.ClientInfo{}); err != nil {
			t.Fatalf("Failed to vote: %v", err)
		}
	}

	// Per-topic reset
	req := testutil.MakeRequest("POST", "/admin/reset", models.ResetRequest{TopicID: t1}, nil)
	w := httptest.NewRecorder()
	handler.ResetVotes(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	if testutil.CandidateVotes(t, env.db, c1) != 0 || testutil.CandidateVotes(t, env.db, c2) != 1 {
		t.Error("Topic reset touched the wrong counters")
	}

	// Unknown topic
	req = testutil.MakeRequest("POST", "/admin/reset", models.ResetRequest{TopicID: "missing"}, nil)
	w = httptest.NewRecorder()
	handler.ResetVotes(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	// Explicit global reset
	req = testutil.MakeRequest("POST", "/admin/reset", models.ResetRequest{All: true}, nil)
	w = httptest.NewRecorder()
	handler.ResetVotes(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	if testutil.CandidateVotes(t, env.db, c2) != 0 {
		t.Error("Global reset did not zero counters")
	}
	if n := testutil.CountRows(t, env.db, "ballot"); n != 0 {
		t.Errorf("Expected no ballots after global reset, got %d", n)
	}
}

func TestResetVotes_RejectsAmbiguousBodies(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAdminHandler(env.votes, env.users)
	admin := env.createUser(t, "Admin", true)
	voter := env.createUser(t, "Voter", false)

	keep := testutil.CreateTestTopic(t, env.db, "Keep", 1)
	other := testutil.CreateTestTopic(t, env.db, "Other", 1)
	candidateID := testutil.AddTestCandidate(t, env.db, keep, "A")
	if _, err := env.votes.Vote(t.Context(), voter.ID, keep, candidateID, models.ClientInfo{}); err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}

	tests := []struct {
		name string
		body interface{}
	}{
		{"misspelled topic key", map[string]string{"topicId": other}},
		{"unknown extra field", map[string]interface{}{"topic_id": other, "scope": "all"}},
		{"empty object", map[string]string{}},
		{"empty body", nil},
		{"both scopes", models.ResetRequest{TopicID: other, All: true}},
		{"all false", map[string]bool{"all": false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/admin/reset", tt.body, nil)
			w := httptest.NewRecorder()

			handler.ResetVotes(w, asUser(req, admin))

			testutil.AssertStatus(t, w, http.StatusBadRequest)
			if votes := testutil.CandidateVotes(t, env.db, candidateID); votes != 1 {
				t.Errorf("Expected counter untouched at 1, got %d", votes)
			}
			if n := testutil.CountRows(t, env.db, "ballot"); n != 1 {
				t.Errorf("Expected ballot untouched, got %d rows", n)
			}
		})
	}
}

func TestBallotEndpoints(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAdminHandler(env.votes, env.users)
	admin := env.createUser(t, "Admin", true)
	voter := env.createUser(t, "Voter", false)

	topicID := testutil.CreateTestTopic(t, env.db, "Mascot", 1)
	candidateID := testutil.AddTestCandidate(t, env.db, topicID, "Owl")
	ballotID, err := env.votes.Vote(t.Context(), voter.ID, topicID, candidateID, models.ClientInfo{})
	if err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}

	for _, path := range []string{"/admin/ballots", "/admin/ballots?topic_id=" + topicID} {
		w := httptest.NewRecorder()
		handler.ListBallots(w, asUser(httptest.NewRequest("GET", path, nil), admin))
		testutil.AssertStatus(t, w, http.StatusOK)

		var ballots []models.BallotRecord
		testutil.AssertJSON(t, w, &ballots)
		if len(ballots) != 1 || ballots[0].ID != ballotID {
			t.Errorf("%s: unexpected ballots %+v", path, ballots)
		}
	}

	req := httptest.NewRequest("POST", "/admin/ballots/"+ballotID+"/verify", nil)
	req.SetPathValue("id", ballotID)
	w := httptest.NewRecorder()
	handler.VerifyBallot(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	var ballot models.BallotRecord
	testutil.AssertJSON(t, w, &ballot)
	if !ballot.Verified || ballot.VerifiedBy == nil || *ballot.VerifiedBy != admin.ID {
		t.Errorf("Unexpected verified ballot: %+v", ballot)
	}

	req = httptest.NewRequest("POST", "/admin/ballots/missing/verify", nil)
	req.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	handler.VerifyBallot(w, asUser(req, admin))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestUserAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAdminHandler(env.votes, env.users)
	admin := env.createUser(t, "Admin", true)
	voter := env.createUser(t, "Voter", false)

	w := httptest.NewRecorder()
	handler.ListUsers(w, asUser(httptest.NewRequest("GET", "/admin/users", nil), admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	var list []models.User
	testutil.AssertJSON(t, w, &list)
	if len(list) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(list))
	}

	tests := []struct {
		name           string
		userID         string
		isAdmin        bool
		expectedStatus int
	}{
		{"promote voter", voter.ID, true, http.StatusOK},
		{"unknown user", "missing", true, http.StatusNotFound},
		{"self demotion", admin.ID, false, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("PUT", "/admin/users/"+tt.userID+"/admin", models.SetAdminRequest{IsAdmin: tt.isAdmin}, nil)
			req.SetPathValue("id", tt.userID)
			w := httptest.NewRecorder()

			handler.SetAdmin(w, asUser(req, admin))

			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	isAdmin, err := env.users.IsAdmin(t.Context(), voter.ID)
	if err != nil || !isAdmin {
		t.Errorf("Expected voter to be promoted, got %v (err %v)", isAdmin, err)
	}
}
