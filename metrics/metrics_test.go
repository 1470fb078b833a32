// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(nil)

	m.VotesRecorded(2)
	m.VoteRejected(ReasonAlreadyVoted)
	m.VoteRejected(ReasonAlreadyVoted)
	m.Reset("topic")

	require.Equal(t, 2.0, testutil.ToFloat64(m.votesRecorded))
	require.Equal(t, 2.0, testutil.ToFloat64(m.voteRejections.WithLabelValues(ReasonAlreadyVoted)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.resets.WithLabelValues("topic")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.resets.WithLabelValues("all")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	dropped := uint64(7)
	m := New(func() uint64 { return dropped })
	m.ObserveRequest("GET", "GET /topics", http.StatusOK, 15*time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.True(t, strings.Contains(body, "votedesk_events_dropped_total 7"), body)
	require.True(t, strings.Contains(body, "votedesk_http_request_duration_seconds_count"), body)
}
