// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/votedesk/models"
)

// Placeholders for references that no longer resolve.
const (
	UnknownUser      = "Unknown User"
	UnknownTopic     = "Unknown Topic"
	UnknownCandidate = "Unknown Candidate"
	NoCandidates     = "No candidates"
)

// TopicTotal sums the candidate counters of a topic.
func TopicTotal(t models.VotingTopic) int {
	total := 0
	for _, c := range t.Candidates {
		total += c.Votes
	}
	return total
}

// LeadingCandidate returns the name of the first candidate holding the
// highest count, or NoCandidates for an empty topic.
func LeadingCandidate(t models.VotingTopic) string {
	if len(t.Candidates) == 0 {
		return NoCandidates
	}
	lead := t.Candidates[0]
	for _, c := range t.Candidates[1:] {
		if c.Votes > lead.Votes {
			lead = c
		}
	}
	return lead.Name
}

// share returns votes as a percentage of total; an empty total divides by 1.
func share(votes, total int) float64 {
	if total == 0 {
		total = 1
	}
	return float64(votes) / float64(total) * 100
}

func topicStats(t models.VotingTopic, grandTotal int) models.TopicStats {
	total := TopicTotal(t)

	stats := models.TopicStats{
		TopicID:          t.ID,
		TopicName:        t.Name,
		TotalVotes:       total,
		LeadingCandidate: LeadingCandidate(t),
		Candidates:       make([]models.CandidateShare, 0, len(t.Candidates)),
	}
	if len(t.Candidates) > 0 {
		stats.AverageVotes = float64(total) / float64(len(t.Candidates))
	}
	if grandTotal > 0 {
		stats.VotePercentage = float64(total) / float64(grandTotal) * 100
	}

	for _, c := range t.Candidates {
		stats.Candidates = append(stats.Candidates, models.CandidateShare{
			CandidateID: c.ID,
			Name:        c.Name,
			Position:    c.Position,
			Votes:       c.Votes,
			Percentage:  share(c.Votes, total),
		})
	}
	return stats
}

// Summarize derives per-topic aggregates from the current counters.
func Summarize(topics []models.VotingTopic, now time.Time) models.Report {
	grand := 0
	for _, t := range topics {
		grand += TopicTotal(t)
	}

	r := models.Report{
		GrandTotal:  grand,
		GeneratedAt: now,
		Topics:      make([]models.TopicStats, 0, len(topics)),
	}
	for _, t := range topics {
		r.Topics = append(r.Topics, topicStats(t, grand))
	}
	return r
}

// AuditFeed enriches ballots with display names, newest first. Lookups
// that miss fall back to the Unknown placeholders.
func AuditFeed(ballots []models.BallotRecord, userNames map[string]string, topics []models.VotingTopic, now time.Time) []models.AuditEntry {
	byID := make(map[string]models.VotingTopic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}

	sorted := make([]models.BallotRecord, len(ballots))
	copy(sorted, ballots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	entries := make([]models.AuditEntry, 0, len(sorted))
	for _, b := range sorted {
		entry := models.AuditEntry{
			BallotID:      b.ID,
			UserName:      UnknownUser,
			TopicName:     UnknownTopic,
			CandidateName: UnknownCandidate,
			Timestamp:     b.Timestamp,
			RelativeTime:  humanize.RelTime(b.Timestamp, now, "ago", "from now"),
			Verified:      b.Verified,
		}
		if name, ok := userNames[b.UserID]; ok {
			entry.UserName = name
		}
		if t, ok := byID[b.TopicID]; ok {
			entry.TopicName = t.Name
			if c, ok := t.Candidate(b.CandidateID); ok {
				entry.CandidateName = c.Name
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// WriteCSV writes one block per topic. Fields are joined with commas as-is;
// embedded commas or quotes are not escaped.
func WriteCSV(w io.Writer, topics []models.VotingTopic) error {
	var rows []string
	for _, t := range topics {
		stats := topicStats(t, 0)

		rows = append(rows, "Topic: "+t.Name, "Candidate,Position,Votes,Percentage")
		for _, c := range stats.Candidates {
			rows = append(rows, strings.Join([]string{
				c.Name,
				c.Position,
				strconv.Itoa(c.Votes),
				fmt.Sprintf("%.2f%%", c.Percentage),
			}, ","))
		}
		rows = append(rows,
			"",
			fmt.Sprintf("Total Votes: %d", stats.TotalVotes),
			fmt.Sprintf("Average Votes: %.2f", stats.AverageVotes),
			"Leading Candidate: "+stats.LeadingCandidate,
			",,,",
		)
	}

	_, err := io.WriteString(w, strings.Join(rows, "\n"))
	return err
}

// CSVFilename names the export after its UTC date.
func CSVFilename(t time.Time) string {
	return "voting-report-" + t.UTC().Format("2006-01-02") + ".csv"
}
