// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting implements the ballot workflows.

# Casting

CastBallot writes one ballot row per selected candidate, bumps each
candidate's counter in place and adds the topic to the voter's voted-topic
set, all in one transaction:

	ids, err := svc.CastBallot(ctx, userID, topicID, []string{a, b}, client)
	if errors.Is(err, voting.ErrAlreadyVoted) {
		// 409
	}

The voted-topic row is keyed (user_id, topic_id). When two requests race,
the loser's insert affects no rows and its transaction rolls back with
ErrAlreadyVoted, so counters are never double counted.

# Resetting

ResetTopic and ResetAll zero counters, delete ballots and shrink voted-topic
sets. These are the only operations that remove voted-topic entries.

# Administration

Topics and candidates are managed through AddTopic, UpdateTopic,
RemoveTopic, AddCandidate, EditCandidate, RemoveCandidate and
SetCandidateImage. Removing a topic leaves its ballots in place.
*/
package voting
