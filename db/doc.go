// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the voting store and applies its schema.

# Connecting

Open accepts either backend:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

SQLite DSNs get foreign keys and a busy timeout unless the caller already
set the foreign_keys pragma.

# Migrations

Schema changes live in migrations/ as goose SQL files embedded into the
binary. Migrate applies whatever is pending and is safe to call on every
start.

# Tables

  - app_user: accounts, admin flag, login/logout stamps
  - voting_topic: one contest per row
  - candidate: ordered choices of a topic, each with a vote counter
  - ballot: append-only record of every vote cast
  - user_voted_topic: the voted-topic set, keyed (user_id, topic_id)
  - password_reset: hashed single-use reset tokens

	voting_topic 1──* candidate (ON DELETE CASCADE)
	app_user     1──* user_voted_topic
	app_user     1──* password_reset

Ballots carry no foreign keys so that removing a topic or candidate
leaves the ballot history intact.

# Transactions

WithTx wraps a unit of work; the callback only sees the DBTX interface so
it cannot reach around the transaction by accident.
*/
package db
