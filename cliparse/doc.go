// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

An optional .env file can be loaded into the environment first:

	_ = cliparse.LoadDotEnv(".env")

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type (sqlite or postgres)
	-jwt-secret   Session signing secret
	-ip-salt      Salt for ballot IP hashes
	-admin-email  Account promoted to admin at startup
	-s3-bucket    Bucket for candidate images
	-log-level    debug, info, warn, error

# Environment Variables

Flags fall back to environment variables, decoded with envconfig:

	PORT           → -p (default 3318)
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t (default sqlite)
	JWT_SECRET     → -jwt-secret
	IP_HASH_SALT   → -ip-salt (defaults to JWT_SECRET)
	ADMIN_EMAIL    → -admin-email
	ENFORCE_CANDIDATE_CAP → -candidate-cap (default false)
	S3_BUCKET      → -s3-bucket
	LOG_LEVEL      → -log-level (default info)

Environment only:

	SESSION_TTL (default 24h), ALLOWED_ORIGINS, S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY,
	S3_SECRET_KEY, S3_PUBLIC_URL, LOG_FORMAT (text or json)

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if DATABASE_URL or JWT_SECRET is missing, if the
database type is unknown, or if an environment value cannot be decoded.
*/
package cliparse
