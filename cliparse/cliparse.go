// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	JWTSecret  string
	SessionTTL time.Duration
	IPHashSalt string
	AdminEmail string

	// AllowedOrigins may open the event stream cross-origin. Same-host
	// origins are always allowed.
	AllowedOrigins []string

	// EnforceCandidateCap rejects adding candidates past max_selections.
	EnforceCandidateCap bool

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	LogLevel  string
	LogFormat string
}

// environment is the env-variable view of Config. Flags win over these.
type environment struct {
	Port         int           `envconfig:"PORT" default:"3318"`
	DatabaseURL  string        `envconfig:"DATABASE_URL"`
	DatabaseType string        `envconfig:"DATABASE_TYPE" default:"sqlite"`
	JWTSecret    string        `envconfig:"JWT_SECRET"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	IPHashSalt   string        `envconfig:"IP_HASH_SALT"`
	AdminEmail   string        `envconfig:"ADMIN_EMAIL"`
	Origins      []string      `envconfig:"ALLOWED_ORIGINS"`
	CandidateCap bool          `envconfig:"ENFORCE_CANDIDATE_CAP" default:"false"`
	S3Bucket     string        `envconfig:"S3_BUCKET"`
	S3Region     string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint   string        `envconfig:"S3_ENDPOINT"`
	S3AccessKey  string        `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey  string        `envconfig:"S3_SECRET_KEY"`
	S3PublicURL  string        `envconfig:"S3_PUBLIC_URL"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string        `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error. Variables already set are left alone.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("votedesk", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Session signing secret (prefer env)")
	fs.StringVar(&cfg.IPHashSalt, "ip-salt", "", "Salt for ballot IP hashes (prefer env)")

	fs.StringVar(&cfg.AdminEmail, "admin-email", "", "Email promoted to admin at startup")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", "", "Bucket for candidate images")
	fs.BoolVar(&cfg.EnforceCandidateCap, "candidate-cap", false, "Limit candidates per topic to max_selections")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = env.Port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = env.DatabaseURL
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = env.DatabaseType
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = env.JWTSecret
	}
	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = env.IPHashSalt
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = env.AdminEmail
	}
	if cfg.S3Bucket == "" {
		cfg.S3Bucket = env.S3Bucket
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = env.LogLevel
	}
	if !cfg.EnforceCandidateCap {
		cfg.EnforceCandidateCap = env.CandidateCap
	}
	for _, o := range env.Origins {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, strings.TrimRight(o, "/"))
		}
	}
	cfg.SessionTTL = env.SessionTTL
	cfg.S3Region = env.S3Region
	cfg.S3Endpoint = env.S3Endpoint
	cfg.S3AccessKey = env.S3AccessKey
	cfg.S3SecretKey = env.S3SecretKey
	cfg.S3PublicURL = env.S3PublicURL
	cfg.LogFormat = env.LogFormat

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}
	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = cfg.JWTSecret
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, errors.New("SESSION_TTL must be positive")
	}

	return cfg, nil
}

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
