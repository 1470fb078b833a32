// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package users manages accounts and sessions: registration, login and
// logout, password reset, admin promotion and voted-topic lookups.
package users
