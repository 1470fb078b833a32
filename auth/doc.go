// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential and token primitives.

# Passwords

Passwords are hashed with bcrypt:

	hash, err := auth.HashPassword(password)
	err = auth.CheckPassword(hash, candidate)

Passwords shorter than MinPasswordLength are rejected with ErrInvalidPassword.

# Sessions

Sessions are HS256 JWTs carrying the user id:

	token, expiresAt, err := auth.IssueSession(userID, secret, ttl)
	userID, err := auth.ParseSession(token, secret)

Expired, malformed or foreign tokens yield ErrInvalidToken. Admin rights are
not encoded in the token; they are looked up on each admin request.

# Password Reset Tokens

Reset tokens are random 24-byte secrets, URL-safe base64 encoded:

	token, err := auth.GenerateResetToken()
	key := auth.HashToken(token) // what gets stored

# IP Hashing

Ballots keep a salted hash of the client address, never the address itself:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
