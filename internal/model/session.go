package model

import "time"

// SessionToken models a row in the `session_tokens` table.  A user has at
// most one row; logging in again rotates it in place.
//
// Fields:
//
//	ID               – primary key identifier.
//	UserID           – owner of the session (unique).
//	AccessToken      – bearer credential presented on every request.
//	RefreshToken     – credential exchanged for a new access token.
//	AccessExpiresAt  – instant after which AccessToken is rejected.
//	RefreshExpiresAt – instant after which RefreshToken is rejected.
//	LastUsedAt       – touched on every successful validation.
//	CreatedAt        – timestamp of creation.
//	Principal        – owning user, filled only by lookups that join users.
type SessionToken struct {
	ID               uint64    // session_tokens.id
	UserID           uint64    // session_tokens.user_id
	AccessToken      string    // session_tokens.access_token
	RefreshToken     string    // session_tokens.refresh_token
	AccessExpiresAt  time.Time // session_tokens.access_expires_at
	RefreshExpiresAt time.Time // session_tokens.refresh_expires_at
	LastUsedAt       time.Time // session_tokens.last_used_at
	CreatedAt        time.Time // session_tokens.created_at
	Principal        Principal
}
