package model

import "time"

// SessionEventKind names a session lifecycle transition.
type SessionEventKind string

const (
	SessionIssued     SessionEventKind = "issued"      // first login, new row
	SessionReused     SessionEventKind = "reused"      // login while the access token is still fresh
	SessionRotated    SessionEventKind = "rotated"     // access token replaced, refresh token kept
	SessionReminted   SessionEventKind = "reminted"    // both tokens replaced
	SessionRefreshed  SessionEventKind = "refreshed"   // access token replaced through the refresh token
	SessionRevoked    SessionEventKind = "revoked"     // logout of one access token
	SessionRevokedAll SessionEventKind = "revoked_all" // every session of a user removed
)

// SessionEvent is published on the message broker after each transition.
// Token values are never included.
type SessionEvent struct {
	Kind             SessionEventKind `json:"kind"`
	UserID           uint64           `json:"user_id,omitempty"`
	Username         string           `json:"username,omitempty"`
	AccessExpiresAt  *time.Time       `json:"access_expires_at,omitempty"`
	RefreshExpiresAt *time.Time       `json:"refresh_expires_at,omitempty"`
	Removed          int64            `json:"removed,omitempty"`
	OccurredAt       time.Time        `json:"occurred_at"`
}
