package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// ErrSessionNotFound is returned when no session row matches a lookup or
// an in-place update.
var ErrSessionNotFound = errors.New("session not found")

// TokenRepo persists session token rows (one per user). It is the durable
// store behind the token authority.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

const sessionColumns = `s.id, s.user_id, s.access_token, s.refresh_token,
	s.access_expires_at, s.refresh_expires_at, s.last_used_at, s.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner, withPrincipal bool) (*model.SessionToken, error) {
	var s model.SessionToken
	dest := []any{&s.ID, &s.UserID, &s.AccessToken, &s.RefreshToken,
		&s.AccessExpiresAt, &s.RefreshExpiresAt, &s.LastUsedAt, &s.CreatedAt}
	if withPrincipal {
		dest = append(dest, &s.Principal.Username, &s.Principal.Role)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, classify(err)
	}
	if withPrincipal {
		s.Principal.UserID = s.UserID
	}
	return &s, nil
}

// FindByUser returns the session row owned by userID.
func (r *TokenRepo) FindByUser(ctx context.Context, userID uint64) (*model.SessionToken, error) {
	const q = "SELECT " + sessionColumns + " FROM session_tokens s WHERE s.user_id = ? LIMIT 1"
	return scanSession(r.db.QueryRowContext(ctx, q, userID), false)
}

// FindByAccessToken returns the session presenting the given access token,
// joined with its owner's username and role.
func (r *TokenRepo) FindByAccessToken(ctx context.Context, token string) (*model.SessionToken, error) {
	const q = "SELECT " + sessionColumns + `, u.username, u.role
		FROM session_tokens s JOIN users u ON u.uid = s.user_id
		WHERE s.access_token = ? LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, q, token), true)
}

// FindByRefreshToken returns the session holding the given refresh token,
// joined with its owner's username and role.
func (r *TokenRepo) FindByRefreshToken(ctx context.Context, token string) (*model.SessionToken, error) {
	const q = "SELECT " + sessionColumns + `, u.username, u.role
		FROM session_tokens s JOIN users u ON u.uid = s.user_id
		WHERE s.refresh_token = ? LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, q, token), true)
}

// Create inserts a new session row and fills in its ID. A second row for
// the same user (or a reused token value) yields ErrConflict.
func (r *TokenRepo) Create(ctx context.Context, s *model.SessionToken) error {
	const q = `INSERT INTO session_tokens
		(user_id, access_token, refresh_token, access_expires_at, refresh_expires_at, last_used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.UserID, s.AccessToken, s.RefreshToken,
		s.AccessExpiresAt.UTC(), s.RefreshExpiresAt.UTC(), s.LastUsedAt.UTC(), s.CreatedAt.UTC())
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify(err)
	}
	s.ID = uint64(id)
	return nil
}

// Update rewrites the token values, expiries and last-used time of an
// existing row in place.
func (r *TokenRepo) Update(ctx context.Context, s *model.SessionToken) error {
	const q = `UPDATE session_tokens
		SET access_token = ?, refresh_token = ?, access_expires_at = ?, refresh_expires_at = ?, last_used_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.AccessToken, s.RefreshToken,
		s.AccessExpiresAt.UTC(), s.RefreshExpiresAt.UTC(), s.LastUsedAt.UTC(), s.ID)
	if err != nil {
		return classify(err)
	}
	return expectOne(res, ErrSessionNotFound)
}

// Touch records that the session was used at the given instant.
func (r *TokenRepo) Touch(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, "UPDATE session_tokens SET last_used_at = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return classify(err)
	}
	return expectOne(res, ErrSessionNotFound)
}

// DeleteByAccessToken removes the session presenting token. Deleting
// nothing is not an error.
func (r *TokenRepo) DeleteByAccessToken(ctx context.Context, token string) (int64, error) {
	return r.deleteWhere(ctx, "DELETE FROM session_tokens WHERE access_token = ?", token)
}

// DeleteByUser removes every session owned by userID.
func (r *TokenRepo) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	return r.deleteWhere(ctx, "DELETE FROM session_tokens WHERE user_id = ?", userID)
}

// DeleteExpired removes sessions whose refresh token expired before the
// given instant. Expiry is enforced at validation time; this only reclaims
// space.
func (r *TokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return r.deleteWhere(ctx, "DELETE FROM session_tokens WHERE refresh_expires_at < ?", before.UTC())
}

func (r *TokenRepo) deleteWhere(ctx context.Context, q string, arg any) (int64, error) {
	res, err := r.db.ExecContext(ctx, q, arg)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// expectOne maps an update that matched no row onto notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
