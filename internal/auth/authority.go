// Package auth owns the session lifecycle: issuing, rotating, validating,
// refreshing and revoking the access/refresh token pair of a user. All
// session state lives in the injected TokenStore; the Authority keeps none
// of its own, so any number of server instances can share one database.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
)

// TokenStore is the durable session table. Lookups that match nothing
// return repository.ErrSessionNotFound, as do Update and Touch when the
// row is gone. Unique-key violations surface as repository.ErrConflict and
// connectivity failures as repository.ErrUnavailable.
type TokenStore interface {
	FindByUser(ctx context.Context, userID uint64) (*model.SessionToken, error)
	FindByAccessToken(ctx context.Context, token string) (*model.SessionToken, error)
	FindByRefreshToken(ctx context.Context, token string) (*model.SessionToken, error)
	Create(ctx context.Context, s *model.SessionToken) error
	Update(ctx context.Context, s *model.SessionToken) error
	Touch(ctx context.Context, id uint64, at time.Time) error
	DeleteByAccessToken(ctx context.Context, token string) (int64, error)
	DeleteByUser(ctx context.Context, userID uint64) (int64, error)
}

// Minter produces token values. *Signer is the production implementation.
type Minter interface {
	MintAccess(p model.Principal, issuedAt, expiresAt time.Time) (string, error)
	MintRefresh() (string, error)
	Verify(token string) (*AccessClaims, error)
}

// Notifier receives session transitions. Implementations must not block
// and cannot fail the operation that triggered them.
type Notifier interface {
	SessionChanged(ctx context.Context, ev model.SessionEvent)
}

// Options tunes the lifetimes and collaborators of an Authority.
type Options struct {
	AccessTTL       time.Duration    // lifetime of a newly minted access token
	RefreshTTL      time.Duration    // lifetime of a newly minted refresh token
	RotateWindow    time.Duration    // logins closer than this to access expiry rotate it
	ConflictBackoff time.Duration    // pause before retrying after a unique-key conflict
	Now             func() time.Time // clock, time.Now when nil
	Notifier        Notifier         // optional
	Logger          *zap.Logger      // optional
}

// DefaultOptions returns one day access tokens, fourteen day refresh
// tokens and a ten minute rotation window.
func DefaultOptions() Options {
	return Options{
		AccessTTL:       24 * time.Hour,
		RefreshTTL:      14 * 24 * time.Hour,
		RotateWindow:    10 * time.Minute,
		ConflictBackoff: 100 * time.Millisecond,
	}
}

// Grant is the result of a successful issue, rotation or refresh.
type Grant struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Principal        model.Principal
	Outcome          model.SessionEventKind
}

// Authority implements the session state machine on top of a TokenStore.
type Authority struct {
	store  TokenStore
	minter Minter
	opts   Options
	log    *zap.Logger
}

// NewAuthority wires an Authority. It panics on nil collaborators or
// lifetimes that break refresh > access > 0.
func NewAuthority(store TokenStore, minter Minter, opts Options) *Authority {
	if store == nil || minter == nil {
		panic("auth: nil store or minter passed to NewAuthority")
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= opts.AccessTTL {
		panic("auth: refresh lifetime must exceed a positive access lifetime")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Authority{store: store, minter: minter, opts: opts, log: log.Named("auth")}
}

func (a *Authority) now() time.Time { return a.opts.Now().UTC() }

// IssueOrRotate returns the session credentials for an already
// authenticated principal, creating, reusing or rotating the user's single
// session row. A unique-key conflict (two first logins racing) is resolved
// by deleting the user's rows and running the decision once more.
func (a *Authority) IssueOrRotate(ctx context.Context, p model.Principal) (*Grant, error) {
	g, err := a.issueOrRotate(ctx, p)
	if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrSessionNotFound) {
		a.log.Warn("session write raced, resetting user sessions",
			zap.Uint64("user_id", p.UserID), zap.Error(err))
		if _, derr := a.store.DeleteByUser(ctx, p.UserID); derr != nil {
			return nil, storeErr("reset sessions", derr)
		}
		if werr := sleep(ctx, a.opts.ConflictBackoff); werr != nil {
			return nil, werr
		}
		g, err = a.issueOrRotate(ctx, p)
		if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: user %d: %v", ErrSessionContention, p.UserID, err)
		}
	}
	if err != nil {
		return nil, storeErr("issue", err)
	}

	a.notify(ctx, g.Outcome, g)
	return g, nil
}

func (a *Authority) issueOrRotate(ctx context.Context, p model.Principal) (*Grant, error) {
	now := a.now()

	cur, err := a.store.FindByUser(ctx, p.UserID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return a.create(ctx, p, now)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case cur.AccessExpiresAt.After(now.Add(a.opts.RotateWindow)):
		// still fresh: hand back the same token so other holders stay valid
		if err := a.store.Touch(ctx, cur.ID, now); err != nil {
			return nil, err
		}
		cur.LastUsedAt = now
		return grantOf(cur, p, model.SessionReused), nil

	case cur.RefreshExpiresAt.After(now):
		access, err := a.minter.MintAccess(p, now, now.Add(a.opts.AccessTTL))
		if err != nil {
			return nil, fmt.Errorf("mint access token: %w", err)
		}
		cur.AccessToken = access
		cur.AccessExpiresAt = now.Add(a.opts.AccessTTL)
		cur.LastUsedAt = now
		if err := a.store.Update(ctx, cur); err != nil {
			return nil, err
		}
		return grantOf(cur, p, model.SessionRotated), nil

	default:
		if err := a.mintPair(cur, p, now); err != nil {
			return nil, err
		}
		if err := a.store.Update(ctx, cur); err != nil {
			return nil, err
		}
		return grantOf(cur, p, model.SessionReminted), nil
	}
}

func (a *Authority) create(ctx context.Context, p model.Principal, now time.Time) (*Grant, error) {
	s := &model.SessionToken{UserID: p.UserID, CreatedAt: now}
	if err := a.mintPair(s, p, now); err != nil {
		return nil, err
	}
	if err := a.store.Create(ctx, s); err != nil {
		return nil, err
	}
	return grantOf(s, p, model.SessionIssued), nil
}

// mintPair fills s with a fresh access/refresh pair and both expiries.
func (a *Authority) mintPair(s *model.SessionToken, p model.Principal, now time.Time) error {
	access, err := a.minter.MintAccess(p, now, now.Add(a.opts.AccessTTL))
	if err != nil {
		return fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := a.minter.MintRefresh()
	if err != nil {
		return fmt.Errorf("mint refresh token: %w", err)
	}
	s.AccessToken = access
	s.RefreshToken = refresh
	s.AccessExpiresAt = now.Add(a.opts.AccessTTL)
	s.RefreshExpiresAt = now.Add(a.opts.RefreshTTL)
	s.LastUsedAt = now
	return nil
}

// Validate resolves an access token to its principal. Unknown, forged and
// expired tokens yield ErrUnauthorized; store failures are returned as
// ErrStoreUnavailable and never as ErrUnauthorized.
func (a *Authority) Validate(ctx context.Context, accessToken string) (model.Principal, error) {
	if accessToken == "" {
		return model.Principal{}, ErrUnauthorized
	}
	if _, err := a.minter.Verify(accessToken); err != nil {
		return model.Principal{}, ErrUnauthorized
	}

	s, err := a.store.FindByAccessToken(ctx, accessToken)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return model.Principal{}, ErrUnauthorized
	}
	if err != nil {
		return model.Principal{}, storeErr("validate", err)
	}

	now := a.now()
	if now.After(s.AccessExpiresAt) {
		return model.Principal{}, ErrUnauthorized
	}
	if err := a.store.Touch(ctx, s.ID, now); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return model.Principal{}, ErrUnauthorized // revoked in between
		}
		return model.Principal{}, storeErr("touch", err)
	}
	return s.Principal, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is kept.
func (a *Authority) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}
	s, err := a.store.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, storeErr("refresh", err)
	}

	now := a.now()
	if now.After(s.RefreshExpiresAt) {
		return nil, ErrUnauthorized
	}

	access, err := a.minter.MintAccess(s.Principal, now, now.Add(a.opts.AccessTTL))
	if err != nil {
		return nil, fmt.Errorf("auth: mint access token: %w", err)
	}
	s.AccessToken = access
	s.AccessExpiresAt = now.Add(a.opts.AccessTTL)
	s.LastUsedAt = now
	if err := a.store.Update(ctx, s); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrUnauthorized // revoked in between
		}
		return nil, storeErr("refresh", err)
	}

	g := grantOf(s, s.Principal, model.SessionRefreshed)
	a.notify(ctx, g.Outcome, g)
	return g, nil
}

// Revoke deletes the session presenting accessToken. Revoking an unknown
// token is not an error. The event's user comes from the token subject.
func (a *Authority) Revoke(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	n, err := a.store.DeleteByAccessToken(ctx, accessToken)
	if err != nil {
		return storeErr("revoke", err)
	}
	if n > 0 {
		ev := model.SessionEvent{Kind: model.SessionRevoked, Removed: n}
		if claims, err := a.minter.Verify(accessToken); err == nil {
			ev.UserID = claims.UserID()
		}
		a.emit(ctx, ev)
	}
	return nil
}

// RevokeAllForUser deletes every session of userID.
func (a *Authority) RevokeAllForUser(ctx context.Context, userID uint64) error {
	n, err := a.store.DeleteByUser(ctx, userID)
	if err != nil {
		return storeErr("revoke all", err)
	}
	a.emit(ctx, model.SessionEvent{Kind: model.SessionRevokedAll, UserID: userID, Removed: n})
	return nil
}

func grantOf(s *model.SessionToken, p model.Principal, outcome model.SessionEventKind) *Grant {
	return &Grant{
		AccessToken:      s.AccessToken,
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshToken:     s.RefreshToken,
		RefreshExpiresAt: s.RefreshExpiresAt,
		Principal:        p,
		Outcome:          outcome,
	}
}

func (a *Authority) notify(ctx context.Context, kind model.SessionEventKind, g *Grant) {
	access, refresh := g.AccessExpiresAt, g.RefreshExpiresAt
	a.emit(ctx, model.SessionEvent{
		Kind:             kind,
		UserID:           g.Principal.UserID,
		Username:         g.Principal.Username,
		AccessExpiresAt:  &access,
		RefreshExpiresAt: &refresh,
	})
}

func (a *Authority) emit(ctx context.Context, ev model.SessionEvent) {
	ev.OccurredAt = a.now()
	a.log.Debug("session event", zap.String("kind", string(ev.Kind)), zap.Uint64("user_id", ev.UserID))
	if a.opts.Notifier != nil {
		a.opts.Notifier.SessionChanged(ctx, ev)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
