package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/auth"
	"github.com/AurLemon/course-android-mockapi/internal/middleware"
	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
)

// SessionService is the token authority as seen by handlers.
type SessionService interface {
	IssueOrRotate(ctx context.Context, p model.Principal) (*auth.Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Grant, error)
	Revoke(ctx context.Context, accessToken string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Authenticator checks passwords.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	Recheck(ctx context.Context, userID uint64, password string) (*model.User, error)
}

// PasswordStore persists password changes.
type PasswordStore interface {
	UpdatePassword(ctx context.Context, uid uint64, password string, cost int) error
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Sessions    SessionService
	Credentials Authenticator
	Passwords   PasswordStore
	BcryptCost  int
	Timeout     time.Duration
}

func NewAuthHandler(s SessionService, cr Authenticator, pw PasswordStore, bcryptCost int, timeout time.Duration) *AuthHandler {
	if s == nil || cr == nil || pw == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Sessions: s, Credentials: cr, Passwords: pw, BcryptCost: bcryptCost, Timeout: timeout}
}

const (
	msgRefreshRejected = "刷新令牌无效或已过期，请重新登录"
	msgLoggedOut       = "注销成功"
	msgPasswordChanged = "密码修改成功"
	msgPasswordsEmpty  = "旧密码和新密码不能为空"
)

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Token            string    `json:"token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResp struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        model.Principal `json:"user"`
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type adminPasswordReq struct {
	UID         uint64 `json:"uid"          validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (h *AuthHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return withTimeout(c, h.Timeout)
}

// Login checks the credentials and returns the caller's session tokens,
// reusing the current access token while it is fresh.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.Credentials.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		var ce *auth.CredentialError
		if errors.As(err, &ce) {
			return echo.NewHTTPError(http.StatusUnauthorized, ce.Reason)
		}
		return err
	}

	g, err := h.Sessions.IssueOrRotate(ctx, u.Principal())
	if err != nil {
		return err
	}
	return ok(c, loginResp{
		Token:            g.AccessToken,
		RefreshToken:     g.RefreshToken,
		ExpiresAt:        g.AccessExpiresAt,
		RefreshExpiresAt: g.RefreshExpiresAt,
	})
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	g, err := h.Sessions.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if errors.Is(err, auth.ErrUnauthorized) {
		return echo.NewHTTPError(http.StatusUnauthorized, msgRefreshRejected)
	}
	if err != nil {
		return err
	}
	return ok(c, refreshResp{AccessToken: g.AccessToken, ExpiresAt: g.AccessExpiresAt, User: g.Principal})
}

// Logout revokes the access token the request was made with.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Sessions.Revoke(ctx, middleware.AccessToken(c)); err != nil {
		return err
	}
	return message(c, msgLoggedOut)
}

// ChangePassword lets the caller set a new password after re-entering the
// current one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return badRequest(msgPasswordsEmpty)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if _, err := h.Credentials.Recheck(ctx, p.UserID, req.OldPassword); err != nil {
		var ce *auth.CredentialError
		if errors.As(err, &ce) {
			return badRequest(ce.Reason)
		}
		return err
	}
	if err := h.Passwords.UpdatePassword(ctx, p.UserID, req.NewPassword, h.BcryptCost); err != nil {
		return err
	}
	return message(c, msgPasswordChanged)
}

// AdminSetPassword overwrites a user's password and signs them out
// everywhere.
func (h *AuthHandler) AdminSetPassword(c echo.Context) error {
	var req adminPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	err := h.Passwords.UpdatePassword(ctx, req.UID, req.NewPassword, h.BcryptCost)
	if errors.Is(err, repository.ErrUserNotFound) {
		return notFound("用户ID %d 不存在", req.UID)
	}
	if err != nil {
		return err
	}
	if err := h.Sessions.RevokeAllForUser(ctx, req.UID); err != nil {
		return err
	}
	return message(c, msgPasswordChanged)
}

// withTimeout bounds the store calls of one request.
func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(c.Request().Context(), d)
}
