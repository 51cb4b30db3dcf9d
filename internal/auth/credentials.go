package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
	"github.com/AurLemon/course-android-mockapi/internal/utils"
)

// UserDirectory looks users up for the credential check. Missing users
// are reported as repository.ErrUserNotFound.
type UserDirectory interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Credentials checks username/password pairs against the user directory.
type Credentials struct {
	users UserDirectory
}

func NewCredentials(users UserDirectory) *Credentials {
	if users == nil {
		panic("auth: nil user directory passed to NewCredentials")
	}
	return &Credentials{users: users}
}

// Authenticate returns the user when password matches. Refusals are
// *CredentialError values; store failures are passed through.
func (c *Credentials) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &CredentialError{Reason: ReasonEmptyUsername}
	}
	u, err := c.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, &CredentialError{Reason: ReasonUnknownUser}
	}
	if err != nil {
		return nil, storeErr("authenticate", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, &CredentialError{Reason: ReasonWrongPassword}
	}
	return u, nil
}

// Recheck verifies the current password of a signed-in user before a
// password change.
func (c *Credentials) Recheck(ctx context.Context, userID uint64, password string) (*model.User, error) {
	u, err := c.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, &CredentialError{Reason: ReasonUnknownUser}
	}
	if err != nil {
		return nil, storeErr("recheck", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, &CredentialError{Reason: "原密码不正确"}
	}
	return u, nil
}
