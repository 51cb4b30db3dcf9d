package auth

import (
	"errors"
	"fmt"

	"github.com/AurLemon/course-android-mockapi/internal/repository"
)

var (
	// ErrUnauthorized covers absent, unknown and expired tokens.
	ErrUnauthorized = errors.New("auth: unauthorized")

	// ErrStoreUnavailable means the token store could not be reached. It is
	// never reported as ErrUnauthorized. Errors carrying it also match
	// repository.ErrUnavailable.
	ErrStoreUnavailable = errors.New("auth: token store unavailable")

	// ErrSessionContention is returned when IssueOrRotate still conflicts
	// after its single reset-and-retry.
	ErrSessionContention = errors.New("auth: session contention persisted after retry")

	// ErrInvalidCredentials is matched by every *CredentialError.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// Messages shown to clients when a login is refused.
const (
	ReasonEmptyUsername = "用户名不能为空"
	ReasonUnknownUser   = "用户不存在"
	ReasonWrongPassword = "密码错误"
)

// CredentialError explains why a username/password pair was refused.
type CredentialError struct {
	Reason string
}

func (e *CredentialError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrInvalidCredentials) hold.
func (e *CredentialError) Is(target error) bool { return target == ErrInvalidCredentials }

// storeErr wraps a store failure, tagging connectivity problems with
// ErrStoreUnavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrUnavailable) {
		return fmt.Errorf("auth: %s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("auth: %s: %w", op, err)
}
