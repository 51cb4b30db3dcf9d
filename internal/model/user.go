package model

import "time"

// Role is the access level stored in users.role.  Lower values carry more
// privilege; the course clients only distinguish administrators from
// everyone else.
type Role int8

const (
	RoleAdmin Role = 0 // full access to user, notice and album management
	RoleUser  Role = 1 // regular student account
)

// String returns the lower case role name used in logs and events.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

// Principal is the authenticated identity attached to a request.  It is
// the subset of a User that the token authority hands back after a
// successful validation or refresh.
type Principal struct {
	UserID   uint64 `json:"uid"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// User represents a row in the `users` table.
//
// Fields:
//
//	UID          – primary key identifier of the user.
//	Username     – unique login name (student or staff number).
//	PasswordHash – bcrypt hash of the password; never serialised.
//	TrueName     – display name.
//	Sex          – free form, as entered by the administrator.
//	Telephone    – contact number.
//	Birth        – birth date as entered (YYYY-MM-DD by convention).
//	Dept         – class or department.
//	Role         – access level, see Role.
//	RegTime      – registration timestamp.
//	Balance      – account balance used by the course exercises.
type User struct {
	UID          uint64    `json:"uid"`       // users.uid
	Username     string    `json:"username"`  // users.username
	PasswordHash string    `json:"-"`         // users.password
	TrueName     string    `json:"trueName"`  // users.true_name
	Sex          string    `json:"sex"`       // users.sex
	Telephone    string    `json:"telephone"` // users.telephone
	Birth        string    `json:"birth"`     // users.birth
	Dept         string    `json:"dept"`      // users.dept
	Role         Role      `json:"role"`      // users.role
	RegTime      time.Time `json:"regtime"`   // users.regtime
	Balance      float64   `json:"balance"`   // users.balance
}

// Principal returns the identity summary of the user.
func (u *User) Principal() Principal {
	return Principal{UserID: u.UID, Username: u.Username, Role: u.Role}
}

// UserProfile carries the editable profile columns.  Nil fields are left
// untouched by partial updates.
type UserProfile struct {
	TrueName  *string
	Sex       *string
	Telephone *string
	Birth     *string
	Dept      *string
}
