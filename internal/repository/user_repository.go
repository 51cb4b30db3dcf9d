package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/utils"
)

// UserRepo is the user directory backed by the `users` table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken wraps ErrConflict for duplicate usernames.
	ErrUsernameTaken = fmt.Errorf("%w: username already exists", ErrConflict)
)

const userColumns = "uid, username, password, true_name, sex, telephone, birth, dept, role, regtime, balance"

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.UID, &u.Username, &u.PasswordHash, &u.TrueName, &u.Sex,
		&u.Telephone, &u.Birth, &u.Dept, &u.Role, &u.RegTime, &u.Balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, classify(err)
	}
	return &u, nil
}

// Create hashes password, inserts the user and fills in UID and RegTime.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Username = strings.TrimSpace(u.Username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if u.RegTime.IsZero() {
		u.RegTime = time.Now().UTC()
	}
	const q = `INSERT INTO users (username, password, true_name, sex, telephone, birth, dept, role, regtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, u.Username, u.PasswordHash, u.TrueName, u.Sex,
		u.Telephone, u.Birth, u.Dept, u.Role, u.RegTime.UTC())
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrConflict) {
			return ErrUsernameTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify(err)
	}
	u.UID = uint64(id)
	return nil
}

// FindByID fetches a user by uid.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = "SELECT " + userColumns + " FROM users WHERE uid = ? LIMIT 1"
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// FindByUsername fetches a user by login name.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = "SELECT " + userColumns + " FROM users WHERE username = ? LIMIT 1"
	return scanUser(r.db.QueryRowContext(ctx, q, strings.TrimSpace(username)))
}

// List returns every user ordered by uid.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY uid")
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// ExistingUsernames reports which of names are already registered.
func (r *UserRepo) ExistingUsernames(ctx context.Context, names []string) (map[string]bool, error) {
	found := make(map[string]bool, len(names))
	if len(names) == 0 {
		return found, nil
	}
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	q := "SELECT username FROM users WHERE username IN (?" + strings.Repeat(",?", len(names)-1) + ")"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify(err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return found, nil
}

// UpdateProfile writes the non-nil fields of p. An empty profile only
// checks that the user exists.
func (r *UserRepo) UpdateProfile(ctx context.Context, uid uint64, p model.UserProfile) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("true_name", p.TrueName)
	add("sex", p.Sex)
	add("telephone", p.Telephone)
	add("birth", p.Birth)
	add("dept", p.Dept)
	if len(sets) == 0 {
		_, err := r.FindByID(ctx, uid)
		return err
	}
	args = append(args, uid)
	res, err := r.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE uid = ?", args...)
	if err != nil {
		return classify(err)
	}
	return expectOne(res, ErrUserNotFound)
}

// UpdatePassword stores a new bcrypt hash for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, uid uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password = ? WHERE uid = ?", hash, uid)
	if err != nil {
		return classify(err)
	}
	return expectOne(res, ErrUserNotFound)
}

// Delete removes the user. Session rows go with it through the foreign key.
func (r *UserRepo) Delete(ctx context.Context, uid uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE uid = ?", uid)
	if err != nil {
		return classify(err)
	}
	return expectOne(res, ErrUserNotFound)
}
