package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/utils"
)

var userCols = []string{"uid", "username", "password", "true_name", "sex", "telephone",
	"birth", "dept", "role", "regtime", "balance"}

func TestUserCreateHashesAndTrims(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("bob", sqlmock.AnyArg(), "", "", "", "", "24计应", model.RoleUser, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	u := &model.User{Username: "  bob ", Dept: "24计应", Role: model.RoleUser}
	require.NoError(t, repo.Create(context.Background(), u, "123456", bcrypt.MinCost))
	assert.Equal(t, uint64(12), u.UID)
	assert.Equal(t, "bob", u.Username)
	assert.False(t, u.RegTime.IsZero())
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "123456"))
}

func TestUserCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'bob'"})

	err := repo.Create(context.Background(), &model.User{Username: "bob"}, "pw", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserFind(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`FROM users WHERE username = `).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(7, "alice", "$2a$hash", "爱丽丝", "女", "", "", "CS", 1, t0, 0.5))
	mock.ExpectQuery(`FROM users WHERE uid = `).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := repo.FindByUsername(context.Background(), " alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.UID)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Equal(t, "$2a$hash", u.PasswordHash)

	_, err = repo.FindByID(context.Background(), 8)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserListEmptyIsNotNil(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM users ORDER BY uid`).WillReturnRows(sqlmock.NewRows(userCols))

	users, err := NewUserRepo(db).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUserExistingUsernames(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT username FROM users WHERE username IN \(\?,\?,\?\)`).
		WithArgs("a", "b", "c").
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("b"))

	found, err := repo.ExistingUsernames(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"b": true}, found)

	found, err = repo.ExistingUsernames(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUserUpdateProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	tel, dept := "123", "CS"

	mock.ExpectExec(`UPDATE users SET telephone = \?, dept = \? WHERE uid = `).
		WithArgs("123", "CS", uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET telephone = `).
		WithArgs("123", uint64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM users WHERE uid = `).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "alice", "", "", "", "", "", "", 1, t0, 0))

	require.NoError(t, repo.UpdateProfile(context.Background(), 7, model.UserProfile{Telephone: &tel, Dept: &dept}))
	assert.ErrorIs(t, repo.UpdateProfile(context.Background(), 99, model.UserProfile{Telephone: &tel}), ErrUserNotFound)
	assert.NoError(t, repo.UpdateProfile(context.Background(), 7, model.UserProfile{}))
}

func TestUserUpdatePasswordAndDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET password = `).
		WithArgs(sqlmock.AnyArg(), uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE uid = `).
		WithArgs(uint64(8)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM users WHERE uid = `).
		WithArgs(uint64(9)).WillReturnError(&mysql.MySQLError{Number: 2013, Message: "lost"})

	require.NoError(t, repo.UpdatePassword(context.Background(), 7, "fresh", bcrypt.MinCost))
	assert.ErrorIs(t, repo.Delete(context.Background(), 8), ErrUserNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), 9), ErrUnavailable)
}
